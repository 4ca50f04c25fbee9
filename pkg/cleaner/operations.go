// pkg/cleaner/operations.go
package cleaner

import (
	"github.com/David-Botos/qguide-analysis/pkg/model"
	"github.com/David-Botos/qguide-analysis/pkg/names"
)

// Drop reasons recorded in the audit table
const (
	ReasonMissingCourseScore   = "missing_course_score"
	ReasonMissingLecturerScore = "missing_lecturer_score"
	ReasonMissingBothScores    = "missing_scores"
	ReasonCourseScoreRange     = "course_score_out_of_range"
	ReasonLecturerScoreRange   = "lecturer_score_out_of_range"
	ReasonNoFirstName          = "no_first_name"
	ReasonNoLabel              = "no_label"
	ReasonUnknownGender        = "unknown_gender"
	ReasonAmbiguousLooseMatch  = "ambiguous_loose_match"
)

// checkScores returns a drop reason when either score is unusable
func checkScores(rec model.RawEvaluationRecord) (string, bool) {
	switch {
	case rec.CourseScore == nil && rec.LecturerScore == nil:
		return ReasonMissingBothScores, false
	case rec.CourseScore == nil:
		return ReasonMissingCourseScore, false
	case rec.LecturerScore == nil:
		return ReasonMissingLecturerScore, false
	case !model.ValidScore(rec.CourseScore):
		return ReasonCourseScoreRange, false
	case !model.ValidScore(rec.LecturerScore):
		return ReasonLecturerScoreRange, false
	}
	return "", true
}

// genderMatch is the outcome of joining one lecturer to the label table
type genderMatch struct {
	key    string
	label  model.NameGenderLabel
	mode   model.MatchMode
	reason string // non-empty when unresolved
}

// resolveGender joins a record to the label table: exact key first, then the
// loose key when it names exactly one label
func resolveGender(rec model.RawEvaluationRecord, labels *model.LabelTable) genderMatch {
	key := names.RecordKey(rec)
	if key == "" {
		return genderMatch{reason: ReasonNoFirstName}
	}

	m := genderMatch{key: key, mode: model.MatchExact}
	label, ok := labels.Lookup(key)
	if !ok {
		loose, candidates := labels.LookupLoose(names.LooseKey(key))
		switch len(candidates) {
		case 0:
			m.reason = ReasonNoLabel
			return m
		case 1:
			label, m.mode = loose, model.MatchLoose
		default:
			m.reason = ReasonAmbiguousLooseMatch
			return m
		}
	}

	m.label = label
	if !label.Gender.Known() {
		m.reason = ReasonUnknownGender
	}
	return m
}
