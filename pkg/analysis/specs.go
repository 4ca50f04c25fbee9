// pkg/analysis/specs.go
package analysis

import "github.com/David-Botos/qguide-analysis/pkg/features"

// Model names
const (
	ModelLecturerGender   = "lecturer_gender"
	ModelCourseGender     = "course_gender"
	ModelLecturerControls = "lecturer_controls"
	ModelCourseControls   = "course_controls"
	ModelLecturerIdeology = "lecturer_ideology"
)

// Outcomes compared between female and male lecturers
var Outcomes = []string{features.OutcomeLecturerScore, features.OutcomeCourseScore}

// DefaultSpecs returns the regressions of a run. The ideology model is
// included only when department ideology scores were loaded.
func DefaultSpecs(withIdeology bool) []features.Spec {
	controls := []string{features.TermFemale, features.TermLogEnrollment, features.TermResponseRate}

	specs := []features.Spec{
		{Name: ModelLecturerGender, Outcome: features.OutcomeLecturerScore, Terms: []string{features.TermFemale}},
		{Name: ModelCourseGender, Outcome: features.OutcomeCourseScore, Terms: []string{features.TermFemale}},
		{Name: ModelLecturerControls, Outcome: features.OutcomeLecturerScore, Terms: controls, DeptFixedEffects: true},
		{Name: ModelCourseControls, Outcome: features.OutcomeCourseScore, Terms: controls, DeptFixedEffects: true},
		{
			Name:          ModelLecturerIdeology,
			Outcome:       features.OutcomeLecturerScore,
			Terms:         []string{features.TermFemale, features.TermIdeology, features.TermLogEnrollment},
			NeedsIdeology: true,
		},
	}

	if withIdeology {
		return specs
	}
	out := specs[:0]
	for _, s := range specs {
		if !s.NeedsIdeology {
			out = append(out, s)
		}
	}
	return out
}
