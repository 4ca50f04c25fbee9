// pkg/model/evaluation.go
package model

// RawEvaluationRecord is one course-lecturer row as produced by the scraper.
// Scores and counts are pointers so that a missing cell stays distinguishable
// from a zero.
type RawEvaluationRecord struct {
	Line              int      // 1-based data row index, used as row identifier
	CourseID          string   // e.g. "CS50"
	LecturerName      string   // Full name as scraped
	LecturerFirstName string   // Optional pre-extracted first name
	// FirstNameColumn is set when the table carries an explicit first-name
	// column. A blank cell then means the first name is unknown.
	FirstNameColumn bool
	CourseScore       *float64 // course_score_mean, 1.0-5.0
	LecturerScore     *float64 // lecturer_score_mean, 1.0-5.0
	Enrollment        *int
	Responses         *int
	Department        string
	Term              string
	Link              string
}

// MinScore and MaxScore bound a valid QGuide score.
const (
	MinScore = 1.0
	MaxScore = 5.0
)

// ValidScore reports whether v is present and inside the QGuide scale.
func ValidScore(v *float64) bool {
	return v != nil && *v >= MinScore && *v <= MaxScore
}
