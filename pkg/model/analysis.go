// pkg/model/analysis.go
package model

// MatchMode tells how a lecturer was joined to the label table.
type MatchMode string

const (
	MatchExact MatchMode = "exact"
	MatchLoose MatchMode = "loose"
)

// AnalysisRow is a cleaned evaluation record with a known lecturer gender
// and the derived covariates.
type AnalysisRow struct {
	Line               int
	CourseID           string
	LecturerName       string
	FirstNameKey       string
	Gender             Gender
	Female             float64 // 1 female, 0 male
	CourseScore        float64
	LecturerScore      float64
	Enrollment         *int
	Responses          *int
	ResponseRate       *float64
	LogEnrollment      *float64
	Department         string
	DeptMeanEnrollment *float64
	Ideology           *float64
	MatchMode          MatchMode
}

// DropCategory groups the reasons a raw row leaves the analysis table.
type DropCategory string

const (
	DropMissingScore     DropCategory = "missing_score"
	DropUnresolvedGender DropCategory = "unresolved_gender"
)

// DropRecord is the audit entry for one excluded raw row.
type DropRecord struct {
	Line         int
	CourseID     string
	LecturerName string
	FirstNameKey string
	Category     DropCategory
	Reason       string // e.g. "missing_lecturer_score", "unknown_gender"
}

// Accounting reconciles the cleaned table against the raw input.
type Accounting struct {
	RawRows                 int `json:"raw_rows"`
	CleanRows               int `json:"clean_rows"`
	DroppedMissingScore     int `json:"dropped_missing_score"`
	DroppedUnresolvedGender int `json:"dropped_unresolved_gender"`
}

// Balanced reports whether every raw row is accounted for exactly once.
func (a Accounting) Balanced() bool {
	return a.CleanRows+a.DroppedMissingScore+a.DroppedUnresolvedGender == a.RawRows
}
