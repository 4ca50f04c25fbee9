// pkg/dataset/columns.go
package dataset

import (
	"strings"

	"github.com/David-Botos/qguide-analysis/pkg/runerrors"
)

// Logical columns of the raw evaluation table
const (
	colCourseID      = "course_id"
	colLecturerName  = "lecturer_name"
	colCourseScore   = "course_score_mean"
	colLecturerScore = "lecturer_score_mean"
	colFirstName     = "lecturer_first_name"
	colEnrollment    = "enrollment"
	colResponses     = "responses"
	colDepartment    = "department"
	colTerm          = "term"
	colLink          = "link"
)

// RequiredColumns must be present in every raw input
var RequiredColumns = []string{colCourseID, colLecturerName, colCourseScore, colLecturerScore}

// columnAliases lists accepted header spellings for each logical column
var columnAliases = map[string][]string{
	colCourseID:      {"course_id", "course", "course_code", "course_title"},
	colLecturerName:  {"lecturer_name", "lecturer", "instructor", "course_teacher"},
	colCourseScore:   {"course_score_mean", "course_score", "course_mean"},
	colLecturerScore: {"lecturer_score_mean", "instructor_score_mean", "teacher_score"},
	colFirstName:     {"lecturer_first_name", "course_teacher_first_name", "first_name"},
	colEnrollment:    {"enrollment", "enrolled"},
	colResponses:     {"responses", "response_count"},
	colDepartment:    {"department", "subject", "dept"},
	colTerm:          {"term", "semester"},
	colLink:          {"link", "url"},
}

// columnMap maps logical columns to positions in a header
type columnMap map[string]int

// resolveColumns matches a header against the aliases. Every missing
// required column is reported in one MissingDataError.
func resolveColumns(header []string, source string) (columnMap, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, exists := positions[key]; !exists {
			positions[key] = i
		}
	}

	cols := make(columnMap, len(columnAliases))
	for logical, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := positions[alias]; ok {
				cols[logical] = i
				break
			}
		}
	}

	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &runerrors.MissingDataError{Source: source, Columns: missing}
	}
	return cols, nil
}

// get returns the cell of a logical column, nil when the column is absent
func (c columnMap) get(row []interface{}, logical string) interface{} {
	i, ok := c[logical]
	if !ok || i >= len(row) {
		return nil
	}
	return row[i]
}
