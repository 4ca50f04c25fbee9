// pkg/dataset/write.go
package dataset

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/David-Botos/qguide-analysis/pkg/model"
)

// AnalysisColumns is the header of the cleaned analysis table
var AnalysisColumns = []string{
	"line", "course_id", "lecturer_name", "first_name", "gender", "female",
	"course_score_mean", "lecturer_score_mean", "enrollment", "responses",
	"response_rate", "log_enrollment", "department", "dept_mean_enrollment",
	"ideology", "match",
}

// DropColumns is the header of the dropped-row audit table
var DropColumns = []string{"line", "course_id", "lecturer_name", "first_name", "category", "reason"}

// WriteAnalysisRows writes the cleaned table. Missing values are empty cells.
func WriteAnalysisRows(w io.Writer, rows []model.AnalysisRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(AnalysisColumns); err != nil {
		return err
	}

	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Line),
			r.CourseID,
			r.LecturerName,
			r.FirstNameKey,
			string(r.Gender),
			FormatFloat(r.Female),
			FormatFloat(r.CourseScore),
			FormatFloat(r.LecturerScore),
			formatIntPtr(r.Enrollment),
			formatIntPtr(r.Responses),
			formatFloatPtr(r.ResponseRate),
			formatFloatPtr(r.LogEnrollment),
			r.Department,
			formatFloatPtr(r.DeptMeanEnrollment),
			formatFloatPtr(r.Ideology),
			string(r.MatchMode),
		}
		if err := writer.Write(rec); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteDropRecords writes the audit of excluded rows
func WriteDropRecords(w io.Writer, drops []model.DropRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(DropColumns); err != nil {
		return err
	}

	for _, d := range drops {
		rec := []string{
			strconv.Itoa(d.Line),
			d.CourseID,
			d.LecturerName,
			d.FirstNameKey,
			string(d.Category),
			d.Reason,
		}
		if err := writer.Write(rec); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// FormatFloat renders numbers with the shortest exact representation
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatFloat(*v)
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
