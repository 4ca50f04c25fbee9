// pkg/report/output.go
package report

import (
	"io"

	"github.com/David-Botos/qguide-analysis/pkg/dataset"
	"github.com/David-Botos/qguide-analysis/pkg/model"
)

// Output file names
const (
	FileAnalysisRows = "analysis_rows.csv"
	FileDroppedRows  = "dropped_rows.csv"
	FileGroupMeans   = "group_means.csv"
	FileGroupTests   = "group_tests.csv"
	FileCoefficients = "coefficients.csv"
	FileModelSummary = "model_summary.csv"
	FileRunSummary   = "run_summary.json"
	FileReport       = "report.txt"
)

// Output is the complete set of artifacts of one run
type Output struct {
	Rows        []model.AnalysisRow
	Drops       []model.DropRecord
	Comparisons []model.GroupComparison
	Models      []model.ModelResult
	Summary     *RunSummary
}

// Files returns the output files in write order
func (o *Output) Files() []File {
	return []File{
		{Name: FileAnalysisRows, Write: func(w io.Writer) error { return dataset.WriteAnalysisRows(w, o.Rows) }},
		{Name: FileDroppedRows, Write: func(w io.Writer) error { return dataset.WriteDropRecords(w, o.Drops) }},
		{Name: FileGroupMeans, Write: func(w io.Writer) error { return WriteGroupMeans(w, o.Comparisons) }},
		{Name: FileGroupTests, Write: func(w io.Writer) error { return WriteGroupTests(w, o.Comparisons) }},
		{Name: FileCoefficients, Write: func(w io.Writer) error { return WriteCoefficients(w, o.Models) }},
		{Name: FileModelSummary, Write: func(w io.Writer) error { return WriteModelSummary(w, o.Models) }},
		{Name: FileRunSummary, Write: o.Summary.WriteJSON},
		{Name: FileReport, Write: o.Summary.WriteText},
	}
}

// FileNames lists the names produced by Files
func FileNames() []string {
	return []string{
		FileAnalysisRows, FileDroppedRows, FileGroupMeans, FileGroupTests,
		FileCoefficients, FileModelSummary, FileRunSummary, FileReport,
	}
}
