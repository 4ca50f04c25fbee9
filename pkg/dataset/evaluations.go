// Package dataset loads the raw evaluation table and its optional
// department-level side inputs, and writes the cleaned analysis table.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/David-Botos/qguide-analysis/pkg/model"
	"github.com/David-Botos/qguide-analysis/pkg/names"
	"github.com/David-Botos/qguide-analysis/pkg/runerrors"
)

// Table is a loaded raw evaluation table
type Table struct {
	Source  string
	Records []model.RawEvaluationRecord
	// MalformedCells counts numeric cells that were present but could not be
	// parsed. They are treated as missing.
	MalformedCells int
}

// ReadEvaluationsFile loads the raw table from a CSV file
func ReadEvaluationsFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw input: %w", err)
	}
	defer f.Close()

	return ReadEvaluations(f, path)
}

// ReadEvaluations parses a CSV raw table with header-driven column mapping
func ReadEvaluations(r io.Reader, source string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &runerrors.MissingDataError{Source: source, Columns: RequiredColumns}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", source, err)
	}

	cols, err := resolveColumns(header, source)
	if err != nil {
		return nil, err
	}

	table := &Table{Source: source}
	for line := 1; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s row %d: %w", source, line, err)
		}

		row := make([]interface{}, len(rec))
		for i, cell := range rec {
			row[i] = cell
		}
		table.add(cols, row)
	}

	return table, nil
}

// add converts one row and appends it. Line numbers are 1-based data rows.
func (t *Table) add(cols columnMap, row []interface{}) {
	rec := model.RawEvaluationRecord{
		Line:              len(t.Records) + 1,
		CourseID:          toText(cols.get(row, colCourseID)),
		LecturerName:      toText(cols.get(row, colLecturerName)),
		LecturerFirstName: toText(cols.get(row, colFirstName)),
		Department:        toText(cols.get(row, colDepartment)),
		Term:              toText(cols.get(row, colTerm)),
		Link:              toText(cols.get(row, colLink)),
	}
	_, rec.FirstNameColumn = cols[colFirstName]

	var err error
	if rec.CourseScore, err = toFloat(cols.get(row, colCourseScore)); err != nil {
		t.MalformedCells++
	}
	if rec.LecturerScore, err = toFloat(cols.get(row, colLecturerScore)); err != nil {
		t.MalformedCells++
	}
	if rec.Enrollment, err = toInt(cols.get(row, colEnrollment)); err != nil {
		t.MalformedCells++
	}
	if rec.Responses, err = toInt(cols.get(row, colResponses)); err != nil {
		t.MalformedCells++
	}

	t.Records = append(t.Records, rec)
}

// FirstNames returns the lecturer first-name keys found in the table,
// one entry per record that has one.
func (t *Table) FirstNames() []string {
	out := make([]string, 0, len(t.Records))
	for _, rec := range t.Records {
		if k := names.RecordKey(rec); k != "" {
			out = append(out, k)
		}
	}
	return out
}
