// pkg/dataset/ideology.go
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/David-Botos/qguide-analysis/pkg/names"
	"github.com/David-Botos/qguide-analysis/pkg/runerrors"
)

// Ideology maps a normalized department name to its ideology score
type Ideology map[string]float64

// DepartmentKey normalizes department names for the ideology join
func DepartmentKey(department string) string {
	return names.Normalize(department)
}

// Lookup returns the score of a department
func (id Ideology) Lookup(department string) (float64, bool) {
	v, ok := id[DepartmentKey(department)]
	return v, ok
}

// ReadIdeologyFile loads a department,ideology CSV. An empty path yields nil.
func ReadIdeologyFile(path string) (Ideology, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ideology file: %w", err)
	}
	defer f.Close()

	return ReadIdeology(f, path)
}

// ReadIdeology parses department,ideology rows. Missing or malformed scores
// are skipped; a department listed twice is an error.
func ReadIdeology(r io.Reader, source string) (Ideology, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &runerrors.MissingDataError{Source: source, Columns: []string{"department", "ideology"}}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", source, err)
	}

	deptCol, scoreCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "department", "subject", "dept":
			if deptCol < 0 {
				deptCol = i
			}
		case "ideology", "ideology_score":
			if scoreCol < 0 {
				scoreCol = i
			}
		}
	}
	var missing []string
	if deptCol < 0 {
		missing = append(missing, "department")
	}
	if scoreCol < 0 {
		missing = append(missing, "ideology")
	}
	if len(missing) > 0 {
		return nil, &runerrors.MissingDataError{Source: source, Columns: missing}
	}

	out := make(Ideology)
	for line := 1; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s row %d: %w", source, line, err)
		}
		if deptCol >= len(rec) || scoreCol >= len(rec) {
			continue
		}

		key := DepartmentKey(rec[deptCol])
		score, err := toFloat(rec[scoreCol])
		if key == "" || err != nil || score == nil {
			continue
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("%s row %d: department %q listed twice", source, line, rec[deptCol])
		}
		out[key] = *score
	}

	return out, nil
}
