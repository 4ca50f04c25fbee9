// pkg/labeler/table.go
package labeler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/David-Botos/qguide-analysis/pkg/model"
	"github.com/David-Botos/qguide-analysis/pkg/names"
)

// LabelColumns is the header of the label table file
var LabelColumns = []string{"first_name", "gender", "source", "confidence", "count"}

// NewTable returns an empty label table with the loose join index enabled
func NewTable() *model.LabelTable {
	return model.NewLabelTable(names.LooseKey)
}

// LoadLabelsFile reads a label table from disk. A missing file is reported
// with an error satisfying errors.Is(err, fs.ErrNotExist).
func LoadLabelsFile(path string) (*model.LabelTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label table: %w", err)
	}
	defer f.Close()

	table, err := ReadLabels(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read label table %s: %w", path, err)
	}
	return table, nil
}

// ReadLabels parses a label table. Rows edited by hand may leave source,
// confidence and count empty; an empty source is taken as manual. A row
// whose gender was edited but still reads source=inferred is treated as an
// inference and is re-queried on refresh.
func ReadLabels(r io.Reader) (*model.LabelTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	table := NewTable()

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := headerIndex(header)
	nameCol, ok := idx["first_name"]
	if !ok {
		if nameCol, ok = idx["name"]; !ok {
			return nil, errors.New("label table header must contain first_name and gender columns")
		}
	}
	genderCol, ok := idx["gender"]
	if !ok {
		return nil, errors.New("label table header must contain first_name and gender columns")
	}
	sourceCol := columnOrMissing(idx, "source")
	confidenceCol := columnOrMissing(idx, "confidence")
	countCol := columnOrMissing(idx, "count")

	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		key := names.Normalize(field(rec, nameCol))
		if key == "" {
			continue
		}

		label := model.NameGenderLabel{Name: key, Source: model.SourceManual}
		if label.Gender, err = model.ParseGender(field(rec, genderCol)); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if s := field(rec, sourceCol); s != "" {
			if label.Source, err = model.ParseLabelSource(s); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		if s := field(rec, confidenceCol); s != "" {
			if label.Confidence, err = strconv.ParseFloat(s, 64); err != nil {
				return nil, fmt.Errorf("line %d: invalid confidence %q", line, s)
			}
		} else if label.Source == model.SourceManual {
			label.Confidence = 1
		}
		if s := field(rec, countCol); s != "" {
			if label.Count, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("line %d: invalid count %q", line, s)
			}
		}

		table.Set(label)
	}

	return table, nil
}

// WriteLabels writes the table sorted by name with fixed number formatting,
// so equal tables always serialize to equal bytes.
func WriteLabels(w io.Writer, table *model.LabelTable) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(LabelColumns); err != nil {
		return err
	}

	for _, l := range table.Labels() {
		row := []string{
			l.Name,
			string(l.Gender),
			string(l.Source),
			strconv.FormatFloat(l.Confidence, 'f', 4, 64),
			strconv.Itoa(l.Count),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteLabelsFile replaces path with the table. The file is written to a
// temporary sibling and renamed, so readers never see a partial table.
func WriteLabelsFile(path string, table *model.LabelTable) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return WriteLabels(w, table)
	})
}

func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func columnOrMissing(idx map[string]int, name string) int {
	if i, ok := idx[name]; ok {
		return i
	}
	return -1
}
