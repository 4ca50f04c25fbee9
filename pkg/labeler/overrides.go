// pkg/labeler/overrides.go
package labeler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/David-Botos/qguide-analysis/pkg/model"
	"github.com/David-Botos/qguide-analysis/pkg/names"
)

// Override is one manual correction
type Override struct {
	Name   string
	Gender model.Gender
	Note   string
	Line   int
}

// Overrides is the parsed override file keyed by normalized name
type Overrides struct {
	byName     map[string]Override
	Duplicates []string // names listed more than once; the last row won
}

// LoadOverridesFile reads an override file. An empty path yields no overrides.
func LoadOverridesFile(path string) (*Overrides, error) {
	if path == "" {
		return &Overrides{byName: map[string]Override{}}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open overrides file: %w", err)
	}
	defer f.Close()

	o, err := ReadOverrides(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides %s: %w", path, err)
	}
	return o, nil
}

// ReadOverrides parses CSV rows of name,gender[,note]
func ReadOverrides(r io.Reader) (*Overrides, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	o := &Overrides{byName: make(map[string]Override)}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return o, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := headerIndex(header)
	nameCol, ok := idx["name"]
	if !ok {
		if nameCol, ok = idx["first_name"]; !ok {
			return nil, errors.New("overrides header must contain name and gender columns")
		}
	}
	genderCol, ok := idx["gender"]
	if !ok {
		return nil, errors.New("overrides header must contain name and gender columns")
	}
	noteCol, ok := idx["note"]
	if !ok {
		noteCol = -1
	}

	dup := make(map[string]bool)
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
		gender, err := model.ParseGender(field(rec, genderCol))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if _, exists := o.byName[key]; exists && !dup[key] {
			dup[key] = true
			o.Duplicates = append(o.Duplicates, key)
		}
		o.byName[key] = Override{Name: key, Gender: gender, Note: field(rec, noteCol), Line: line}
	}

	sort.Strings(o.Duplicates)
	return o, nil
}

// Get returns the override for a normalized name
func (o *Overrides) Get(name string) (Override, bool) {
	ov, ok := o.byName[name]
	return ov, ok
}

// Len returns the number of distinct overridden names
func (o *Overrides) Len() int {
	return len(o.byName)
}

// All returns the overrides sorted by name
func (o *Overrides) All() []Override {
	out := make([]Override, 0, len(o.byName))
	for _, ov := range o.byName {
		out = append(out, ov)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
