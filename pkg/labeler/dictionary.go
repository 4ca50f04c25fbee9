// pkg/labeler/dictionary.go
package labeler

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/David-Botos/qguide-analysis/pkg/names"
)

// DictionaryInferrer answers lookups from an offline frequency table with
// the columns name,female_count,male_count.
type DictionaryInferrer struct {
	counts map[string][2]int
}

// LoadDictionaryFile reads a frequency dictionary from disk
func LoadDictionaryFile(path string) (*DictionaryInferrer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gender dictionary: %w", err)
	}
	defer f.Close()

	d, err := LoadDictionary(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load gender dictionary %s: %w", path, err)
	}
	return d, nil
}

// LoadDictionary parses a frequency dictionary. Repeated names are summed.
func LoadDictionary(r io.Reader) (*DictionaryInferrer, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty dictionary")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := headerIndex(header)
	nameCol, okName := idx["name"]
	femaleCol, okFemale := idx["female_count"]
	maleCol, okMale := idx["male_count"]
	if !okName || !okFemale || !okMale {
		return nil, errors.New("dictionary header must contain name,female_count,male_count")
	}

	d := &DictionaryInferrer{counts: make(map[string][2]int)}
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
		female, err := strconv.Atoi(strings.TrimSpace(field(rec, femaleCol)))
		if err != nil || female < 0 {
			return nil, fmt.Errorf("line %d: invalid female_count %q", line, field(rec, femaleCol))
		}
		male, err := strconv.Atoi(strings.TrimSpace(field(rec, maleCol)))
		if err != nil || male < 0 {
			return nil, fmt.Errorf("line %d: invalid male_count %q", line, field(rec, maleCol))
		}

		c := d.counts[key]
		d.counts[key] = [2]int{c[0] + female, c[1] + male}
	}

	return d, nil
}

// Infer returns the female share of the recorded observations
func (d *DictionaryInferrer) Infer(ctx context.Context, name string) (Inference, error) {
	if err := ctx.Err(); err != nil {
		return Inference{}, err
	}

	c, ok := d.counts[names.Normalize(name)]
	total := c[0] + c[1]
	if !ok || total == 0 {
		return Inference{}, nil
	}
	return Inference{
		ProbabilityFemale: float64(c[0]) / float64(total),
		Count:             total,
		Found:             true,
	}, nil
}

// Len returns the number of names in the dictionary
func (d *DictionaryInferrer) Len() int {
	return len(d.counts)
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
