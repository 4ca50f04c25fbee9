// pkg/model/label.go
package model

import (
	"fmt"
	"sort"
	"strings"
)

// Gender is the categorical label attached to a lecturer first name.
type Gender string

const (
	GenderFemale  Gender = "female"
	GenderMale    Gender = "male"
	GenderUnknown Gender = "unknown"
)

// Known reports whether the gender can enter a gender comparison.
func (g Gender) Known() bool {
	return g == GenderFemale || g == GenderMale
}

// Indicator returns the regression dummy: 1 for female, 0 for male.
// It must only be called on a known gender.
func (g Gender) Indicator() float64 {
	if g == GenderFemale {
		return 1
	}
	return 0
}

// ParseGender accepts the spellings found in label tables and override files,
// including the gender-guesser categories.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "female", "f", "mostly_female", "woman", "w":
		return GenderFemale, nil
	case "male", "m", "mostly_male", "man":
		return GenderMale, nil
	case "unknown", "andy", "u", "":
		return GenderUnknown, nil
	default:
		return GenderUnknown, fmt.Errorf("invalid gender %q", s)
	}
}

// LabelSource records where a label came from.
type LabelSource string

const (
	SourceInferred          LabelSource = "inferred"
	SourceManual            LabelSource = "manual"
	SourceLookupUnavailable LabelSource = "lookup_unavailable"
	SourceNoResult          LabelSource = "no_result"
)

// ParseLabelSource validates a source column value.
func ParseLabelSource(s string) (LabelSource, error) {
	switch src := LabelSource(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceInferred, SourceManual, SourceLookupUnavailable, SourceNoResult:
		return src, nil
	default:
		return "", fmt.Errorf("invalid label source %q", s)
	}
}

// NameGenderLabel maps one normalized first name to a gender.
type NameGenderLabel struct {
	Name       string
	Gender     Gender
	Source     LabelSource
	Confidence float64
	Count      int
}

// LabelTable is the name -> label mapping with a secondary loose index used
// for punctuation-insensitive joins.
type LabelTable struct {
	labels map[string]NameGenderLabel
	loose  map[string][]string
	keyFn  func(string) string
}

// NewLabelTable creates an empty table. looseKey derives the secondary join
// key from a normalized name; nil disables loose matching.
func NewLabelTable(looseKey func(string) string) *LabelTable {
	return &LabelTable{
		labels: make(map[string]NameGenderLabel),
		loose:  make(map[string][]string),
		keyFn:  looseKey,
	}
}

// Set inserts or replaces a label.
func (t *LabelTable) Set(label NameGenderLabel) {
	if _, exists := t.labels[label.Name]; !exists && t.keyFn != nil {
		lk := t.keyFn(label.Name)
		if lk != "" {
			t.loose[lk] = append(t.loose[lk], label.Name)
			sort.Strings(t.loose[lk])
		}
	}
	t.labels[label.Name] = label
}

// Lookup returns the label stored under an exact normalized key.
func (t *LabelTable) Lookup(name string) (NameGenderLabel, bool) {
	l, ok := t.labels[name]
	return l, ok
}

// LookupLoose resolves a loose key. It returns the candidate keys so callers
// can tell a miss from an ambiguous match.
func (t *LabelTable) LookupLoose(looseKey string) (NameGenderLabel, []string) {
	keys := t.loose[looseKey]
	if len(keys) != 1 {
		return NameGenderLabel{}, keys
	}
	return t.labels[keys[0]], keys
}

// Len returns the number of labels.
func (t *LabelTable) Len() int {
	return len(t.labels)
}

// Names returns the label keys in sorted order.
func (t *LabelTable) Names() []string {
	names := make([]string, 0, len(t.labels))
	for name := range t.labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Labels returns all labels sorted by name.
func (t *LabelTable) Labels() []NameGenderLabel {
	out := make([]NameGenderLabel, 0, len(t.labels))
	for _, name := range t.Names() {
		out = append(out, t.labels[name])
	}
	return out
}
