// pkg/runerrors/collector.go
package runerrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Category groups the non-fatal and fatal conditions of a run
type Category int

const (
	CategoryNone Category = iota
	CategoryWarning
	CategoryMissingScore
	CategoryUnresolvedName
	CategoryLookupUnavailable
	CategoryModelFit
	CategoryMissingData
)

// String returns a string representation of the category
func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "None"
	case CategoryWarning:
		return "Warning"
	case CategoryMissingScore:
		return "MissingScore"
	case CategoryUnresolvedName:
		return "UnresolvedName"
	case CategoryLookupUnavailable:
		return "LookupUnavailable"
	case CategoryModelFit:
		return "ModelFit"
	case CategoryMissingData:
		return "MissingData"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// MarshalText lets categories key JSON maps by name
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Fatal reports whether the category aborts the whole run
func (c Category) Fatal() bool {
	return c == CategoryMissingData
}

// Record is a single error occurrence
type Record struct {
	Category  Category
	Subject   string // name, row or model the error refers to
	Err       error
	Message   string
	Timestamp time.Time
}

// NewRecord creates a record with the current timestamp
func NewRecord(err error, category Category) Record {
	r := Record{
		Category:  category,
		Err:       err,
		Timestamp: time.Now(),
	}
	if err != nil {
		r.Message = err.Error()
	}
	return r
}

// WithSubject attaches the thing the error refers to
func (r Record) WithSubject(subject string) Record {
	r.Subject = subject
	return r
}

// String returns a formatted error message
func (r Record) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", r.Category))
	if r.Subject != "" {
		sb.WriteString(fmt.Sprintf("%s: ", r.Subject))
	}
	sb.WriteString(r.Message)
	return sb.String()
}

// Categorize maps an error onto its category using the typed errors
func Categorize(err error) Category {
	if err == nil {
		return CategoryNone
	}

	var (
		missingData *MissingDataError
		unresolved  *UnresolvedNameError
		lookup      *LookupUnavailableError
		modelFit    *ModelFitError
	)
	switch {
	case errors.As(err, &missingData):
		return CategoryMissingData
	case errors.As(err, &lookup):
		return CategoryLookupUnavailable
	case errors.As(err, &unresolved):
		return CategoryUnresolvedName
	case errors.As(err, &modelFit):
		return CategoryModelFit
	default:
		return CategoryWarning
	}
}

// Collector aggregates non-fatal errors so they can be surfaced as counts in
// the run summary instead of being raised one by one
type Collector struct {
	logger     *zap.Logger
	counts     map[Category]int
	samples    map[Category][]Record
	maxSamples int
	mu         sync.Mutex
}

// NewCollector creates a collector keeping up to 5 samples per category
func NewCollector(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		logger:     logger,
		counts:     make(map[Category]int),
		samples:    make(map[Category][]Record),
		maxSamples: 5,
	}
}

// Add categorizes err and records it
func (c *Collector) Add(err error, subject string) Category {
	category := Categorize(err)
	c.Record(NewRecord(err, category).WithSubject(subject))
	return category
}

// Record saves an error occurrence
func (c *Collector) Record(record Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counts[record.Category]++

	if samples := c.samples[record.Category]; len(samples) < c.maxSamples {
		c.samples[record.Category] = append(samples, record)
	}

	switch {
	case record.Category.Fatal():
		c.logger.Error("Run error",
			zap.String("category", record.Category.String()),
			zap.String("subject", record.Subject),
			zap.String("error", record.Message))
	case record.Category == CategoryModelFit, record.Category == CategoryLookupUnavailable:
		c.logger.Warn("Run error",
			zap.String("category", record.Category.String()),
			zap.String("subject", record.Subject),
			zap.String("error", record.Message))
	default:
		c.logger.Debug("Run error",
			zap.String("category", record.Category.String()),
			zap.String("subject", record.Subject),
			zap.String("error", record.Message))
	}
}

// Count returns the number of errors recorded for a category
func (c *Collector) Count(category Category) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[category]
}

// Summary returns a copy of the per-category counts
func (c *Collector) Summary() map[Category]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	summary := make(map[Category]int, len(c.counts))
	for category, count := range c.counts {
		summary[category] = count
	}
	return summary
}

// Samples returns a copy of the sample records for each category
func (c *Collector) Samples() map[Category][]Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	samples := make(map[Category][]Record, len(c.samples))
	for category, records := range c.samples {
		cp := make([]Record, len(records))
		copy(cp, records)
		samples[category] = cp
	}
	return samples
}

// Lines renders the counts as sorted "Category: n" lines
func (c *Collector) Lines() []string {
	summary := c.Summary()
	lines := make([]string, 0, len(summary))
	for category, count := range summary {
		lines = append(lines, fmt.Sprintf("%s: %d", category, count))
	}
	sort.Strings(lines)
	return lines
}
