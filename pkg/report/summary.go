// pkg/report/summary.go
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/David-Botos/qguide-analysis/pkg/model"
)

// ModelStatus is the per-model line of the run summary
type ModelStatus struct {
	Name         string   `json:"name"`
	Outcome      string   `json:"outcome"`
	Status       string   `json:"status"`
	N            int      `json:"n"`
	RSquared     *float64 `json:"r_squared,omitempty"`
	FemaleEffect *float64 `json:"female_estimate,omitempty"`
	FemalePValue *float64 `json:"female_p_value,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// ComparisonStatus is the per-outcome group test line of the run summary
type ComparisonStatus struct {
	Outcome    string   `json:"outcome"`
	FemaleN    int      `json:"n_female"`
	MaleN      int      `json:"n_male"`
	FemaleMean *float64 `json:"female_mean,omitempty"`
	MaleMean   *float64 `json:"male_mean,omitempty"`
	Difference *float64 `json:"difference,omitempty"`
	PValue     *float64 `json:"p_value,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// RunSummary describes one pipeline run
type RunSummary struct {
	RunID          string             `json:"run_id"`
	Source         string             `json:"source"`
	StartTime      time.Time          `json:"start_time"`
	EndTime        time.Time          `json:"end_time"`
	Duration       string             `json:"duration"`
	Accounting     model.Accounting   `json:"accounting"`
	Balanced       bool               `json:"balanced"`
	LooseMatches   int                `json:"loose_matches"`
	MalformedCells int                `json:"malformed_cells"`
	DropReasons    map[string]int     `json:"drop_reasons"`
	Unresolved     []string           `json:"unresolved_names"`
	Comparisons    []ComparisonStatus `json:"group_tests"`
	Models         []ModelStatus      `json:"models"`
	Errors         map[string]int     `json:"errors"`
	// ErrorSamples holds the first few messages of each error category
	ErrorSamples map[string][]string `json:"error_samples"`
}

// NewRunSummary fills the derived sections from the run's results
func NewRunSummary(runID, source string, start, end time.Time, acct model.Accounting,
	comparisons []model.GroupComparison, models []model.ModelResult) *RunSummary {
	s := &RunSummary{
		RunID:        runID,
		Source:       source,
		StartTime:    start,
		EndTime:      end,
		Duration:     formatDuration(end.Sub(start)),
		Accounting:   acct,
		Balanced:     acct.Balanced(),
		DropReasons:  map[string]int{},
		Unresolved:   []string{},
		Errors:       map[string]int{},
		ErrorSamples: map[string][]string{},
	}

	for _, c := range comparisons {
		s.Comparisons = append(s.Comparisons, ComparisonStatus{
			Outcome:    c.Outcome,
			FemaleN:    c.Female.N,
			MaleN:      c.Male.N,
			FemaleMean: finite(c.Female.Mean),
			MaleMean:   finite(c.Male.Mean),
			Difference: finite(c.Difference),
			PValue:     finite(c.PValue),
			Error:      c.Err,
		})
	}

	for _, m := range models {
		status := ModelStatus{Name: m.Name, Outcome: m.Outcome, N: m.N, Status: "failed", Error: m.Err}
		if m.OK() {
			status.Status = "ok"
			status.RSquared = finite(m.RSquared)
			if c, ok := m.Coefficient("female"); ok {
				status.FemaleEffect = finite(c.Estimate)
				status.FemalePValue = finite(c.PValue)
			}
		}
		s.Models = append(s.Models, status)
	}

	return s
}

// WriteJSON writes the summary as indented JSON
func (s *RunSummary) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteText writes the human readable report
func (s *RunSummary) WriteText(w io.Writer) error {
	_, err := io.WriteString(w, s.Text())
	return err
}

// Text renders the human readable report
func (s *RunSummary) Text() string {
	a := s.Accounting
	raw := float64(a.RawRows)

	report := fmt.Sprintf(`
Analysis Report
===============
Run ID:                  %s
Source:                  %s
Duration:                %s
Start Time:              %s
End Time:                %s

Row Accounting
--------------
Raw Rows:                %d
Clean Rows:              %d (%.1f%%)
Missing Score:           %d (%.1f%%)
Unresolved Gender:       %d (%.1f%%)
Loose Matches:           %d
Malformed Cells:         %d
Balanced:                %t
`,
		s.RunID,
		s.Source,
		s.Duration,
		s.StartTime.Format(time.RFC3339),
		s.EndTime.Format(time.RFC3339),

		a.RawRows,
		a.CleanRows, getPercentage(float64(a.CleanRows), raw),
		a.DroppedMissingScore, getPercentage(float64(a.DroppedMissingScore), raw),
		a.DroppedUnresolvedGender, getPercentage(float64(a.DroppedUnresolvedGender), raw),
		s.LooseMatches,
		s.MalformedCells,
		s.Balanced,
	)

	if len(s.DropReasons) > 0 {
		report += "\nDrop Reasons\n------------\n"
		for _, reason := range sortedKeys(s.DropReasons) {
			report += fmt.Sprintf("- %s: %d\n", reason, s.DropReasons[reason])
		}
	}

	report += "\nGroup Tests\n-----------\n"
	for _, c := range s.Comparisons {
		if c.Error != "" {
			report += fmt.Sprintf("- %s: female n=%d, male n=%d, not tested (%s)\n",
				c.Outcome, c.FemaleN, c.MaleN, c.Error)
			continue
		}
		report += fmt.Sprintf("- %s: female %s (n=%d), male %s (n=%d), diff %s, p=%s\n",
			c.Outcome, text(c.FemaleMean), c.FemaleN, text(c.MaleMean), c.MaleN,
			text(c.Difference), text(c.PValue))
	}

	report += "\nModels\n------\n"
	for _, m := range s.Models {
		if m.Status != "ok" {
			report += fmt.Sprintf("- %s: failed (%s)\n", m.Name, m.Error)
			continue
		}
		report += fmt.Sprintf("- %s: n=%d, R2=%s, female %s (p=%s)\n",
			m.Name, m.N, text(m.RSquared), text(m.FemaleEffect), text(m.FemalePValue))
	}

	if len(s.Unresolved) > 0 {
		report += "\nUnresolved Names\n----------------\n"
		report += strings.Join(s.Unresolved, ", ") + "\n"
	}

	if len(s.Errors) > 0 {
		report += "\nError Distribution\n------------------\n"
		total := 0
		for _, count := range s.Errors {
			total += count
		}
		for _, category := range sortedKeys(s.Errors) {
			count := s.Errors[category]
			report += fmt.Sprintf("- %s: %d (%.1f%%)\n", category, count, getPercentage(float64(count), float64(total)))
			for _, sample := range s.ErrorSamples[category] {
				report += fmt.Sprintf("    %s\n", sample)
			}
		}
	}

	return report
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func text(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// getPercentage safely calculates a percentage, avoiding division by zero
func getPercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * 100
}
