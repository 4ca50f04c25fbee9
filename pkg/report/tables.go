// pkg/report/tables.go
package report

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/David-Botos/qguide-analysis/pkg/model"
)

// WriteGroupMeans writes one row per outcome and gender group
func WriteGroupMeans(w io.Writer, comparisons []model.GroupComparison) error {
	return writeCSV(w, []string{"outcome", "group", "n", "mean", "sd", "se", "ci95_low", "ci95_high"},
		func(emit func([]string) error) error {
			for _, c := range comparisons {
				for _, g := range []model.GroupStats{c.Female, c.Male} {
					row := []string{
						c.Outcome, g.Group, strconv.Itoa(g.N),
						num(g.Mean), num(g.StdDev), num(g.StdErr), num(g.CI95Low), num(g.CI95Hi),
					}
					if err := emit(row); err != nil {
						return err
					}
				}
			}
			return nil
		})
}

// WriteGroupTests writes the female minus male difference per outcome
func WriteGroupTests(w io.Writer, comparisons []model.GroupComparison) error {
	return writeCSV(w, []string{"outcome", "n_female", "n_male", "difference", "t", "df", "p_value", "ci95_low", "ci95_high", "error"},
		func(emit func([]string) error) error {
			for _, c := range comparisons {
				row := []string{
					c.Outcome, strconv.Itoa(c.Female.N), strconv.Itoa(c.Male.N),
					num(c.Difference), num(c.TStat), num(c.DF), num(c.PValue), num(c.CI95Low), num(c.CI95Hi), c.Err,
				}
				if err := emit(row); err != nil {
					return err
				}
			}
			return nil
		})
}

// WriteCoefficients writes every estimated term of every fitted model
func WriteCoefficients(w io.Writer, models []model.ModelResult) error {
	return writeCSV(w, []string{"model", "outcome", "term", "estimate", "std_error", "t", "p_value"},
		func(emit func([]string) error) error {
			for _, m := range models {
				for _, c := range m.Terms {
					row := []string{m.Name, m.Outcome, c.Term, num(c.Estimate), num(c.StdErr), num(c.TStat), num(c.PValue)}
					if err := emit(row); err != nil {
						return err
					}
				}
			}
			return nil
		})
}

// WriteModelSummary writes one row per model, including failed ones
func WriteModelSummary(w io.Writer, models []model.ModelResult) error {
	return writeCSV(w, []string{"model", "outcome", "n", "k", "r_squared", "adj_r_squared", "residual_se", "status", "error"},
		func(emit func([]string) error) error {
			for _, m := range models {
				row := []string{m.Name, m.Outcome, strconv.Itoa(m.N), strconv.Itoa(m.K),
					"", "", "", "failed", m.Err}
				if m.OK() {
					row[4], row[5], row[6], row[7] = num(m.RSquared), num(m.AdjRSquared), num(m.ResidualStdErr), "ok"
				}
				if err := emit(row); err != nil {
					return err
				}
			}
			return nil
		})
}

func writeCSV(w io.Writer, header []string, body func(emit func([]string) error) error) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := body(writer.Write); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// num formats a statistic with six decimals; NaN and infinities are empty
func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
