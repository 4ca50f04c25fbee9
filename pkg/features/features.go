// Package features derives model covariates from cleaned analysis rows and
// assembles regression design matrices.
package features

import (
	"math"

	"github.com/David-Botos/qguide-analysis/pkg/dataset"
	"github.com/David-Botos/qguide-analysis/pkg/model"
)

// Build fills the derived covariates of each row in place and returns the
// slice for chaining. ideology may be nil.
func Build(rows []model.AnalysisRow, ideology dataset.Ideology) []model.AnalysisRow {
	deptMeans := departmentMeanEnrollment(rows)

	for i := range rows {
		r := &rows[i]
		r.Female = r.Gender.Indicator()
		r.LogEnrollment = nil
		r.ResponseRate = nil
		r.DeptMeanEnrollment = nil
		r.Ideology = nil

		if r.Enrollment != nil && *r.Enrollment > 0 {
			v := math.Log(float64(*r.Enrollment))
			r.LogEnrollment = &v

			if r.Responses != nil {
				rate := float64(*r.Responses) / float64(*r.Enrollment)
				r.ResponseRate = &rate
			}
		}

		if mean, ok := deptMeans[r.Department]; ok && r.Department != "" {
			v := mean
			r.DeptMeanEnrollment = &v
		}

		if ideology != nil && r.Department != "" {
			if v, ok := ideology.Lookup(r.Department); ok {
				r.Ideology = &v
			}
		}
	}

	return rows
}

// departmentMeanEnrollment averages enrollment over rows that report it
func departmentMeanEnrollment(rows []model.AnalysisRow) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range rows {
		if r.Enrollment == nil || r.Department == "" {
			continue
		}
		sums[r.Department] += float64(*r.Enrollment)
		counts[r.Department]++
	}

	means := make(map[string]float64, len(sums))
	for dept, sum := range sums {
		means[dept] = sum / float64(counts[dept])
	}
	return means
}
