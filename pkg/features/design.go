// pkg/features/design.go
package features

import (
	"fmt"
	"sort"

	"github.com/David-Botos/qguide-analysis/pkg/model"
)

// Outcomes
const (
	OutcomeLecturerScore = "lecturer_score_mean"
	OutcomeCourseScore   = "course_score_mean"
)

// Predictor terms
const (
	TermIntercept          = "(Intercept)"
	TermFemale             = "female"
	TermLogEnrollment      = "log_enrollment"
	TermResponseRate       = "response_rate"
	TermDeptMeanEnrollment = "dept_mean_enrollment"
	TermIdeology           = "ideology"
)

// Spec names one regression: outcome ~ intercept + terms [+ department FE]
type Spec struct {
	Name             string
	Outcome          string
	Terms            []string
	DeptFixedEffects bool
	// NeedsIdeology marks specs that only run when an ideology file is loaded
	NeedsIdeology bool
}

// Matrix is a dense design for one spec
type Matrix struct {
	Y        []float64
	X        [][]float64 // row-major, first column is the intercept
	Names    []string
	Excluded int // rows dropped for a missing value of a requested term
	// Reference is the omitted department when fixed effects are on
	Reference string
}

// Outcome returns the outcome value of a row
func Outcome(r model.AnalysisRow, outcome string) (float64, error) {
	switch outcome {
	case OutcomeLecturerScore:
		return r.LecturerScore, nil
	case OutcomeCourseScore:
		return r.CourseScore, nil
	default:
		return 0, fmt.Errorf("unknown outcome %q", outcome)
	}
}

// Value returns a predictor value of a row, false when it is missing
func Value(r model.AnalysisRow, term string) (float64, bool, error) {
	switch term {
	case TermFemale:
		return r.Female, true, nil
	case TermLogEnrollment:
		return deref(r.LogEnrollment)
	case TermResponseRate:
		return deref(r.ResponseRate)
	case TermDeptMeanEnrollment:
		return deref(r.DeptMeanEnrollment)
	case TermIdeology:
		return deref(r.Ideology)
	default:
		return 0, false, fmt.Errorf("unknown term %q", term)
	}
}

// Design builds the matrix for spec. Rows missing any requested term, or
// missing a department when fixed effects are requested, are excluded from
// this model only. Department dummies use treatment coding with the
// alphabetically first department as reference.
func Design(rows []model.AnalysisRow, spec Spec) (*Matrix, error) {
	if _, err := Outcome(model.AnalysisRow{}, spec.Outcome); err != nil {
		return nil, err
	}
	for _, term := range spec.Terms {
		if _, _, err := Value(model.AnalysisRow{}, term); err != nil {
			return nil, err
		}
	}

	type kept struct {
		y      float64
		values []float64
		dept   string
	}

	var included []kept
	m := &Matrix{}
	for _, r := range rows {
		values := make([]float64, len(spec.Terms))
		complete := true
		for j, term := range spec.Terms {
			v, ok, _ := Value(r, term)
			if !ok {
				complete = false
				break
			}
			values[j] = v
		}
		if spec.DeptFixedEffects && r.Department == "" {
			complete = false
		}
		if !complete {
			m.Excluded++
			continue
		}

		y, _ := Outcome(r, spec.Outcome)
		included = append(included, kept{y: y, values: values, dept: r.Department})
	}

	var depts []string
	if spec.DeptFixedEffects {
		seen := make(map[string]bool)
		for _, k := range included {
			if !seen[k.dept] {
				seen[k.dept] = true
				depts = append(depts, k.dept)
			}
		}
		sort.Strings(depts)
		if len(depts) > 0 {
			m.Reference = depts[0]
			depts = depts[1:]
		}
	}

	m.Names = append([]string{TermIntercept}, spec.Terms...)
	for _, d := range depts {
		m.Names = append(m.Names, DeptTerm(d))
	}

	m.Y = make([]float64, len(included))
	m.X = make([][]float64, len(included))
	for i, k := range included {
		row := make([]float64, 0, len(m.Names))
		row = append(row, 1)
		row = append(row, k.values...)
		for _, d := range depts {
			if k.dept == d {
				row = append(row, 1)
			} else {
				row = append(row, 0)
			}
		}
		m.Y[i] = k.y
		m.X[i] = row
	}

	return m, nil
}

// DeptTerm is the coefficient name of a department dummy
func DeptTerm(department string) string {
	return "dept[" + department + "]"
}

func deref(v *float64) (float64, bool, error) {
	if v == nil {
		return 0, false, nil
	}
	return *v, true, nil
}
