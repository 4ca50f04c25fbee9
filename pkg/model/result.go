// pkg/model/result.go
package model

// Coefficient is one estimated regression term.
type Coefficient struct {
	Term     string  `json:"term"`
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_error"`
	TStat    float64 `json:"t"`
	PValue   float64 `json:"p_value"`
}

// ModelResult is the output of one regression fit. Err is set when the fit
// failed; the remaining fields are then zero.
type ModelResult struct {
	Name           string        `json:"name"`
	Outcome        string        `json:"outcome"`
	Terms          []Coefficient `json:"terms"`
	N              int           `json:"n"`
	K              int           `json:"k"`
	RSquared       float64       `json:"r_squared"`
	AdjRSquared    float64       `json:"adj_r_squared"`
	ResidualStdErr float64       `json:"residual_std_error"`
	Err            string        `json:"error,omitempty"`
}

// OK reports whether the model was fitted.
func (r ModelResult) OK() bool {
	return r.Err == ""
}

// Coefficient returns the named term, if present.
func (r ModelResult) Coefficient(term string) (Coefficient, bool) {
	for _, c := range r.Terms {
		if c.Term == term {
			return c, true
		}
	}
	return Coefficient{}, false
}

// GroupStats summarizes one group of an outcome.
type GroupStats struct {
	Group   string  `json:"group"`
	N       int     `json:"n"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"sd"`
	StdErr  float64 `json:"se"`
	CI95Low float64 `json:"ci95_low"`
	CI95Hi  float64 `json:"ci95_high"`
}

// GroupComparison compares female and male lecturers on one outcome.
// Difference is female minus male; the test is Welch's t-test.
type GroupComparison struct {
	Outcome    string     `json:"outcome"`
	Female     GroupStats `json:"female"`
	Male       GroupStats `json:"male"`
	Difference float64    `json:"difference"`
	TStat      float64    `json:"t"`
	DF         float64    `json:"df"`
	PValue     float64    `json:"p_value"`
	CI95Low    float64    `json:"ci95_low"`
	CI95Hi     float64    `json:"ci95_high"`
	Err        string     `json:"error,omitempty"`
}
