// Package stats wraps the gonum routines used by the analysis: ordinary
// least squares with classical standard errors and Welch's two-sample test.
package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/David-Botos/qguide-analysis/pkg/model"
	"github.com/David-Botos/qguide-analysis/pkg/runerrors"
)

// maxCondition bounds the condition number of an acceptable design
const maxCondition = 1e12

// OLSResult holds one least-squares fit
type OLSResult struct {
	Terms          []model.Coefficient
	N              int
	K              int
	RSquared       float64
	AdjRSquared    float64
	ResidualStdErr float64
}

// OLS regresses y on x (row-major, one column per name). The first column is
// treated as the intercept when it is constant; every other column must vary.
func OLS(y []float64, x [][]float64, names []string) (*OLSResult, error) {
	n, k := len(y), len(names)

	if len(x) != n {
		return nil, &runerrors.ModelFitError{Reason: fmt.Sprintf("design has %d rows for %d observations", len(x), n)}
	}
	if k == 0 {
		return nil, &runerrors.ModelFitError{Reason: "no predictors"}
	}
	if n <= k {
		return nil, &runerrors.ModelFitError{Reason: fmt.Sprintf("%d observations for %d parameters", n, k)}
	}
	for i, row := range x {
		if len(row) != k {
			return nil, &runerrors.ModelFitError{Reason: fmt.Sprintf("row %d has %d columns, want %d", i, len(row), k)}
		}
	}

	data := make([]float64, 0, n*k)
	for _, row := range x {
		data = append(data, row...)
	}
	X := mat.NewDense(n, k, data)
	Y := mat.NewVecDense(n, append([]float64(nil), y...))

	for j := 1; j < k; j++ {
		if constant(mat.Col(nil, j, X)) {
			return nil, &runerrors.ModelFitError{Reason: fmt.Sprintf("predictor %s has zero variance", names[j])}
		}
	}
	if constant(y) {
		return nil, &runerrors.ModelFitError{Reason: "outcome has zero variance"}
	}

	var qr mat.QR
	qr.Factorize(X)
	if c := qr.Cond(); math.IsInf(c, 0) || math.IsNaN(c) || c > maxCondition {
		return nil, &runerrors.ModelFitError{Reason: fmt.Sprintf("design matrix is rank deficient (condition number %.3g)", c)}
	}

	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, Y); err != nil {
		return nil, &runerrors.ModelFitError{Reason: fmt.Sprintf("least squares solve failed: %v", err)}
	}

	var xtx, xtxInv mat.Dense
	xtx.Mul(X.T(), X)
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, &runerrors.ModelFitError{Reason: fmt.Sprintf("X'X is singular: %v", err)}
	}

	var fitted, resid mat.VecDense
	fitted.MulVec(X, &beta)
	resid.SubVec(Y, &fitted)

	rss := mat.Dot(&resid, &resid)
	mean := stat.Mean(y, nil)
	var tss float64
	for _, v := range y {
		tss += (v - mean) * (v - mean)
	}

	df := float64(n - k)
	sigma2 := rss / df
	if sigma2 <= 0 {
		return nil, &runerrors.ModelFitError{Reason: "residual variance is zero"}
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	res := &OLSResult{
		Terms:          make([]model.Coefficient, k),
		N:              n,
		K:              k,
		RSquared:       1 - rss/tss,
		ResidualStdErr: math.Sqrt(sigma2),
	}
	res.AdjRSquared = 1 - (1-res.RSquared)*float64(n-1)/df

	for j := 0; j < k; j++ {
		est := beta.AtVec(j)
		se := math.Sqrt(sigma2 * xtxInv.At(j, j))
		t := est / se
		res.Terms[j] = model.Coefficient{
			Term:     names[j],
			Estimate: est,
			StdErr:   se,
			TStat:    t,
			PValue:   2 * dist.Survival(math.Abs(t)),
		}
	}

	return res, nil
}

func constant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}
