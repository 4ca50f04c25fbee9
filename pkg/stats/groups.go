// pkg/stats/groups.go
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/David-Botos/qguide-analysis/pkg/model"
)

// Describe summarizes one group. Dispersion and the interval need at least
// two observations and are NaN otherwise.
func Describe(group string, values []float64) model.GroupStats {
	g := model.GroupStats{
		Group:   group,
		N:       len(values),
		Mean:    math.NaN(),
		StdDev:  math.NaN(),
		StdErr:  math.NaN(),
		CI95Low: math.NaN(),
		CI95Hi:  math.NaN(),
	}
	if g.N == 0 {
		return g
	}

	g.Mean = stat.Mean(values, nil)
	if g.N < 2 {
		return g
	}

	g.StdDev = stat.StdDev(values, nil)
	g.StdErr = g.StdDev / math.Sqrt(float64(g.N))
	half := tCritical(float64(g.N-1)) * g.StdErr
	g.CI95Low = g.Mean - half
	g.CI95Hi = g.Mean + half
	return g
}

// CompareGroups contrasts female and male values of one outcome with
// Welch's unequal-variance t-test. Difference is female minus male.
func CompareGroups(outcome string, female, male []float64) model.GroupComparison {
	c := model.GroupComparison{
		Outcome: outcome,
		Female:  Describe(string(model.GenderFemale), female),
		Male:    Describe(string(model.GenderMale), male),
		TStat:   math.NaN(),
		DF:      math.NaN(),
		PValue:  math.NaN(),
		CI95Low: math.NaN(),
		CI95Hi:  math.NaN(),
	}
	c.Difference = c.Female.Mean - c.Male.Mean

	if c.Female.N < 2 || c.Male.N < 2 {
		c.Err = "each group needs at least two observations for a test"
		return c
	}

	vf := c.Female.StdDev * c.Female.StdDev / float64(c.Female.N)
	vm := c.Male.StdDev * c.Male.StdDev / float64(c.Male.N)
	se := math.Sqrt(vf + vm)
	if se == 0 {
		c.Err = "both groups have zero variance"
		return c
	}

	c.TStat = c.Difference / se
	c.DF = (vf + vm) * (vf + vm) /
		(vf*vf/float64(c.Female.N-1) + vm*vm/float64(c.Male.N-1))

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: c.DF}
	c.PValue = 2 * dist.Survival(math.Abs(c.TStat))
	half := dist.Quantile(0.975) * se
	c.CI95Low = c.Difference - half
	c.CI95Hi = c.Difference + half
	return c
}

func tCritical(df float64) float64 {
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(0.975)
}
