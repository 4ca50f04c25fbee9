// pkg/labeler/inferrer.go
package labeler

import (
	"context"
	"math"

	"github.com/David-Botos/qguide-analysis/pkg/model"
)

// Default classification cutoffs. A name is female when at least 70% of the
// source's observations are female, male when at most 30% are, and unknown
// in between. An exact 50/50 split is always unknown.
const (
	FemaleThreshold = 0.70
	MaleThreshold   = 0.30
	MinCount        = 1
)

// Inference is the raw answer of a name -> gender source.
type Inference struct {
	ProbabilityFemale float64
	Count             int
	Found             bool
}

// Inferrer answers name -> gender queries. Implementations must be safe to
// call sequentially with normalized names.
type Inferrer interface {
	Infer(ctx context.Context, name string) (Inference, error)
}

// Thresholds holds the cutoffs used by Classify.
type Thresholds struct {
	Female   float64
	Male     float64
	MinCount int
}

// DefaultThresholds returns the documented cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{Female: FemaleThreshold, Male: MaleThreshold, MinCount: MinCount}
}

// Classify turns an inference into a gender category and the confidence of
// that category.
func (t Thresholds) Classify(inf Inference) (model.Gender, float64) {
	if !inf.Found || inf.Count < t.MinCount || math.IsNaN(inf.ProbabilityFemale) {
		return model.GenderUnknown, 0
	}

	p := math.Min(math.Max(inf.ProbabilityFemale, 0), 1)
	switch {
	case p == 0.5:
		return model.GenderUnknown, 0.5
	case p >= t.Female:
		return model.GenderFemale, p
	case p <= t.Male:
		return model.GenderMale, 1 - p
	default:
		return model.GenderUnknown, math.Max(p, 1-p)
	}
}
