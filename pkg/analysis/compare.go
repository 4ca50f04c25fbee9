// pkg/analysis/compare.go
package analysis

import (
	"github.com/David-Botos/qguide-analysis/pkg/features"
	"github.com/David-Botos/qguide-analysis/pkg/model"
	"github.com/David-Botos/qguide-analysis/pkg/stats"
)

// Compare runs the female versus male comparison for each outcome
func Compare(rows []model.AnalysisRow) []model.GroupComparison {
	out := make([]model.GroupComparison, 0, len(Outcomes))
	for _, outcome := range Outcomes {
		var female, male []float64
		for _, r := range rows {
			y, err := features.Outcome(r, outcome)
			if err != nil {
				continue
			}
			switch r.Gender {
			case model.GenderFemale:
				female = append(female, y)
			case model.GenderMale:
				male = append(male, y)
			}
		}
		out = append(out, stats.CompareGroups(outcome, female, male))
	}
	return out
}
