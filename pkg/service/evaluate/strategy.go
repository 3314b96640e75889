// Package evaluate scores a fresh extraction against gold-standard
// extractions from similar past cases. How many standards are consulted
// adapts to how similar the best available case is.
package evaluate

import (
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

// Strategy selection thresholds over the best standard similarity.
const (
	singleThreshold = 0.8
	fewThreshold    = 0.6

	fewStandards      = 3
	multipleStandards = 5
)

// SelectStrategy decides how many standards to evaluate against. A highly
// similar case is authoritative on its own; weaker matches are compensated
// with breadth.
func SelectStrategy(bestSimilarity float64, available int) (types.EvaluationStrategy, int) {
	if available <= 0 {
		return types.StrategyNone, 0
	}

	switch {
	case bestSimilarity >= singleThreshold:
		return types.StrategySingle, 1
	case bestSimilarity >= fewThreshold:
		return types.StrategyFew, minInt(fewStandards, available)
	default:
		return types.StrategyMultiple, minInt(multipleStandards, available)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
