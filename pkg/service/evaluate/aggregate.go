package evaluate

import (
	"sort"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

// scoredEvaluation pairs an evaluation result with the similarity of the
// standard it was judged against.
type scoredEvaluation struct {
	Score      model.EvaluationScore
	Similarity float64
}

// Aggregate combines per-standard evaluation scores into one overall score.
// The confidence level of the aggregate is the level reported by the
// evaluation closest to the aggregated score.
func Aggregate(evaluations []scoredEvaluation, method types.AggregationMethod) model.EvaluationScore {
	if len(evaluations) == 0 {
		return model.EvaluationScore{ConfidenceLevel: "low"}
	}
	if len(evaluations) == 1 {
		return evaluations[0].Score
	}

	var overall float64
	switch method {
	case types.AggregationAverage:
		for _, e := range evaluations {
			overall += e.Score.OverallScore
		}
		overall /= float64(len(evaluations))

	case types.AggregationRobust:
		scores := make([]float64, 0, len(evaluations))
		for _, e := range evaluations {
			scores = append(scores, e.Score.OverallScore)
		}
		sort.Float64s(scores)
		// Drop the extremes only when enough samples remain.
		if len(scores) >= 5 {
			scores = scores[1 : len(scores)-1]
		}
		for _, s := range scores {
			overall += s
		}
		overall /= float64(len(scores))

	default: // weighted
		var totalWeight float64
		for _, e := range evaluations {
			totalWeight += e.Similarity
		}
		if totalWeight > 0 {
			for _, e := range evaluations {
				overall += e.Score.OverallScore * e.Similarity
			}
			overall /= totalWeight
		}
	}

	return model.EvaluationScore{
		OverallScore:    overall,
		ConfidenceLevel: nearestConfidence(evaluations, overall),
	}
}

func nearestConfidence(evaluations []scoredEvaluation, overall float64) string {
	best := evaluations[0]
	bestDelta := absFloat(best.Score.OverallScore - overall)
	for _, e := range evaluations[1:] {
		if d := absFloat(e.Score.OverallScore - overall); d < bestDelta {
			best = e
			bestDelta = d
		}
	}
	return best.Score.ConfidenceLevel
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
