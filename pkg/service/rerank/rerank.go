// Package rerank re-orders retrieval candidates with a cross-scoring model.
// Reranking is a quality refinement, never a gate: when no scorer is
// available or scoring fails, the original retrieval order passes through.
package rerank

import (
	"context"
	"log/slog"
	"sort"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/utils/logging"
)

// Combined score weights. The cross-scorer dominates because it sees the
// query and document together.
const (
	similarityWeight = 0.3
	scorerWeight     = 0.7
)

// Scorer judges the relevance of a document to a query in [0,1].
type Scorer interface {
	Score(ctx context.Context, query, document string) (float64, error)
}

// Rerank re-orders candidates by combined score and returns the top topK.
// With a nil scorer the first topK candidates are returned unchanged.
func Rerank(ctx context.Context, scorer Scorer, query string, candidates []model.ContextCandidate, topK int) []model.ContextCandidate {
	if topK <= 0 {
		return []model.ContextCandidate{}
	}
	if len(candidates) == 0 {
		return candidates
	}

	if scorer == nil {
		if len(candidates) > topK {
			return candidates[:topK]
		}
		return candidates
	}

	type scored struct {
		candidate model.ContextCandidate
		combined  float64
	}

	logger := logging.From(ctx)
	results := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		score, err := scorer.Score(ctx, query, c.Text)
		if err != nil {
			// A failed score falls back to the retrieval similarity alone.
			logger.Warn("rerank scoring failed, keeping retrieval order for candidate",
				slog.Any("recordID", c.RecordID), slog.Any("error", err))
			score = c.SimilarityScore
		}
		results = append(results, scored{
			candidate: c,
			combined:  c.SimilarityScore*similarityWeight + score*scorerWeight,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].combined > results[j].combined
	})

	if len(results) > topK {
		results = results[:topK]
	}

	out := make([]model.ContextCandidate, 0, len(results))
	for _, r := range results {
		c := r.candidate
		c.SimilarityScore = r.combined
		out = append(out, c)
	}
	return out
}
