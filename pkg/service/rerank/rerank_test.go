package rerank_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
	"github.com/medscribe-lab/medscribe/pkg/service/rerank"
)

type fakeScorer struct {
	scores map[string]float64
	err    error
}

func (f *fakeScorer) Score(ctx context.Context, query, document string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.scores[document], nil
}

func candidate(text string, similarity float64) model.ContextCandidate {
	return model.ContextCandidate{
		RecordID:        model.NewRecordID(),
		OwnerID:         types.OwnerID("owner-rerank"),
		Text:            text,
		SimilarityScore: similarity,
	}
}

func TestRerank(t *testing.T) {
	ctx := context.Background()

	t.Run("nil scorer passes first topK through unchanged", func(t *testing.T) {
		candidates := []model.ContextCandidate{
			candidate("first", 0.9),
			candidate("second", 0.8),
			candidate("third", 0.7),
		}

		got := rerank.Rerank(ctx, nil, "query", candidates, 2)
		gt.Array(t, got).Length(2).Required()
		gt.Value(t, got[0].RecordID).Equal(candidates[0].RecordID)
		gt.Value(t, got[1].RecordID).Equal(candidates[1].RecordID)
		gt.Number(t, got[0].SimilarityScore).Equal(0.9)
	})

	t.Run("scorer can reorder candidates", func(t *testing.T) {
		candidates := []model.ContextCandidate{
			candidate("generic note", 0.9),
			candidate("clinically on point", 0.6),
		}
		scorer := &fakeScorer{scores: map[string]float64{
			"generic note":        0.1,
			"clinically on point": 0.95,
		}}

		got := rerank.Rerank(ctx, scorer, "query", candidates, 2)
		gt.Array(t, got).Length(2).Required()

		// combined: 0.9*0.3 + 0.1*0.7 = 0.34 vs 0.6*0.3 + 0.95*0.7 = 0.845
		gt.Value(t, got[0].Text).Equal("clinically on point")
		gt.Number(t, got[0].SimilarityScore).Greater(0.84)
		gt.Number(t, got[0].SimilarityScore).Less(0.85)
	})

	t.Run("scoring errors fall back to retrieval similarity", func(t *testing.T) {
		candidates := []model.ContextCandidate{
			candidate("alpha", 0.9),
			candidate("beta", 0.5),
		}
		scorer := &fakeScorer{err: fmt.Errorf("model unavailable")}

		got := rerank.Rerank(ctx, scorer, "query", candidates, 2)
		gt.Array(t, got).Length(2).Required()

		// With score = similarity, combined preserves the retrieval order.
		gt.Value(t, got[0].Text).Equal("alpha")
		gt.Value(t, got[1].Text).Equal("beta")
	})

	t.Run("topK larger than candidate count returns all", func(t *testing.T) {
		candidates := []model.ContextCandidate{candidate("only", 0.4)}
		got := rerank.Rerank(ctx, nil, "query", candidates, 10)
		gt.Array(t, got).Length(1)
	})

	t.Run("non-positive topK returns empty", func(t *testing.T) {
		candidates := []model.ContextCandidate{candidate("a", 0.4)}
		gt.Array(t, rerank.Rerank(ctx, nil, "query", candidates, 0)).Length(0)
	})
}
