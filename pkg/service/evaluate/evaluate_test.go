package evaluate_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
	"github.com/medscribe-lab/medscribe/pkg/service/evaluate"
)

func TestSelectStrategy(t *testing.T) {
	cases := []struct {
		name       string
		similarity float64
		available  int
		strategy   types.EvaluationStrategy
		count      int
	}{
		{"near-identical case uses a single standard", 0.85, 4, types.StrategySingle, 1},
		{"exactly at single threshold", 0.8, 2, types.StrategySingle, 1},
		{"moderate similarity uses a few standards", 0.65, 4, types.StrategyFew, 3},
		{"few capped by availability", 0.65, 2, types.StrategyFew, 2},
		{"weak similarity goes broad", 0.2, 7, types.StrategyMultiple, 5},
		{"broad capped by availability", 0.2, 2, types.StrategyMultiple, 2},
		{"no standards means no evaluation", 0.9, 0, types.StrategyNone, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			strategy, count := evaluate.SelectStrategy(tc.similarity, tc.available)
			gt.Value(t, strategy).Equal(tc.strategy)
			gt.Number(t, count).Equal(tc.count)
		})
	}
}

// fakeEvaluator returns canned scores keyed by standard case ID.
type fakeEvaluator struct {
	scores map[types.RecordID]model.EvaluationScore
	errs   map[types.RecordID]error
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, payload *model.ExtractionPayload, standard *model.EvaluationStandard) (*model.EvaluationScore, error) {
	if err, ok := f.errs[standard.CaseID]; ok {
		return nil, err
	}
	score := f.scores[standard.CaseID]
	return &score, nil
}

func standard(id string, similarity float64) *model.EvaluationStandard {
	return &model.EvaluationStandard{
		CaseID:          types.RecordID(id),
		SimilarityScore: similarity,
		Provenance:      types.ProvenanceKnownCase,
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	payload := &model.ExtractionPayload{}

	t.Run("single strategy uses only the best standard", func(t *testing.T) {
		fake := &fakeEvaluator{scores: map[types.RecordID]model.EvaluationScore{
			"best": {OverallScore: 0.92, ConfidenceLevel: "high"},
		}}
		svc, err := evaluate.New(nil, evaluate.WithEvaluator(fake))
		gt.NoError(t, err).Required()

		summary, err := svc.Run(ctx, payload, []*model.EvaluationStandard{
			standard("best", 0.95),
			standard("other", 0.4),
		})
		gt.NoError(t, err).Required()

		gt.Value(t, summary.Strategy).Equal(types.StrategySingle)
		gt.Number(t, summary.StandardsUsed).Equal(1)
		gt.Number(t, summary.BestSimilarity).Equal(0.95)
		gt.Number(t, summary.AggregatedScore).Equal(0.92)
		gt.Value(t, summary.ConfidenceHint).Equal("high")
	})

	t.Run("weighted aggregation favors similar standards", func(t *testing.T) {
		fake := &fakeEvaluator{scores: map[types.RecordID]model.EvaluationScore{
			"a": {OverallScore: 0.9, ConfidenceLevel: "high"},
			"b": {OverallScore: 0.3, ConfidenceLevel: "low"},
		}}
		svc, err := evaluate.New(nil, evaluate.WithEvaluator(fake))
		gt.NoError(t, err).Required()

		summary, err := svc.Run(ctx, payload, []*model.EvaluationStandard{
			standard("a", 0.7),
			standard("b", 0.1),
		})
		gt.NoError(t, err).Required()

		gt.Value(t, summary.Strategy).Equal(types.StrategyFew)
		gt.Number(t, summary.StandardsUsed).Equal(2)
		// (0.9*0.7 + 0.3*0.1) / 0.8 = 0.825
		gt.Number(t, summary.AggregatedScore).Greater(0.82)
		gt.Number(t, summary.AggregatedScore).Less(0.83)
	})

	t.Run("average aggregation", func(t *testing.T) {
		fake := &fakeEvaluator{scores: map[types.RecordID]model.EvaluationScore{
			"a": {OverallScore: 0.75, ConfidenceLevel: "high"},
			"b": {OverallScore: 0.25, ConfidenceLevel: "low"},
		}}
		svc, err := evaluate.New(nil,
			evaluate.WithEvaluator(fake),
			evaluate.WithAggregation(types.AggregationAverage))
		gt.NoError(t, err).Required()

		summary, err := svc.Run(ctx, payload, []*model.EvaluationStandard{
			standard("a", 0.7),
			standard("b", 0.65),
		})
		gt.NoError(t, err).Required()
		gt.Number(t, summary.AggregatedScore).Equal(0.5)
	})

	t.Run("robust aggregation drops extremes with five standards", func(t *testing.T) {
		fake := &fakeEvaluator{scores: map[types.RecordID]model.EvaluationScore{
			"a": {OverallScore: 0.0, ConfidenceLevel: "low"},
			"b": {OverallScore: 0.5, ConfidenceLevel: "medium"},
			"c": {OverallScore: 0.5, ConfidenceLevel: "medium"},
			"d": {OverallScore: 0.5, ConfidenceLevel: "medium"},
			"e": {OverallScore: 1.0, ConfidenceLevel: "high"},
		}}
		svc, err := evaluate.New(nil,
			evaluate.WithEvaluator(fake),
			evaluate.WithAggregation(types.AggregationRobust))
		gt.NoError(t, err).Required()

		summary, err := svc.Run(ctx, payload, []*model.EvaluationStandard{
			standard("a", 0.3), standard("b", 0.3), standard("c", 0.3),
			standard("d", 0.3), standard("e", 0.3),
		})
		gt.NoError(t, err).Required()

		gt.Value(t, summary.Strategy).Equal(types.StrategyMultiple)
		gt.Number(t, summary.AggregatedScore).Equal(0.5)
		gt.Value(t, summary.ConfidenceHint).Equal("medium")
	})

	t.Run("partial evaluation failures are tolerated", func(t *testing.T) {
		fake := &fakeEvaluator{
			scores: map[types.RecordID]model.EvaluationScore{
				"ok": {OverallScore: 0.7, ConfidenceLevel: "medium"},
			},
			errs: map[types.RecordID]error{
				"broken": fmt.Errorf("llm timeout"),
			},
		}
		svc, err := evaluate.New(nil, evaluate.WithEvaluator(fake))
		gt.NoError(t, err).Required()

		summary, err := svc.Run(ctx, payload, []*model.EvaluationStandard{
			standard("ok", 0.65),
			standard("broken", 0.62),
		})
		gt.NoError(t, err).Required()
		gt.Number(t, summary.StandardsUsed).Equal(1)
		gt.Number(t, summary.AggregatedScore).Equal(0.7)
	})

	t.Run("total evaluation failure is an error", func(t *testing.T) {
		fake := &fakeEvaluator{errs: map[types.RecordID]error{
			"broken": fmt.Errorf("llm down"),
		}}
		svc, err := evaluate.New(nil, evaluate.WithEvaluator(fake))
		gt.NoError(t, err).Required()

		_, err = svc.Run(ctx, payload, []*model.EvaluationStandard{standard("broken", 0.9)})
		gt.Value(t, err).NotNil()
	})

	t.Run("no standards yields none strategy", func(t *testing.T) {
		svc, err := evaluate.New(nil, evaluate.WithEvaluator(&fakeEvaluator{}))
		gt.NoError(t, err).Required()

		summary, err := svc.Run(ctx, payload, nil)
		gt.NoError(t, err).Required()
		gt.Value(t, summary.Strategy).Equal(types.StrategyNone)
		gt.Number(t, summary.StandardsUsed).Equal(0)
	})
}
