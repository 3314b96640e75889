package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

func TestConfidenceRulesResolve(t *testing.T) {
	rules := model.DefaultConfidenceRules()

	summary := func(hint string, score, similarity float64) *model.EvaluationSummary {
		return &model.EvaluationSummary{
			Strategy:        types.StrategySingle,
			StandardsUsed:   1,
			BestSimilarity:  similarity,
			AggregatedScore: score,
			ConfidenceHint:  hint,
		}
	}

	cases := []struct {
		name    string
		summary *model.EvaluationSummary
		tier    types.ConfidenceTier
	}{
		{"numeric override beats conservative LLM", summary("low", 0.95, 0.95), types.ConfidenceHigh},
		{"high LLM hint with numeric validation", summary("high", 0.85, 0.75), types.ConfidenceHigh},
		{"medium LLM hint with numeric validation", summary("medium", 0.65, 0.55), types.ConfidenceMedium},
		{"high hint with strong similarity but weak score", summary("high", 0.2, 0.85), types.ConfidenceHigh},
		{"numeric fallback to high", summary("low", 0.87, 0.85), types.ConfidenceHigh},
		{"numeric fallback to medium", summary("low", 0.75, 0.65), types.ConfidenceMedium},
		{"nothing matches falls to low", summary("low", 0.4, 0.3), types.ConfidenceLow},
		{"high hint without numeric support falls through", summary("high", 0.5, 0.5), types.ConfidenceLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := rules.Resolve(tc.summary)
			gt.Value(t, decision.Tier).Equal(tc.tier)
			gt.Bool(t, decision.ShouldPersist).Equal(tc.tier == types.ConfidenceHigh)
			gt.Bool(t, decision.ReviewRequired).Equal(tc.tier != types.ConfidenceHigh)
		})
	}
}

func TestPayloadToText(t *testing.T) {
	p := &model.ExtractionPayload{
		FollowUpTasks: []model.FollowUpTask{
			{Description: "Schedule blood panel", Priority: "high"},
		},
		MedicationInstructions: []model.MedicationInstruction{
			{MedicationName: "metformin", Dosage: "500mg", Frequency: "twice daily"},
		},
	}

	text := p.ToText()
	gt.Bool(t, len(text) > 0).True()
	gt.Value(t, p.TotalItems()).Equal(2)
	gt.Bool(t, p.IsEmpty()).False()
	gt.Bool(t, (&model.ExtractionPayload{}).IsEmpty()).True()
}
