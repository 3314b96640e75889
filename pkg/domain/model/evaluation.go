package model

import (
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

// EvaluationStandard is a gold-standard extraction selected as a comparison
// target for a new extraction. Transient per request.
type EvaluationStandard struct {
	CaseID          types.RecordID
	GoldStandard    ExtractionPayload
	SourceText      string
	SimilarityScore float64
	Provenance      types.StandardProvenance
}

// EvaluationScore is the outcome of one evaluation call (or one aggregation
// of several).
type EvaluationScore struct {
	OverallScore    float64            `json:"overall_score"`
	CategoryScores  map[string]float64 `json:"category_scores,omitempty"`
	ConfidenceLevel string             `json:"confidence_level"`
	Reasoning       string             `json:"reasoning,omitempty"`
}

// EvaluationSummary records how an extraction was evaluated. It is attached
// to the extraction record before persistence and immutable once written.
type EvaluationSummary struct {
	Strategy        types.EvaluationStrategy `json:"strategy"`
	StandardsUsed   int                      `json:"standards_used"`
	BestSimilarity  float64                  `json:"best_similarity"`
	AggregatedScore float64                  `json:"aggregated_score"`
	// ConfidenceHint is the LLM-reported confidence level from the
	// evaluation call (single result or aggregate), one of high/medium/low.
	ConfidenceHint string `json:"confidence_hint,omitempty"`
}

// ConfidenceDecision is derived deterministically from an EvaluationSummary.
type ConfidenceDecision struct {
	Tier           types.ConfidenceTier `json:"tier"`
	ShouldPersist  bool                 `json:"should_persist"`
	ReviewRequired bool                 `json:"review_required"`
}

// ConfidenceRule is one row of the confidence cascade: all set conditions
// must hold for the rule to fire.
type ConfidenceRule struct {
	// LLMConfidence, when non-empty, must match the evaluation's
	// LLM-reported confidence level.
	LLMConfidence string `toml:"llm_confidence"`
	// MinScore is the minimum aggregated overall score; negative disables
	// the condition.
	MinScore float64 `toml:"min_score"`
	// MinSimilarity is the minimum best-standard similarity; negative
	// disables the condition.
	MinSimilarity float64 `toml:"min_similarity"`
	// Tier is assigned when the rule fires.
	Tier types.ConfidenceTier `toml:"tier"`
}

// ConfidenceRules is the ordered cascade evaluated first-match-wins. The
// structure (numeric override, hybrid, LLM-led, numeric fallback) is the
// contract; the thresholds are tunable configuration.
type ConfidenceRules struct {
	Rules []ConfidenceRule `toml:"rule"`
}

// DefaultConfidenceRules returns the hand-tuned cascade used when no
// override is configured.
func DefaultConfidenceRules() ConfidenceRules {
	return ConfidenceRules{
		Rules: []ConfidenceRule{
			// Numeric override: very high scores trump a conservative LLM.
			{MinScore: 0.9, MinSimilarity: 0.9, Tier: types.ConfidenceHigh},
			// LLM confidence with numeric validation.
			{LLMConfidence: "high", MinScore: 0.8, MinSimilarity: 0.7, Tier: types.ConfidenceHigh},
			{LLMConfidence: "medium", MinScore: 0.6, MinSimilarity: 0.5, Tier: types.ConfidenceMedium},
			// High LLM confidence despite sparse gold-standard coverage.
			{LLMConfidence: "high", MinScore: -1, MinSimilarity: 0.8, Tier: types.ConfidenceHigh},
			// Numeric fallback for a conservative LLM.
			{MinScore: 0.85, MinSimilarity: 0.8, Tier: types.ConfidenceHigh},
			{MinScore: 0.7, MinSimilarity: 0.6, Tier: types.ConfidenceMedium},
		},
	}
}

// Resolve walks the cascade and returns the confidence decision for the
// given evaluation outcome. Summaries without any evaluation must be mapped
// to no_evaluation upstream; this function assumes an evaluation happened.
func (r ConfidenceRules) Resolve(summary *EvaluationSummary) ConfidenceDecision {
	tier := types.ConfidenceLow
	for _, rule := range r.Rules {
		if rule.LLMConfidence != "" && rule.LLMConfidence != summary.ConfidenceHint {
			continue
		}
		if rule.MinScore >= 0 && summary.AggregatedScore < rule.MinScore {
			continue
		}
		if rule.MinSimilarity >= 0 && summary.BestSimilarity < rule.MinSimilarity {
			continue
		}
		tier = rule.Tier
		break
	}

	return ConfidenceDecision{
		Tier:           tier,
		ShouldPersist:  tier.ShouldPersist(),
		ReviewRequired: tier.ReviewRequired(),
	}
}
