package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
	"github.com/medscribe-lab/medscribe/pkg/utils/logging"
)

// Evaluator judges extraction payloads against gold standards with an LLM.
type Evaluator interface {
	// Evaluate judges the payload against one standard.
	Evaluate(ctx context.Context, payload *model.ExtractionPayload, standard *model.EvaluationStandard) (*model.EvaluationScore, error)
}

// Service is the gollem-backed Evaluator plus adaptive orchestration.
type Service struct {
	evaluator   Evaluator
	aggregation types.AggregationMethod
}

type Option func(*Service)

// WithAggregation overrides the default weighted aggregation.
func WithAggregation(method types.AggregationMethod) Option {
	return func(s *Service) {
		s.aggregation = method
	}
}

// WithEvaluator replaces the LLM evaluator, mainly for tests.
func WithEvaluator(e Evaluator) Option {
	return func(s *Service) {
		s.evaluator = e
	}
}

func New(llmClient gollem.LLMClient, options ...Option) (*Service, error) {
	s := &Service{
		aggregation: types.AggregationWeighted,
	}
	if llmClient != nil {
		s.evaluator = &llmEvaluator{llmClient: llmClient}
	}

	for _, opt := range options {
		opt(s)
	}

	if s.evaluator == nil {
		return nil, goerr.New("an LLM client or evaluator is required")
	}
	return s, nil
}

// Run evaluates the payload against the given standards using the strategy
// implied by the best similarity. Individual evaluation failures are skipped;
// the call fails only when every evaluation fails.
func (s *Service) Run(ctx context.Context, payload *model.ExtractionPayload, standards []*model.EvaluationStandard) (*model.EvaluationSummary, error) {
	if len(standards) == 0 {
		return &model.EvaluationSummary{Strategy: types.StrategyNone}, nil
	}

	ordered := make([]*model.EvaluationStandard, len(standards))
	copy(ordered, standards)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SimilarityScore > ordered[j].SimilarityScore
	})
	bestSimilarity := ordered[0].SimilarityScore

	strategy, count := SelectStrategy(bestSimilarity, len(ordered))

	logger := logging.From(ctx)
	evaluations := make([]scoredEvaluation, 0, count)
	var lastErr error
	for _, std := range ordered[:count] {
		score, err := s.evaluator.Evaluate(ctx, payload, std)
		if err != nil {
			lastErr = err
			logger.Warn("evaluation against standard failed",
				slog.Any("caseID", std.CaseID), slog.Any("error", err))
			continue
		}
		evaluations = append(evaluations, scoredEvaluation{
			Score:      *score,
			Similarity: std.SimilarityScore,
		})
	}

	if len(evaluations) == 0 {
		return nil, goerr.Wrap(lastErr, "all evaluations failed",
			goerr.V("strategy", strategy), goerr.V("standards", count))
	}

	aggregated := Aggregate(evaluations, s.aggregation)

	return &model.EvaluationSummary{
		Strategy:        strategy,
		StandardsUsed:   len(evaluations),
		BestSimilarity:  bestSimilarity,
		AggregatedScore: aggregated.OverallScore,
		ConfidenceHint:  aggregated.ConfidenceLevel,
	}, nil
}

type llmEvaluator struct {
	llmClient gollem.LLMClient
}

const evaluatorSystemPrompt = `You are a clinical quality reviewer. Compare a predicted extraction against a gold-standard extraction from a highly similar case.

Rate each category on a 0 to 1 scale:
1.0 = Perfect match in clinical substance
0.8-0.9 = Very good (minor differences in phrasing)
0.6-0.7 = Good (some items missed or added, but core information correct)
0.4-0.5 = Fair (notable gaps or additions)
0.0-0.3 = Poor (major errors or missing information)

Judge clinical substance, not wording. Report an overall_score, per-category category_scores, a confidence_level of high, medium, or low, and brief reasoning.`

func buildEvaluationSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Type: gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"overall_score": {
				Type:        gollem.TypeNumber,
				Description: "Overall quality of the predicted extraction, 0.0 to 1.0",
			},
			"category_scores": {
				Type: gollem.TypeObject,
				Properties: map[string]*gollem.Parameter{
					"follow_up_tasks":         {Type: gollem.TypeNumber},
					"medication_instructions": {Type: gollem.TypeNumber},
					"client_reminders":        {Type: gollem.TypeNumber},
					"clinician_todos":         {Type: gollem.TypeNumber},
				},
			},
			"confidence_level": {
				Type:        gollem.TypeString,
				Description: "Evaluator confidence: high, medium, or low",
			},
			"reasoning": {
				Type:        gollem.TypeString,
				Description: "Brief justification of the scores",
			},
		},
		Required: []string{"overall_score", "confidence_level"},
	}
}

func (e *llmEvaluator) Evaluate(ctx context.Context, payload *model.ExtractionPayload, standard *model.EvaluationStandard) (*model.EvaluationScore, error) {
	session, err := e.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(buildEvaluationSchema()),
		gollem.WithSessionSystemPrompt(evaluatorSystemPrompt),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create evaluation session")
	}

	predicted, err := json.Marshal(payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal predicted extraction")
	}
	gold, err := json.Marshal(standard.GoldStandard)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal gold standard")
	}

	prompt := fmt.Sprintf("## Predicted Extraction\n%s\n\n## Gold Standard (case similarity %.2f)\n%s",
		predicted, standard.SimilarityScore, gold)

	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return nil, goerr.Wrap(err, "evaluation call failed")
	}
	if len(resp.Texts) == 0 {
		return nil, goerr.New("empty evaluation response")
	}

	var score model.EvaluationScore
	if err := json.Unmarshal([]byte(resp.Texts[0]), &score); err != nil {
		return nil, goerr.Wrap(err, "failed to parse evaluation response", goerr.V("response", resp.Texts[0]))
	}

	if score.OverallScore < 0 {
		score.OverallScore = 0
	}
	if score.OverallScore > 1 {
		score.OverallScore = 1
	}
	return &score, nil
}
