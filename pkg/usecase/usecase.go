package usecase

import (
	"context"

	"github.com/medscribe-lab/medscribe/pkg/domain/interfaces"
	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/service/contextsel"
	"github.com/medscribe-lab/medscribe/pkg/service/extract"
	"github.com/medscribe-lab/medscribe/pkg/service/rerank"
	"github.com/medscribe-lab/medscribe/pkg/service/search"
)

// Extractor produces a structured payload from a transcript.
type Extractor interface {
	Extract(ctx context.Context, input extract.Input) (*model.ExtractionPayload, error)
}

// EvaluationRunner evaluates a payload against gold standards adaptively.
type EvaluationRunner interface {
	Run(ctx context.Context, payload *model.ExtractionPayload, standards []*model.EvaluationStandard) (*model.EvaluationSummary, error)
}

// Tuning collects the pipeline thresholds that operators may adjust.
type Tuning struct {
	// ContextThreshold filters context retrieval candidates.
	ContextThreshold float64
	// ContextFetchLimit is how many candidates retrieval hands to the
	// reranker.
	ContextFetchLimit int
	// ContextTopK is how many candidates survive reranking.
	ContextTopK int
	// StandardThresholds are tried in order until a gold-standard search
	// returns anything.
	StandardThresholds []float64
	// StandardLimit caps gold standards fetched per partition.
	StandardLimit int
}

// DefaultTuning returns the thresholds the pipeline ships with.
func DefaultTuning() Tuning {
	return Tuning{
		ContextThreshold:   0.3,
		ContextFetchLimit:  10,
		ContextTopK:        5,
		StandardThresholds: []float64{0.3, 0.1, 0.05},
		StandardLimit:      5,
	}
}

// UseCases wires the pipeline stages together.
type UseCases struct {
	repo      interfaces.Repository
	store     *search.Store
	extractor Extractor
	evaluator EvaluationRunner
	scorer    rerank.Scorer
	selector  *contextsel.Selector
	rules     model.ConfidenceRules
	tuning    Tuning
}

type Option func(*UseCases)

// WithScorer enables LLM reranking of retrieved context.
func WithScorer(scorer rerank.Scorer) Option {
	return func(uc *UseCases) {
		uc.scorer = scorer
	}
}

// WithConfidenceRules overrides the default confidence cascade.
func WithConfidenceRules(rules model.ConfidenceRules) Option {
	return func(uc *UseCases) {
		if len(rules.Rules) > 0 {
			uc.rules = rules
		}
	}
}

// WithSelector overrides the default context selector.
func WithSelector(selector *contextsel.Selector) Option {
	return func(uc *UseCases) {
		uc.selector = selector
	}
}

// WithTuning overrides the default pipeline thresholds.
func WithTuning(tuning Tuning) Option {
	return func(uc *UseCases) {
		uc.tuning = tuning
	}
}

func New(repo interfaces.Repository, store *search.Store, extractor Extractor, evaluator EvaluationRunner, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:      repo,
		store:     store,
		extractor: extractor,
		evaluator: evaluator,
		selector:  contextsel.NewSelector(),
		rules:     model.DefaultConfidenceRules(),
		tuning:    DefaultTuning(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
