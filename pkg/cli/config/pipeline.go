package config

import (
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
	"github.com/medscribe-lab/medscribe/pkg/usecase"
)

// Pipeline holds operator-tunable pipeline settings, loaded from an optional
// TOML file. Every section falls back to the built-in defaults when absent,
// so an empty or missing file is a valid configuration.
type Pipeline struct {
	path string

	doc pipelineDoc
}

type pipelineDoc struct {
	Extraction struct {
		Refinement *bool `toml:"refinement"`
	} `toml:"extraction"`

	Evaluation struct {
		Aggregation string `toml:"aggregation"`
	} `toml:"evaluation"`

	Retrieval struct {
		ContextThreshold   *float64  `toml:"context_threshold"`
		ContextFetchLimit  *int      `toml:"context_fetch_limit"`
		ContextTopK        *int      `toml:"context_top_k"`
		StandardThresholds []float64 `toml:"standard_thresholds"`
		StandardLimit      *int      `toml:"standard_limit"`
		Rerank             *bool     `toml:"rerank"`
	} `toml:"retrieval"`

	Selection struct {
		MaxTokens    *int     `toml:"max_tokens"`
		MinRelevance *float64 `toml:"min_relevance"`
	} `toml:"selection"`

	Embedding struct {
		CacheCapacity       *int     `toml:"cache_capacity"`
		SimilarityThreshold *float64 `toml:"similarity_threshold"`
		MaxConcurrency      *int64   `toml:"max_concurrency"`
	} `toml:"embedding"`

	Rules []model.ConfidenceRule `toml:"rule"`
}

// Flags returns CLI flags for pipeline configuration
func (p *Pipeline) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "pipeline-config",
			Usage:       "Path to pipeline tuning file (TOML). Defaults apply when omitted",
			Sources:     cli.EnvVars("MEDSCRIBE_PIPELINE_CONFIG"),
			Destination: &p.path,
		},
	}
}

// LogValue returns log attributes for the pipeline configuration
func (p Pipeline) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", p.path),
		slog.Int("rules", len(p.doc.Rules)),
		slog.String("aggregation", string(p.Aggregation())),
	)
}

// Configure loads and validates the tuning file. A missing --pipeline-config
// flag leaves every default in place.
func (p *Pipeline) Configure() error {
	if p.path == "" {
		return nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return goerr.Wrap(ErrConfigNotFound, "pipeline config", goerr.V(ConfigPathKey, p.path))
		}
		return goerr.Wrap(err, "failed to read pipeline config", goerr.V(ConfigPathKey, p.path))
	}

	if err := toml.Unmarshal(data, &p.doc); err != nil {
		return goerr.Wrap(err, "failed to parse pipeline config", goerr.V(ConfigPathKey, p.path))
	}

	return p.validate()
}

func (p *Pipeline) validate() error {
	if p.doc.Evaluation.Aggregation != "" {
		if err := types.AggregationMethod(p.doc.Evaluation.Aggregation).Validate(); err != nil {
			return goerr.Wrap(ErrInvalidAggregation, "pipeline config",
				goerr.V(ConfigPathKey, p.path),
				goerr.V("aggregation", p.doc.Evaluation.Aggregation),
			)
		}
	}

	for i, rule := range p.doc.Rules {
		switch rule.Tier {
		case types.ConfidenceHigh, types.ConfidenceMedium, types.ConfidenceLow:
		default:
			return goerr.Wrap(ErrInvalidTier, "pipeline config",
				goerr.V(ConfigPathKey, p.path),
				goerr.V(RuleIndexKey, i),
				goerr.V("tier", string(rule.Tier)),
			)
		}
	}

	return nil
}

// Refinement reports whether the second extraction refinement pass is
// enabled. Defaults to true.
func (p *Pipeline) Refinement() bool {
	if p.doc.Extraction.Refinement != nil {
		return *p.doc.Extraction.Refinement
	}
	return true
}

// Aggregation returns the configured score aggregation method.
func (p *Pipeline) Aggregation() types.AggregationMethod {
	if p.doc.Evaluation.Aggregation != "" {
		return types.AggregationMethod(p.doc.Evaluation.Aggregation)
	}
	return types.AggregationWeighted
}

// RerankEnabled reports whether retrieved context is reranked by the LLM.
// Defaults to true.
func (p *Pipeline) RerankEnabled() bool {
	if p.doc.Retrieval.Rerank != nil {
		return *p.doc.Retrieval.Rerank
	}
	return true
}

// Tuning merges the retrieval section over the default pipeline thresholds.
func (p *Pipeline) Tuning() usecase.Tuning {
	tuning := usecase.DefaultTuning()
	if v := p.doc.Retrieval.ContextThreshold; v != nil {
		tuning.ContextThreshold = *v
	}
	if v := p.doc.Retrieval.ContextFetchLimit; v != nil {
		tuning.ContextFetchLimit = *v
	}
	if v := p.doc.Retrieval.ContextTopK; v != nil {
		tuning.ContextTopK = *v
	}
	if len(p.doc.Retrieval.StandardThresholds) > 0 {
		tuning.StandardThresholds = p.doc.Retrieval.StandardThresholds
	}
	if v := p.doc.Retrieval.StandardLimit; v != nil {
		tuning.StandardLimit = *v
	}
	return tuning
}

// Rules returns the configured confidence cascade, or the built-in default
// when the file defines no rules.
func (p *Pipeline) Rules() model.ConfidenceRules {
	if len(p.doc.Rules) == 0 {
		return model.DefaultConfidenceRules()
	}
	return model.ConfidenceRules{Rules: p.doc.Rules}
}

// MaxTokens returns the context token budget. Zero means use the default.
func (p *Pipeline) MaxTokens() int {
	if p.doc.Selection.MaxTokens != nil {
		return *p.doc.Selection.MaxTokens
	}
	return 0
}

// MinRelevance returns the context relevance gate. Zero means use the
// default.
func (p *Pipeline) MinRelevance() float64 {
	if p.doc.Selection.MinRelevance != nil {
		return *p.doc.Selection.MinRelevance
	}
	return 0
}

// CacheCapacity returns the embedding cache size. Zero means use the default.
func (p *Pipeline) CacheCapacity() int {
	if p.doc.Embedding.CacheCapacity != nil {
		return *p.doc.Embedding.CacheCapacity
	}
	return 0
}

// SimilarityThreshold returns the cache near-duplicate threshold. Zero means
// use the default.
func (p *Pipeline) SimilarityThreshold() float64 {
	if p.doc.Embedding.SimilarityThreshold != nil {
		return *p.doc.Embedding.SimilarityThreshold
	}
	return 0
}

// MaxConcurrency returns the embedding backend concurrency cap. Zero means
// use the default.
func (p *Pipeline) MaxConcurrency() int64 {
	if p.doc.Embedding.MaxConcurrency != nil {
		return *p.doc.Embedding.MaxConcurrency
	}
	return 0
}
