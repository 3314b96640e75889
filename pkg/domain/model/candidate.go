package model

import (
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

// ContextCandidate is a retrieved prior record proposed as few-shot context
// or as an evaluation standard. Constructed per query, never persisted.
type ContextCandidate struct {
	RecordID        types.RecordID
	OwnerID         types.OwnerID
	Text            string
	SimilarityScore float64
	// Extraction is attached when a persisted extraction exists for the
	// record; used for payload-quality scoring and context rendering.
	Extraction *ExtractionPayload
}

// ContextSubscores are the four in-[0,1] factors combined into a candidate's
// relevance score.
type ContextSubscores struct {
	Similarity      float64
	DomainRelevance float64
	PayloadQuality  float64
	Completeness    float64
}

// ScoredContext is a transient ranking artifact produced by the context
// selector.
type ScoredContext struct {
	Candidate       ContextCandidate
	RelevanceScore  float64
	Subscores       ContextSubscores
	EstimatedTokens int
}
