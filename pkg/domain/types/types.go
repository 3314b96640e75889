package types

import (
	"github.com/m-mizutani/goerr/v2"
)

// OwnerID identifies the tenant whose records partition the vector index.
type OwnerID string

// ReferencePoolOwner is the reserved partition holding the shared pool of
// curated reference cases with known-correct extractions. It is addressable
// separately from any user's private history.
const ReferencePoolOwner OwnerID = "reference-pool"

// Validate checks if the OwnerID is valid
func (id OwnerID) Validate() error {
	if id == "" {
		return goerr.New("owner ID is empty")
	}
	return nil
}

// IsReferencePool reports whether the owner is the shared reference pool.
func (id OwnerID) IsReferencePool() bool {
	return id == ReferencePoolOwner
}

// RecordID identifies a transcript or extraction record.
type RecordID string

// RecordKind distinguishes what kind of text a vector record was built from.
type RecordKind string

const (
	RecordKindTranscript RecordKind = "transcript"
	RecordKindExtraction RecordKind = "extraction"
)

// Validate checks if the RecordKind is valid
func (k RecordKind) Validate() error {
	switch k {
	case RecordKindTranscript, RecordKindExtraction:
		return nil
	default:
		return goerr.New("invalid record kind", goerr.V("kind", string(k)))
	}
}

// ConfidenceTier is the discrete confidence classification driving the
// persistence decision.
type ConfidenceTier string

const (
	ConfidenceHigh         ConfidenceTier = "high"
	ConfidenceMedium       ConfidenceTier = "medium"
	ConfidenceLow          ConfidenceTier = "low"
	ConfidenceNoEvaluation ConfidenceTier = "no_evaluation"
)

// ShouldPersist reports whether an extraction with this tier is trusted
// enough to be saved without human review.
func (t ConfidenceTier) ShouldPersist() bool {
	return t == ConfidenceHigh
}

// ReviewRequired reports whether an extraction with this tier must be routed
// to human review.
func (t ConfidenceTier) ReviewRequired() bool {
	return t != ConfidenceHigh
}

// EvaluationStrategy describes how many gold-standard comparisons were run.
type EvaluationStrategy string

const (
	StrategySingle   EvaluationStrategy = "single"
	StrategyFew      EvaluationStrategy = "few"
	StrategyMultiple EvaluationStrategy = "multiple"
	StrategyNone     EvaluationStrategy = "none"
	StrategyError    EvaluationStrategy = "error"
)

// AggregationMethod selects how per-standard evaluation scores are combined.
type AggregationMethod string

const (
	AggregationWeighted AggregationMethod = "weighted"
	AggregationAverage  AggregationMethod = "average"
	AggregationRobust   AggregationMethod = "robust"
)

// Validate checks if the AggregationMethod is valid
func (m AggregationMethod) Validate() error {
	switch m {
	case AggregationWeighted, AggregationAverage, AggregationRobust:
		return nil
	default:
		return goerr.New("invalid aggregation method", goerr.V("method", string(m)))
	}
}

// StandardProvenance describes where an evaluation standard came from.
type StandardProvenance string

const (
	ProvenanceKnownCase    StandardProvenance = "known_case"
	ProvenanceOwnerHistory StandardProvenance = "owner_history"
)
