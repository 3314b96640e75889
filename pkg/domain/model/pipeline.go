package model

import (
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

// CustomCategory is a caller-defined extraction category passed through to
// the extraction call.
type CustomCategory struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PipelineInput is the single entry point of the extraction pipeline.
type PipelineInput struct {
	TranscriptText   string `masq:"secret"`
	OwnerID          types.OwnerID
	Notes            string
	CustomCategories []CustomCategory
	// SOPContext is optional caller-provided standard-operating-procedure
	// text appended to the extraction prompt.
	SOPContext string
}

// PipelineResult is what callers of the pipeline always receive: a structured
// outcome with an explicit confidence tier, never an opaque failure for
// evaluation-stage problems.
type PipelineResult struct {
	TranscriptID   types.RecordID       `json:"transcript_id"`
	ExtractionID   types.RecordID       `json:"extraction_id,omitempty"`
	Extraction     ExtractionPayload    `json:"extraction"`
	ConfidenceTier types.ConfidenceTier `json:"confidence_level"`
	Flagged        bool                 `json:"flagged"`
	ReviewRequired bool                 `json:"review_required"`
	Evaluation     *EvaluationSummary   `json:"evaluation_results,omitempty"`
	Persisted      bool                 `json:"persisted"`
}
