package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

// NewRecordID generates a new UUID v4 RecordID
func NewRecordID() types.RecordID {
	return types.RecordID(uuid.New().String())
}

// Transcript is a stored medical-visit transcript.
type Transcript struct {
	ID        types.RecordID
	OwnerID   types.OwnerID
	Text      string `masq:"secret"`
	Notes     string
	CreatedAt time.Time
}

// ExtractionRecord is a persisted extraction result tied to a transcript.
// Evaluation and ConfidenceLevel are immutable once written.
type ExtractionRecord struct {
	ID              types.RecordID
	OwnerID         types.OwnerID
	TranscriptID    types.RecordID
	Payload         ExtractionPayload
	ConfidenceLevel types.ConfidenceTier
	Evaluation      *EvaluationSummary
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EmbeddingDimension is the dimension of embedding vectors.
// Gemini text-embedding-004 uses 768 dimensions.
const EmbeddingDimension = 768

// CandidateRecord is an owner-partitioned vector index entry. Created once
// when a transcript or extraction is first embedded, immutable thereafter,
// deleted only by an owner-scoped purge.
type CandidateRecord struct {
	OwnerID   types.OwnerID
	RecordID  types.RecordID
	Kind      types.RecordKind
	Text      string `masq:"secret"`
	Embedding []float32
	CreatedAt time.Time
}
