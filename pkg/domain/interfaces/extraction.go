package interfaces

import (
	"context"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

// ExtractionRepository defines the interface for extraction record persistence
type ExtractionRepository interface {
	// Create stores a new extraction record and assigns an ID if missing
	Create(ctx context.Context, record *model.ExtractionRecord) (*model.ExtractionRecord, error)

	// Get retrieves an extraction record by ID
	Get(ctx context.Context, ownerID types.OwnerID, id types.RecordID) (*model.ExtractionRecord, error)

	// GetByTranscriptID retrieves the extraction record tied to a transcript.
	// Returns ErrNotFound when the transcript has no persisted extraction.
	GetByTranscriptID(ctx context.Context, ownerID types.OwnerID, transcriptID types.RecordID) (*model.ExtractionRecord, error)
}
