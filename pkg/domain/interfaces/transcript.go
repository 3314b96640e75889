package interfaces

import (
	"context"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

// TranscriptRepository defines the interface for transcript persistence
type TranscriptRepository interface {
	// Create stores a new transcript and assigns an ID if missing
	Create(ctx context.Context, transcript *model.Transcript) (*model.Transcript, error)

	// Get retrieves a transcript by ID
	Get(ctx context.Context, ownerID types.OwnerID, id types.RecordID) (*model.Transcript, error)
}
