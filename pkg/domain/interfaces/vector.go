package interfaces

import (
	"context"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

// VectorMatch is a nearest-neighbor hit with its cosine distance. Distance is
// bounded in [0,1]; similarity is derived as 1 - distance by the search
// service, never by the repository.
type VectorMatch struct {
	Record   model.CandidateRecord
	Distance float64
}

// VectorRepository defines the interface for the owner-partitioned vector
// index. Writes to one owner's partition must not block reads of another's.
type VectorRepository interface {
	// Put stores a candidate record. Records are immutable: putting the same
	// (owner, record, kind) again overwrites with identical content.
	Put(ctx context.Context, record *model.CandidateRecord) error

	// Search performs nearest-neighbor search restricted to the owner
	// partition and record kind, returning up to limit matches ordered by
	// ascending cosine distance.
	Search(ctx context.Context, ownerID types.OwnerID, kind types.RecordKind, embedding []float32, limit int) ([]VectorMatch, error)

	// CountByOwner returns the number of stored records in an owner partition.
	CountByOwner(ctx context.Context, ownerID types.OwnerID, kind types.RecordKind) (int, error)

	// DeleteByOwner purges every record of an owner partition.
	DeleteByOwner(ctx context.Context, ownerID types.OwnerID) error
}
