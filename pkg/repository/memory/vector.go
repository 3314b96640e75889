package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/medscribe-lab/medscribe/pkg/domain/interfaces"
	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

type vectorEntryKey struct {
	recordID types.RecordID
	kind     types.RecordKind
}

// vectorPartition holds one owner's records behind its own lock so that a
// write to one partition never blocks reads of another.
type vectorPartition struct {
	mu      sync.RWMutex
	entries map[vectorEntryKey]*model.CandidateRecord
}

type vectorRepository struct {
	mu         sync.RWMutex
	partitions map[types.OwnerID]*vectorPartition
}

func newVectorRepository() *vectorRepository {
	return &vectorRepository{
		partitions: make(map[types.OwnerID]*vectorPartition),
	}
}

func (r *vectorRepository) partition(ownerID types.OwnerID, create bool) *vectorPartition {
	r.mu.RLock()
	p, exists := r.partitions[ownerID]
	r.mu.RUnlock()
	if exists || !create {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, exists = r.partitions[ownerID]; exists {
		return p
	}
	p = &vectorPartition{entries: make(map[vectorEntryKey]*model.CandidateRecord)}
	r.partitions[ownerID] = p
	return p
}

func copyCandidateRecord(rec *model.CandidateRecord) *model.CandidateRecord {
	copied := *rec
	copied.Embedding = append([]float32(nil), rec.Embedding...)
	return &copied
}

func (r *vectorRepository) Put(ctx context.Context, record *model.CandidateRecord) error {
	if err := record.OwnerID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid vector record owner")
	}
	if err := record.Kind.Validate(); err != nil {
		return goerr.Wrap(err, "invalid vector record kind")
	}
	if len(record.Embedding) == 0 {
		return goerr.New("vector record has no embedding", goerr.V("recordID", record.RecordID))
	}

	p := r.partition(record.OwnerID, true)
	p.mu.Lock()
	defer p.mu.Unlock()

	stored := copyCandidateRecord(record)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	p.entries[vectorEntryKey{recordID: stored.RecordID, kind: stored.Kind}] = stored
	return nil
}

func (r *vectorRepository) Search(ctx context.Context, ownerID types.OwnerID, kind types.RecordKind, embedding []float32, limit int) ([]interfaces.VectorMatch, error) {
	p := r.partition(ownerID, false)
	if p == nil {
		return []interfaces.VectorMatch{}, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	matches := make([]interfaces.VectorMatch, 0, len(p.entries))
	for key, rec := range p.entries {
		if key.kind != kind || len(rec.Embedding) == 0 {
			continue
		}
		matches = append(matches, interfaces.VectorMatch{
			Record:   *copyCandidateRecord(rec),
			Distance: cosineDistance(embedding, rec.Embedding),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

func (r *vectorRepository) CountByOwner(ctx context.Context, ownerID types.OwnerID, kind types.RecordKind) (int, error) {
	p := r.partition(ownerID, false)
	if p == nil {
		return 0, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	count := 0
	for key := range p.entries {
		if key.kind == kind {
			count++
		}
	}
	return count, nil
}

func (r *vectorRepository) DeleteByOwner(ctx context.Context, ownerID types.OwnerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.partitions, ownerID)
	return nil
}

// cosineDistance computes 1 - cosine similarity, clamped to [0,1] so the
// metric stays bounded even for opposing vectors.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 1
	}

	d := 1 - dot/denom
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}
