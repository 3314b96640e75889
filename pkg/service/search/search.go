// Package search provides similarity lookup over the owner-partitioned
// vector index. Queries are normalized and enriched the same way records are
// at write time so the two sides embed consistently.
package search

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"

	"github.com/medscribe-lab/medscribe/pkg/domain/interfaces"
	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
	"github.com/medscribe-lab/medscribe/pkg/service/embedding"
	"github.com/medscribe-lab/medscribe/pkg/service/textproc"
)

// overfetchFactor widens the nearest-neighbor query so that threshold
// filtering still leaves enough candidates.
const overfetchFactor = 3

// Embedder is the slice of the embedding service the store needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

var _ Embedder = &embedding.Service{}

// Store runs similarity queries against a vector repository.
type Store struct {
	repo     interfaces.VectorRepository
	embedder Embedder
}

func NewStore(repo interfaces.VectorRepository, embedder Embedder) *Store {
	return &Store{repo: repo, embedder: embedder}
}

// Index embeds a record's text and writes it to the owner's partition.
func (s *Store) Index(ctx context.Context, ownerID types.OwnerID, recordID types.RecordID, kind types.RecordKind, text string) error {
	enriched := textproc.Enrich(text)
	emb, err := s.embedder.Embed(ctx, enriched)
	if err != nil {
		return goerr.Wrap(err, "failed to embed record for indexing",
			goerr.V("recordID", recordID), goerr.V("kind", kind))
	}

	return s.repo.Put(ctx, &model.CandidateRecord{
		OwnerID:   ownerID,
		RecordID:  recordID,
		Kind:      kind,
		Text:      textproc.Normalize(text),
		Embedding: emb,
	})
}

// Query returns up to limit candidates from the owner's partition whose
// cosine similarity to the query text is at least threshold, ordered by
// descending similarity.
func (s *Store) Query(ctx context.Context, ownerID types.OwnerID, kind types.RecordKind, text string, limit int, threshold float64) ([]model.ContextCandidate, error) {
	if limit <= 0 {
		return []model.ContextCandidate{}, nil
	}

	enriched := textproc.Enrich(text)
	emb, err := s.embedder.Embed(ctx, enriched)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query text")
	}

	matches, err := s.repo.Search(ctx, ownerID, kind, emb, limit*overfetchFactor)
	if err != nil {
		return nil, goerr.Wrap(err, "vector search failed",
			goerr.V("ownerID", ownerID), goerr.V("kind", kind))
	}

	candidates := make([]model.ContextCandidate, 0, len(matches))
	for _, m := range matches {
		similarity := 1 - m.Distance
		if similarity < threshold {
			continue
		}
		candidates = append(candidates, model.ContextCandidate{
			RecordID:        m.Record.RecordID,
			OwnerID:         m.Record.OwnerID,
			Text:            m.Record.Text,
			SimilarityScore: similarity,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SimilarityScore > candidates[j].SimilarityScore
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}
