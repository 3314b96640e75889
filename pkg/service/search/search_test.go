package search_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
	"github.com/medscribe-lab/medscribe/pkg/repository/memory"
	"github.com/medscribe-lab/medscribe/pkg/service/search"
)

// fakeEmbedder maps known texts to fixed vectors so distances are exact.
type fakeEmbedder struct {
	vectors map[string][]float32
	fallback []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

func TestStore(t *testing.T) {
	const ownerID = types.OwnerID("owner-search")

	t.Run("Query filters by threshold and orders by similarity", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		embedder := &fakeEmbedder{fallback: []float32{1, 0, 0}}
		store := search.NewStore(repo.Vector(), embedder)

		put := func(id types.RecordID, text string, emb []float32) {
			gt.NoError(t, repo.Vector().Put(ctx, &model.CandidateRecord{
				OwnerID:   ownerID,
				RecordID:  id,
				Kind:      types.RecordKindTranscript,
				Text:      text,
				Embedding: emb,
			})).Required()
		}

		exactID := model.NewRecordID()
		nearID := model.NewRecordID()
		put(exactID, "exact", []float32{1, 0, 0})
		put(nearID, "near", []float32{0.95, 0.3, 0})
		put(model.NewRecordID(), "far", []float32{0, 1, 0})

		candidates, err := store.Query(ctx, ownerID, types.RecordKindTranscript, "query text", 5, 0.5)
		gt.NoError(t, err).Required()
		gt.Array(t, candidates).Length(2).Required()

		gt.Value(t, candidates[0].RecordID).Equal(exactID)
		gt.Value(t, candidates[1].RecordID).Equal(nearID)
		gt.Number(t, candidates[0].SimilarityScore).Greater(candidates[1].SimilarityScore)
		gt.Number(t, candidates[0].SimilarityScore).Greater(0.999)
	})

	t.Run("Query truncates to limit", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		embedder := &fakeEmbedder{fallback: []float32{1, 0, 0}}
		store := search.NewStore(repo.Vector(), embedder)

		for i := 0; i < 6; i++ {
			gt.NoError(t, repo.Vector().Put(ctx, &model.CandidateRecord{
				OwnerID:   ownerID,
				RecordID:  model.NewRecordID(),
				Kind:      types.RecordKindTranscript,
				Text:      "close match",
				Embedding: []float32{1, 0.01 * float32(i), 0},
			})).Required()
		}

		candidates, err := store.Query(ctx, ownerID, types.RecordKindTranscript, "query", 3, 0.0)
		gt.NoError(t, err).Required()
		gt.Array(t, candidates).Length(3)
	})

	t.Run("Query returns empty for empty partition", func(t *testing.T) {
		repo := memory.New()
		store := search.NewStore(repo.Vector(), &fakeEmbedder{fallback: []float32{1, 0, 0}})

		candidates, err := store.Query(context.Background(), ownerID, types.RecordKindTranscript, "anything", 5, 0.3)
		gt.NoError(t, err).Required()
		gt.Array(t, candidates).Length(0)
	})

	t.Run("Index then Query round-trips a record", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()

		embedder := &fakeEmbedder{fallback: []float32{0.5, 0.5, 0}}
		store := search.NewStore(repo.Vector(), embedder)

		recordID := model.NewRecordID()
		gt.NoError(t, store.Index(ctx, ownerID, recordID, types.RecordKindTranscript, "Patient  has   hypertension")).Required()

		candidates, err := store.Query(ctx, ownerID, types.RecordKindTranscript, "Patient has hypertension", 1, 0.9)
		gt.NoError(t, err).Required()
		gt.Array(t, candidates).Length(1).Required()
		gt.Value(t, candidates[0].RecordID).Equal(recordID)
		gt.Value(t, candidates[0].Text).Equal("Patient has hypertension")
	})
}
