package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"

	"github.com/medscribe-lab/medscribe/pkg/domain/interfaces"
	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

// vectorDoc is the Firestore document representation of model.CandidateRecord.
// Embedding is stored as firestore.Vector32 so that FindNearest vector search works.
type vectorDoc struct {
	OwnerID   types.OwnerID      `firestore:"OwnerID"`
	RecordID  types.RecordID     `firestore:"RecordID"`
	Kind      types.RecordKind   `firestore:"Kind"`
	Text      string             `firestore:"Text"`
	Embedding firestore.Vector32 `firestore:"Embedding"`
	CreatedAt time.Time          `firestore:"CreatedAt"`

	// Distance is populated by FindNearest via DistanceResultField.
	Distance float64 `firestore:"vector_distance,omitempty"`
}

type vectorRepository struct {
	client *firestore.Client
}

func newVectorRepository(client *firestore.Client) *vectorRepository {
	return &vectorRepository{client: client}
}

func (r *vectorRepository) collection(ownerID types.OwnerID) *firestore.CollectionRef {
	return r.client.Collection("owners").Doc(string(ownerID)).Collection("vectors")
}

func vectorDocID(recordID types.RecordID, kind types.RecordKind) string {
	return fmt.Sprintf("%s_%s", kind, recordID)
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

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	doc := &vectorDoc{
		OwnerID:   record.OwnerID,
		RecordID:  record.RecordID,
		Kind:      record.Kind,
		Text:      record.Text,
		Embedding: firestore.Vector32(record.Embedding),
		CreatedAt: createdAt,
	}

	docRef := r.collection(record.OwnerID).Doc(vectorDocID(record.RecordID, record.Kind))
	if _, err := docRef.Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put vector record",
			goerr.V("recordID", record.RecordID),
			goerr.V("kind", record.Kind))
	}

	return nil
}

func (r *vectorRepository) Search(ctx context.Context, ownerID types.OwnerID, kind types.RecordKind, embedding []float32, limit int) ([]interfaces.VectorMatch, error) {
	vq := r.collection(ownerID).
		Where("Kind", "==", string(kind)).
		FindNearest("Embedding", firestore.Vector32(embedding), limit, firestore.DistanceMeasureCosine,
			&firestore.FindNearestOptions{DistanceResultField: "vector_distance"})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	matches := make([]interfaces.VectorMatch, 0, limit)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search results")
		}

		var d vectorDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal vector search result")
		}

		matches = append(matches, interfaces.VectorMatch{
			Record: model.CandidateRecord{
				OwnerID:   d.OwnerID,
				RecordID:  d.RecordID,
				Kind:      d.Kind,
				Text:      d.Text,
				Embedding: []float32(d.Embedding),
				CreatedAt: d.CreatedAt,
			},
			Distance: d.Distance,
		})
	}

	return matches, nil
}

func (r *vectorRepository) CountByOwner(ctx context.Context, ownerID types.OwnerID, kind types.RecordKind) (int, error) {
	iter := r.collection(ownerID).Where("Kind", "==", string(kind)).Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, goerr.Wrap(err, "failed to count vector records")
		}
		count++
	}
	return count, nil
}

func (r *vectorRepository) DeleteByOwner(ctx context.Context, ownerID types.OwnerID) error {
	iter := r.collection(ownerID).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to iterate vector records for purge")
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return goerr.Wrap(err, "failed to delete vector record", goerr.V("doc", snap.Ref.ID))
		}
	}

	return nil
}
