package firestore

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/medscribe-lab/medscribe/pkg/domain/interfaces"
	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

// extractionDoc stores the payload and evaluation summary as JSON blobs so
// that the document schema does not have to track every payload field.
type extractionDoc struct {
	ID              types.RecordID       `firestore:"ID"`
	OwnerID         types.OwnerID        `firestore:"OwnerID"`
	TranscriptID    types.RecordID       `firestore:"TranscriptID"`
	Payload         string               `firestore:"Payload"`
	ConfidenceLevel types.ConfidenceTier `firestore:"ConfidenceLevel"`
	Evaluation      string               `firestore:"Evaluation,omitempty"`
	CreatedAt       time.Time            `firestore:"CreatedAt"`
	UpdatedAt       time.Time            `firestore:"UpdatedAt"`
}

func toExtractionDoc(rec *model.ExtractionRecord) (*extractionDoc, error) {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal extraction payload")
	}

	doc := &extractionDoc{
		ID:              rec.ID,
		OwnerID:         rec.OwnerID,
		TranscriptID:    rec.TranscriptID,
		Payload:         string(payload),
		ConfidenceLevel: rec.ConfidenceLevel,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}

	if rec.Evaluation != nil {
		ev, err := json.Marshal(rec.Evaluation)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to marshal evaluation summary")
		}
		doc.Evaluation = string(ev)
	}

	return doc, nil
}

func fromExtractionDoc(d *extractionDoc) (*model.ExtractionRecord, error) {
	rec := &model.ExtractionRecord{
		ID:              d.ID,
		OwnerID:         d.OwnerID,
		TranscriptID:    d.TranscriptID,
		ConfidenceLevel: d.ConfidenceLevel,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}

	if err := json.Unmarshal([]byte(d.Payload), &rec.Payload); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal extraction payload")
	}
	if d.Evaluation != "" {
		rec.Evaluation = &model.EvaluationSummary{}
		if err := json.Unmarshal([]byte(d.Evaluation), rec.Evaluation); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal evaluation summary")
		}
	}

	return rec, nil
}

type extractionRepository struct {
	client *firestore.Client
}

func newExtractionRepository(client *firestore.Client) *extractionRepository {
	return &extractionRepository{client: client}
}

func (r *extractionRepository) collection(ownerID types.OwnerID) *firestore.CollectionRef {
	return r.client.Collection("owners").Doc(string(ownerID)).Collection("extractions")
}

func (r *extractionRepository) Create(ctx context.Context, record *model.ExtractionRecord) (*model.ExtractionRecord, error) {
	if err := record.OwnerID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid extraction owner")
	}

	now := time.Now().UTC()
	created := *record
	if created.ID == "" {
		created.ID = model.NewRecordID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	doc, err := toExtractionDoc(&created)
	if err != nil {
		return nil, err
	}

	if _, err := r.collection(created.OwnerID).Doc(string(created.ID)).Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to create extraction record", goerr.V("id", created.ID))
	}

	return &created, nil
}

func (r *extractionRepository) Get(ctx context.Context, ownerID types.OwnerID, id types.RecordID) (*model.ExtractionRecord, error) {
	snap, err := r.collection(ownerID).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrRecordNotFound, "extraction not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get extraction", goerr.V("id", id))
	}

	var d extractionDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal extraction", goerr.V("id", id))
	}

	return fromExtractionDoc(&d)
}

func (r *extractionRepository) GetByTranscriptID(ctx context.Context, ownerID types.OwnerID, transcriptID types.RecordID) (*model.ExtractionRecord, error) {
	iter := r.collection(ownerID).
		Where("TranscriptID", "==", string(transcriptID)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(interfaces.ErrRecordNotFound, "no extraction for transcript", goerr.V("transcriptID", transcriptID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query extraction by transcript", goerr.V("transcriptID", transcriptID))
	}

	var d extractionDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal extraction", goerr.V("transcriptID", transcriptID))
	}

	return fromExtractionDoc(&d)
}
