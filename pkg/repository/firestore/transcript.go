package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/medscribe-lab/medscribe/pkg/domain/interfaces"
	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

type transcriptDoc struct {
	ID        types.RecordID `firestore:"ID"`
	OwnerID   types.OwnerID  `firestore:"OwnerID"`
	Text      string         `firestore:"Text"`
	Notes     string         `firestore:"Notes,omitempty"`
	CreatedAt time.Time      `firestore:"CreatedAt"`
}

type transcriptRepository struct {
	client *firestore.Client
}

func newTranscriptRepository(client *firestore.Client) *transcriptRepository {
	return &transcriptRepository{client: client}
}

func (r *transcriptRepository) collection(ownerID types.OwnerID) *firestore.CollectionRef {
	return r.client.Collection("owners").Doc(string(ownerID)).Collection("transcripts")
}

func (r *transcriptRepository) Create(ctx context.Context, transcript *model.Transcript) (*model.Transcript, error) {
	if err := transcript.OwnerID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid transcript owner")
	}

	created := *transcript
	if created.ID == "" {
		created.ID = model.NewRecordID()
	}
	created.CreatedAt = time.Now().UTC()

	doc := &transcriptDoc{
		ID:        created.ID,
		OwnerID:   created.OwnerID,
		Text:      created.Text,
		Notes:     created.Notes,
		CreatedAt: created.CreatedAt,
	}

	if _, err := r.collection(created.OwnerID).Doc(string(created.ID)).Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to create transcript", goerr.V("id", created.ID))
	}

	return &created, nil
}

func (r *transcriptRepository) Get(ctx context.Context, ownerID types.OwnerID, id types.RecordID) (*model.Transcript, error) {
	snap, err := r.collection(ownerID).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrRecordNotFound, "transcript not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get transcript", goerr.V("id", id))
	}

	var d transcriptDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal transcript", goerr.V("id", id))
	}

	return &model.Transcript{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		Text:      d.Text,
		Notes:     d.Notes,
		CreatedAt: d.CreatedAt,
	}, nil
}
