package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"

	"github.com/medscribe-lab/medscribe/pkg/domain/interfaces"
)

// Firestore is the production Repository backed by Cloud Firestore. Vector
// search uses Firestore's native FindNearest with the cosine distance
// measure, which keeps distances bounded in [0,1] for our normalized use.
type Firestore struct {
	client     *firestore.Client
	transcript *transcriptRepository
	extraction *extractionRepository
	vector     *vectorRepository
}

var _ interfaces.Repository = &Firestore{}

// New creates a Firestore-backed repository. databaseID may be empty to use
// the default database.
func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client", goerr.V("projectID", projectID))
	}

	return &Firestore{
		client:     client,
		transcript: newTranscriptRepository(client),
		extraction: newExtractionRepository(client),
		vector:     newVectorRepository(client),
	}, nil
}

func (f *Firestore) Transcript() interfaces.TranscriptRepository {
	return f.transcript
}

func (f *Firestore) Extraction() interfaces.ExtractionRepository {
	return f.extraction
}

func (f *Firestore) Vector() interfaces.VectorRepository {
	return f.vector
}

func (f *Firestore) Close() error {
	if err := f.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}
