package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/medscribe-lab/medscribe/pkg/domain/interfaces"
	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

type transcriptKey struct {
	ownerID types.OwnerID
	id      types.RecordID
}

type transcriptRepository struct {
	mu          sync.RWMutex
	transcripts map[transcriptKey]*model.Transcript
}

func newTranscriptRepository() *transcriptRepository {
	return &transcriptRepository{
		transcripts: make(map[transcriptKey]*model.Transcript),
	}
}

func copyTranscript(t *model.Transcript) *model.Transcript {
	copied := *t
	return &copied
}

func (r *transcriptRepository) Create(ctx context.Context, transcript *model.Transcript) (*model.Transcript, error) {
	if err := transcript.OwnerID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid transcript owner")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyTranscript(transcript)
	if created.ID == "" {
		created.ID = model.NewRecordID()
	}
	created.CreatedAt = time.Now().UTC()

	r.transcripts[transcriptKey{ownerID: created.OwnerID, id: created.ID}] = created
	return copyTranscript(created), nil
}

func (r *transcriptRepository) Get(ctx context.Context, ownerID types.OwnerID, id types.RecordID) (*model.Transcript, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transcript, exists := r.transcripts[transcriptKey{ownerID: ownerID, id: id}]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrRecordNotFound, "transcript not found", goerr.V("id", id))
	}

	return copyTranscript(transcript), nil
}
