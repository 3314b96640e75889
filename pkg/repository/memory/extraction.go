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

type extractionKey struct {
	ownerID types.OwnerID
	id      types.RecordID
}

type extractionRepository struct {
	mu      sync.RWMutex
	records map[extractionKey]*model.ExtractionRecord
}

func newExtractionRepository() *extractionRepository {
	return &extractionRepository{
		records: make(map[extractionKey]*model.ExtractionRecord),
	}
}

// copyExtractionRecord creates a deep copy of an extraction record
func copyExtractionRecord(rec *model.ExtractionRecord) *model.ExtractionRecord {
	copied := *rec
	copied.Payload = copyPayload(rec.Payload)
	if rec.Evaluation != nil {
		ev := *rec.Evaluation
		copied.Evaluation = &ev
	}
	return &copied
}

func copyPayload(p model.ExtractionPayload) model.ExtractionPayload {
	copied := model.ExtractionPayload{
		FollowUpTasks:          append([]model.FollowUpTask(nil), p.FollowUpTasks...),
		MedicationInstructions: append([]model.MedicationInstruction(nil), p.MedicationInstructions...),
		ClientReminders:        append([]model.ClientReminder(nil), p.ClientReminders...),
		ClinicianTodos:         append([]model.ClinicianTodo(nil), p.ClinicianTodos...),
	}
	if len(p.CustomExtractions) > 0 {
		copied.CustomExtractions = make([]model.CustomExtraction, len(p.CustomExtractions))
		for i, ce := range p.CustomExtractions {
			copied.CustomExtractions[i] = ce
			copied.CustomExtractions[i].Items = append([]string(nil), ce.Items...)
		}
	}
	return copied
}

func (r *extractionRepository) Create(ctx context.Context, record *model.ExtractionRecord) (*model.ExtractionRecord, error) {
	if err := record.OwnerID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid extraction owner")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyExtractionRecord(record)
	if created.ID == "" {
		created.ID = model.NewRecordID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.records[extractionKey{ownerID: created.OwnerID, id: created.ID}] = created
	return copyExtractionRecord(created), nil
}

func (r *extractionRepository) Get(ctx context.Context, ownerID types.OwnerID, id types.RecordID) (*model.ExtractionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[extractionKey{ownerID: ownerID, id: id}]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrRecordNotFound, "extraction not found", goerr.V("id", id))
	}

	return copyExtractionRecord(record), nil
}

func (r *extractionRepository) GetByTranscriptID(ctx context.Context, ownerID types.OwnerID, transcriptID types.RecordID) (*model.ExtractionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for key, record := range r.records {
		if key.ownerID == ownerID && record.TranscriptID == transcriptID {
			return copyExtractionRecord(record), nil
		}
	}

	return nil, goerr.Wrap(interfaces.ErrRecordNotFound, "no extraction for transcript", goerr.V("transcriptID", transcriptID))
}
