package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

// EmbedRecord indexes one record's text into the owner's vector partition.
// Used by the persistence gate, the approval path, and the backfill command.
func (uc *UseCases) EmbedRecord(ctx context.Context, ownerID types.OwnerID, recordID types.RecordID, kind types.RecordKind, text string) error {
	if text == "" {
		return goerr.New("cannot index empty text",
			goerr.V("recordID", recordID), goerr.V("kind", kind))
	}
	return uc.store.Index(ctx, ownerID, recordID, kind, text)
}

// PurgeOwner removes every vector record of an owner. Transcript and
// extraction records are retained; only the similarity index is cleared.
func (uc *UseCases) PurgeOwner(ctx context.Context, ownerID types.OwnerID) error {
	if err := ownerID.Validate(); err != nil {
		return goerr.Wrap(err, "cannot purge without owner")
	}
	if ownerID.IsReferencePool() {
		return goerr.New("refusing to purge the shared reference pool")
	}
	return uc.repo.Vector().DeleteByOwner(ctx, ownerID)
}

// ApproveExtraction is the human-review path for flagged results: it persists
// the reviewed payload and runs the same embedding side effects as the
// automatic gate.
func (uc *UseCases) ApproveExtraction(ctx context.Context, ownerID types.OwnerID, transcriptID types.RecordID, payload model.ExtractionPayload) (*model.ExtractionRecord, error) {
	transcript, err := uc.repo.Transcript().Get(ctx, ownerID, transcriptID)
	if err != nil {
		return nil, goerr.Wrap(err, "cannot approve extraction for unknown transcript",
			goerr.V("transcriptID", transcriptID))
	}

	record, err := uc.repo.Extraction().Create(ctx, &model.ExtractionRecord{
		OwnerID:         ownerID,
		TranscriptID:    transcriptID,
		Payload:         payload,
		ConfidenceLevel: types.ConfidenceHigh,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to persist approved extraction")
	}

	var eg errgroup.Group
	eg.Go(func() error {
		return uc.EmbedRecord(ctx, ownerID, transcript.ID, types.RecordKindTranscript, transcript.Text)
	})
	eg.Go(func() error {
		return uc.EmbedRecord(ctx, ownerID, record.ID, types.RecordKindExtraction, record.Payload.ToText())
	})
	if err := eg.Wait(); err != nil {
		return nil, goerr.Wrap(err, "approved extraction persisted but indexing failed",
			goerr.V("extractionID", record.ID))
	}

	return record, nil
}

// Stats reports index sizes for an owner, used by the stats endpoint.
type Stats struct {
	TranscriptVectors int `json:"transcript_vectors"`
	ExtractionVectors int `json:"extraction_vectors"`
}

// OwnerStats counts the indexed records in an owner's partition.
func (uc *UseCases) OwnerStats(ctx context.Context, ownerID types.OwnerID) (*Stats, error) {
	transcripts, err := uc.repo.Vector().CountByOwner(ctx, ownerID, types.RecordKindTranscript)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count transcript vectors")
	}
	extractions, err := uc.repo.Vector().CountByOwner(ctx, ownerID, types.RecordKindExtraction)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count extraction vectors")
	}
	return &Stats{
		TranscriptVectors: transcripts,
		ExtractionVectors: extractions,
	}, nil
}
