package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/medscribe-lab/medscribe/pkg/domain/interfaces"
	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
	"github.com/medscribe-lab/medscribe/pkg/service/contextsel"
	"github.com/medscribe-lab/medscribe/pkg/service/extract"
	"github.com/medscribe-lab/medscribe/pkg/service/rerank"
	"github.com/medscribe-lab/medscribe/pkg/utils/async"
	"github.com/medscribe-lab/medscribe/pkg/utils/logging"
)

// RunExtractionPipeline executes the full flow for one transcript: store,
// retrieve context, extract, evaluate against gold standards, resolve
// confidence, and gate persistence. Evaluation-stage failures degrade the
// result instead of failing the call; only record-write and extraction
// failures are hard errors.
func (uc *UseCases) RunExtractionPipeline(ctx context.Context, input model.PipelineInput) (*model.PipelineResult, error) {
	if err := input.OwnerID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "pipeline input has no owner")
	}

	logger := logging.From(ctx)

	transcript, err := uc.repo.Transcript().Create(ctx, &model.Transcript{
		OwnerID: input.OwnerID,
		Text:    input.TranscriptText,
		Notes:   input.Notes,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store transcript")
	}

	memoryContext := uc.buildMemoryContext(ctx, input)

	payload, err := uc.extractor.Extract(ctx, extract.Input{
		TranscriptText:   input.TranscriptText,
		Notes:            input.Notes,
		MemoryContext:    memoryContext,
		SOPContext:       input.SOPContext,
		CustomCategories: input.CustomCategories,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "extraction failed", goerr.V("transcriptID", transcript.ID))
	}

	result := &model.PipelineResult{
		TranscriptID: transcript.ID,
		Extraction:   *payload,
	}

	standards := uc.collectStandards(ctx, input)

	summary, evalErr := uc.evaluate(ctx, payload, standards)
	result.Evaluation = summary

	decision := uc.resolveConfidence(summary, evalErr)
	result.ConfidenceTier = decision.Tier
	result.ReviewRequired = decision.ReviewRequired
	result.Flagged = !decision.ShouldPersist

	if !decision.ShouldPersist {
		logger.Info("extraction flagged for review",
			slog.Any("transcriptID", transcript.ID),
			slog.Any("tier", decision.Tier))
		return result, nil
	}

	record, err := uc.repo.Extraction().Create(ctx, &model.ExtractionRecord{
		OwnerID:         input.OwnerID,
		TranscriptID:    transcript.ID,
		Payload:         *payload,
		ConfidenceLevel: decision.Tier,
		Evaluation:      summary,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to persist extraction", goerr.V("transcriptID", transcript.ID))
	}
	result.ExtractionID = record.ID
	result.Persisted = true

	uc.runPostPersist(ctx, input.OwnerID, transcript, record)

	return result, nil
}

// buildMemoryContext retrieves and selects prior-visit context. Retrieval
// failures degrade to an empty context.
func (uc *UseCases) buildMemoryContext(ctx context.Context, input model.PipelineInput) string {
	logger := logging.From(ctx)

	candidates, err := uc.store.Query(ctx, input.OwnerID, types.RecordKindTranscript,
		input.TranscriptText, uc.tuning.ContextFetchLimit, uc.tuning.ContextThreshold)
	if err != nil {
		logger.Warn("context retrieval failed, extracting without memory context", slog.Any("error", err))
		return ""
	}
	if len(candidates) == 0 {
		return ""
	}

	candidates = rerank.Rerank(ctx, uc.scorer, input.TranscriptText, candidates, uc.tuning.ContextTopK)
	uc.attachExtractions(ctx, candidates)

	selected := uc.selector.Select(input.TranscriptText, candidates)
	return contextsel.Render(selected)
}

// attachExtractions fetches the persisted extraction for each candidate when
// one exists. Missing extractions are expected for transcript-only records.
func (uc *UseCases) attachExtractions(ctx context.Context, candidates []model.ContextCandidate) {
	logger := logging.From(ctx)

	for i := range candidates {
		record, err := uc.repo.Extraction().GetByTranscriptID(ctx, candidates[i].OwnerID, candidates[i].RecordID)
		if err != nil {
			if !errors.Is(err, interfaces.ErrRecordNotFound) {
				logger.Warn("failed to load extraction for candidate",
					slog.Any("recordID", candidates[i].RecordID), slog.Any("error", err))
			}
			continue
		}
		payload := record.Payload
		candidates[i].Extraction = &payload
	}
}

// collectStandards gathers gold standards from the shared reference pool
// first, then the owner's history, retrying with progressively lower
// thresholds before giving up. Failures here mean no evaluation, never a
// pipeline error.
func (uc *UseCases) collectStandards(ctx context.Context, input model.PipelineInput) []*model.EvaluationStandard {
	logger := logging.From(ctx)

	var standards []*model.EvaluationStandard
	seen := make(map[types.RecordID]struct{})

	collect := func(ownerID types.OwnerID, provenance types.StandardProvenance) {
		for _, threshold := range uc.tuning.StandardThresholds {
			candidates, err := uc.store.Query(ctx, ownerID, types.RecordKindTranscript,
				input.TranscriptText, uc.tuning.StandardLimit, threshold)
			if err != nil {
				logger.Warn("gold-standard search failed",
					slog.Any("ownerID", ownerID), slog.Any("error", err))
				return
			}
			if len(candidates) == 0 {
				continue
			}

			for _, c := range candidates {
				if _, ok := seen[c.RecordID]; ok {
					continue
				}
				record, err := uc.repo.Extraction().GetByTranscriptID(ctx, ownerID, c.RecordID)
				if err != nil {
					continue
				}
				seen[c.RecordID] = struct{}{}
				standards = append(standards, &model.EvaluationStandard{
					CaseID:          c.RecordID,
					GoldStandard:    record.Payload,
					SourceText:      c.Text,
					SimilarityScore: c.SimilarityScore,
					Provenance:      provenance,
				})
			}
			return
		}
	}

	collect(types.ReferencePoolOwner, types.ProvenanceKnownCase)
	collect(input.OwnerID, types.ProvenanceOwnerHistory)

	return standards
}

func (uc *UseCases) evaluate(ctx context.Context, payload *model.ExtractionPayload, standards []*model.EvaluationStandard) (*model.EvaluationSummary, error) {
	if len(standards) == 0 {
		return &model.EvaluationSummary{Strategy: types.StrategyNone}, nil
	}

	summary, err := uc.evaluator.Run(ctx, payload, standards)
	if err != nil {
		logging.From(ctx).Error("evaluation failed", slog.Any("error", err))
		return &model.EvaluationSummary{Strategy: types.StrategyError}, err
	}
	return summary, nil
}

// runPostPersist performs the two embedding side effects concurrently and a
// best-effort verification read. None of these failures undo the persisted
// record.
func (uc *UseCases) runPostPersist(ctx context.Context, ownerID types.OwnerID, transcript *model.Transcript, record *model.ExtractionRecord) {
	logger := logging.From(ctx)

	var eg errgroup.Group
	eg.Go(func() error {
		return uc.EmbedRecord(ctx, ownerID, transcript.ID, types.RecordKindTranscript, transcript.Text)
	})
	eg.Go(func() error {
		return uc.EmbedRecord(ctx, ownerID, record.ID, types.RecordKindExtraction, record.Payload.ToText())
	})
	if err := eg.Wait(); err != nil {
		logger.Warn("post-persist embedding failed", slog.Any("error", err))
		return
	}

	// Verification: the freshly indexed transcript should be findable. Runs
	// detached so a slow read never delays the response.
	async.Dispatch(ctx, func(ctx context.Context) error {
		matches, err := uc.store.Query(ctx, ownerID, types.RecordKindTranscript, transcript.Text, 1, 0)
		if err != nil {
			return goerr.Wrap(err, "post-persist verification search failed",
				goerr.V("transcriptID", transcript.ID))
		}
		if len(matches) == 0 {
			logging.From(ctx).Warn("post-persist verification search found nothing",
				slog.Any("transcriptID", transcript.ID))
		}
		return nil
	})
}
