package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/medscribe-lab/medscribe/pkg/domain/interfaces"
	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
	"github.com/medscribe-lab/medscribe/pkg/service/embedding"
	"github.com/medscribe-lab/medscribe/pkg/usecase"
	"github.com/medscribe-lab/medscribe/pkg/utils/errutil"
	"github.com/medscribe-lab/medscribe/pkg/utils/safe"
)

type extractRequest struct {
	TranscriptText   string                 `json:"transcript_text"`
	OwnerID          string                 `json:"owner_id"`
	Notes            string                 `json:"notes,omitempty"`
	CustomCategories []model.CustomCategory `json:"custom_categories,omitempty"`
	SOPContext       string                 `json:"sop_context,omitempty"`
}

// extractHandler runs the extraction pipeline. The response always carries a
// confidence_level and flagged marker; a non-2xx status means the pipeline
// itself could not run, not that confidence was low.
func extractHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req extractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}
		if req.TranscriptText == "" || req.OwnerID == "" {
			errutil.HandleHTTP(ctx, w, goerr.New("transcript_text and owner_id are required"), http.StatusBadRequest)
			return
		}

		result, err := uc.RunExtractionPipeline(ctx, model.PipelineInput{
			TranscriptText:   req.TranscriptText,
			OwnerID:          types.OwnerID(req.OwnerID),
			Notes:            req.Notes,
			CustomCategories: req.CustomCategories,
			SOPContext:       req.SOPContext,
		})
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
			return
		}

		writeJSON(ctx, w, http.StatusOK, result)
	}
}

type approveRequest struct {
	OwnerID    string                  `json:"owner_id"`
	Extraction model.ExtractionPayload `json:"extraction"`
}

type approveResponse struct {
	ExtractionID    types.RecordID       `json:"extraction_id"`
	ConfidenceLevel types.ConfidenceTier `json:"confidence_level"`
}

// approveHandler persists a reviewed extraction for a flagged transcript.
func approveHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		transcriptID := types.RecordID(chi.URLParam(r, "transcriptID"))
		if transcriptID == "" {
			errutil.HandleHTTP(ctx, w, goerr.New("transcript ID is required"), http.StatusBadRequest)
			return
		}

		var req approveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}
		if req.OwnerID == "" {
			errutil.HandleHTTP(ctx, w, goerr.New("owner_id is required"), http.StatusBadRequest)
			return
		}

		record, err := uc.ApproveExtraction(ctx, types.OwnerID(req.OwnerID), transcriptID, req.Extraction)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, interfaces.ErrRecordNotFound) {
				status = http.StatusNotFound
			}
			errutil.HandleHTTP(ctx, w, err, status)
			return
		}

		writeJSON(ctx, w, http.StatusOK, approveResponse{
			ExtractionID:    record.ID,
			ConfidenceLevel: record.ConfidenceLevel,
		})
	}
}

type statsResponse struct {
	Vectors *usecase.Stats        `json:"vectors"`
	Cache   *embedding.CacheStats `json:"cache,omitempty"`
}

// statsHandler reports index sizes for an owner and, when available,
// embedding cache counters.
func statsHandler(uc *usecase.UseCases, cacheStats func() embedding.CacheStats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ownerID := r.URL.Query().Get("owner_id")
		if ownerID == "" {
			errutil.HandleHTTP(ctx, w, goerr.New("owner_id query parameter is required"), http.StatusBadRequest)
			return
		}

		stats, err := uc.OwnerStats(ctx, types.OwnerID(ownerID))
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
			return
		}

		resp := statsResponse{Vectors: stats}
		if cacheStats != nil {
			cs := cacheStats()
			resp.Cache = &cs
		}

		writeJSON(ctx, w, http.StatusOK, resp)
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(ctx, w, mustMarshal(body))
}

func mustMarshal(body any) []byte {
	encoded, err := json.Marshal(body)
	if err != nil {
		return []byte(`{"error":"failed to encode response"}`)
	}
	return encoded
}
