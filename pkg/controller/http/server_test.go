package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"

	server "github.com/medscribe-lab/medscribe/pkg/controller/http"
	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
	"github.com/medscribe-lab/medscribe/pkg/repository/memory"
	"github.com/medscribe-lab/medscribe/pkg/service/extract"
	"github.com/medscribe-lab/medscribe/pkg/service/search"
	"github.com/medscribe-lab/medscribe/pkg/usecase"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type stubExtractor struct {
	err error
}

func (s *stubExtractor) Extract(ctx context.Context, input extract.Input) (*model.ExtractionPayload, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.ExtractionPayload{
		FollowUpTasks: []model.FollowUpTask{{Description: "Schedule follow-up"}},
	}, nil
}

type stubEvaluator struct{}

func (stubEvaluator) Run(ctx context.Context, payload *model.ExtractionPayload, standards []*model.EvaluationStandard) (*model.EvaluationSummary, error) {
	return &model.EvaluationSummary{Strategy: types.StrategyNone}, nil
}

func newTestServer(t *testing.T, extractor usecase.Extractor) (*server.Server, *memory.Memory) {
	t.Helper()

	repo := memory.New()
	store := search.NewStore(repo.Vector(), stubEmbedder{})
	uc := usecase.New(repo, store, extractor, stubEvaluator{})
	return server.New(uc), repo
}

func TestExtractEndpoint(t *testing.T) {
	t.Run("returns structured result with confidence and flag", func(t *testing.T) {
		srv, _ := newTestServer(t, &stubExtractor{})

		body := map[string]any{
			"transcript_text": "Patient visit notes.",
			"owner_id":        "owner-1",
		}
		encoded, _ := json.Marshal(body)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/extract", bytes.NewReader(encoded))
		srv.ServeHTTP(rec, req)

		gt.Number(t, rec.Code).Equal(http.StatusOK)

		var result model.PipelineResult
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result)).Required()
		gt.Value(t, result.ConfidenceTier).Equal(types.ConfidenceNoEvaluation)
		gt.Bool(t, result.Flagged).True()
		gt.Bool(t, result.Persisted).False()
		gt.Value(t, string(result.TranscriptID)).NotEqual("")
	})

	t.Run("missing fields are a bad request", func(t *testing.T) {
		srv, _ := newTestServer(t, &stubExtractor{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/extract", bytes.NewReader([]byte(`{"notes":"x"}`)))
		srv.ServeHTTP(rec, req)

		gt.Number(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("extraction failure is a server error", func(t *testing.T) {
		srv, _ := newTestServer(t, &stubExtractor{err: fmt.Errorf("llm down")})

		body := []byte(`{"transcript_text": "notes", "owner_id": "owner-1"}`)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/extract", bytes.NewReader(body))
		srv.ServeHTTP(rec, req)

		gt.Number(t, rec.Code).Equal(http.StatusInternalServerError)
	})
}

func TestApproveEndpoint(t *testing.T) {
	t.Run("approves a stored transcript", func(t *testing.T) {
		srv, repo := newTestServer(t, &stubExtractor{})

		transcript, err := repo.Transcript().Create(context.Background(), &model.Transcript{
			OwnerID: "owner-1",
			Text:    "Flagged visit.",
		})
		gt.NoError(t, err).Required()

		body := map[string]any{
			"owner_id": "owner-1",
			"extraction": model.ExtractionPayload{
				FollowUpTasks: []model.FollowUpTask{{Description: "Reviewed follow-up"}},
			},
		}
		encoded, _ := json.Marshal(body)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost,
			fmt.Sprintf("/api/extractions/%s/approve", transcript.ID), bytes.NewReader(encoded))
		srv.ServeHTTP(rec, req)

		gt.Number(t, rec.Code).Equal(http.StatusOK)

		var resp map[string]any
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Value(t, resp["confidence_level"]).Equal("high")
	})

	t.Run("unknown transcript is 404", func(t *testing.T) {
		srv, _ := newTestServer(t, &stubExtractor{})

		body := []byte(`{"owner_id": "owner-1", "extraction": {}}`)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/extractions/nonexistent/approve", bytes.NewReader(body))
		srv.ServeHTTP(rec, req)

		gt.Number(t, rec.Code).Equal(http.StatusNotFound)
	})
}

func TestStatsEndpoint(t *testing.T) {
	srv, repo := newTestServer(t, &stubExtractor{})

	gt.NoError(t, repo.Vector().Put(context.Background(), &model.CandidateRecord{
		OwnerID:   "owner-1",
		RecordID:  model.NewRecordID(),
		Kind:      types.RecordKindTranscript,
		Text:      "indexed visit",
		Embedding: []float32{1, 0, 0},
	})).Required()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stats?owner_id=owner-1", nil)
	srv.ServeHTTP(rec, req)

	gt.Number(t, rec.Code).Equal(http.StatusOK)

	var resp struct {
		Vectors usecase.Stats `json:"vectors"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
	gt.Number(t, resp.Vectors.TranscriptVectors).Equal(1)

	t.Run("owner_id is required", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		srv.ServeHTTP(rec, req)
		gt.Number(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubExtractor{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.ServeHTTP(rec, req)

	gt.Number(t, rec.Code).Equal(http.StatusOK)
}
