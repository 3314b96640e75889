package extract_test

import (
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/service/extract"
)

type mockSession struct {
	response string
}

func (s *mockSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return &gollem.Response{Texts: []string{s.response}}, nil
}

func (s *mockSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockSession) History() (*gollem.History, error) { return nil, nil }

func (s *mockSession) AppendHistory(*gollem.History) error { return nil }

func (s *mockSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

type mockLLMClient struct {
	responses []string
	prompts   []string
	calls     int
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	resp := "{}"
	if c.calls < len(c.responses) {
		resp = c.responses[c.calls]
	}
	c.calls++
	return &mockSession{response: resp}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

const extractionJSON = `{
	"follow_up_tasks": [{"description": "Schedule blood panel", "priority": "high"}],
	"medication_instructions": [{"medication_name": "lisinopril", "dosage": "10mg", "frequency": "daily"}],
	"client_reminders": [],
	"clinician_todos": []
}`

func TestExtract(t *testing.T) {
	ctx := context.Background()

	t.Run("parses structured payload from LLM", func(t *testing.T) {
		llm := &mockLLMClient{responses: []string{extractionJSON}}
		svc, err := extract.New(llm, extract.WithRefinement(false))
		gt.NoError(t, err).Required()

		payload, err := svc.Extract(ctx, extract.Input{TranscriptText: "Starting lisinopril 10mg daily. Order blood panel."})
		gt.NoError(t, err).Required()

		gt.Array(t, payload.FollowUpTasks).Length(1)
		gt.Array(t, payload.MedicationInstructions).Length(1)
		gt.Value(t, payload.MedicationInstructions[0].MedicationName).Equal("lisinopril")
		gt.Value(t, payload.ClientReminders).NotNil()
		gt.Value(t, payload.ClinicianTodos).NotNil()
	})

	t.Run("refinement makes a second call and returns its result", func(t *testing.T) {
		refinedJSON := `{
			"follow_up_tasks": [],
			"medication_instructions": [{"medication_name": "lisinopril", "dosage": "10mg", "frequency": "daily", "duration": "30 days"}],
			"client_reminders": [],
			"clinician_todos": []
		}`
		llm := &mockLLMClient{responses: []string{extractionJSON, refinedJSON}}
		svc, err := extract.New(llm)
		gt.NoError(t, err).Required()

		payload, err := svc.Extract(ctx, extract.Input{TranscriptText: "Starting lisinopril 10mg daily for 30 days."})
		gt.NoError(t, err).Required()

		gt.Number(t, llm.calls).Equal(2)
		gt.Value(t, payload.MedicationInstructions[0].Duration).Equal("30 days")
	})

	t.Run("rejects empty transcript", func(t *testing.T) {
		svc, err := extract.New(&mockLLMClient{})
		gt.NoError(t, err).Required()

		_, err = svc.Extract(ctx, extract.Input{TranscriptText: "   "})
		gt.Value(t, err).NotNil()
	})

	t.Run("malformed response is an error", func(t *testing.T) {
		llm := &mockLLMClient{responses: []string{"not json"}}
		svc, err := extract.New(llm, extract.WithRefinement(false))
		gt.NoError(t, err).Required()

		_, err = svc.Extract(ctx, extract.Input{TranscriptText: "some transcript"})
		gt.Value(t, err).NotNil()
	})

	t.Run("nil LLM client is rejected", func(t *testing.T) {
		_, err := extract.New(nil)
		gt.Value(t, err).NotNil()
	})
}

func TestInitialConfidence(t *testing.T) {
	many := &model.ExtractionPayload{
		FollowUpTasks: []model.FollowUpTask{{}, {}, {}},
		ClientReminders: []model.ClientReminder{{}, {}},
	}
	gt.Value(t, extract.InitialConfidence(many)).Equal("high")

	some := &model.ExtractionPayload{
		MedicationInstructions: []model.MedicationInstruction{{}, {}},
	}
	gt.Value(t, extract.InitialConfidence(some)).Equal("medium")

	gt.Value(t, extract.InitialConfidence(&model.ExtractionPayload{})).Equal("low")
}

func TestCustomCategories(t *testing.T) {
	// Custom categories should surface in the parsed payload when the LLM
	// returns them.
	response := `{
		"follow_up_tasks": [],
		"medication_instructions": [],
		"client_reminders": [],
		"clinician_todos": [],
		"custom_extractions": [{"category_name": "billing_codes", "items": ["99213"], "confidence": 0.8}]
	}`
	llm := &mockLLMClient{responses: []string{response}}
	svc, err := extract.New(llm, extract.WithRefinement(false))
	gt.NoError(t, err).Required()

	payload, err := svc.Extract(context.Background(), extract.Input{
		TranscriptText:   "Visit coded as an established patient exam.",
		CustomCategories: []model.CustomCategory{{Name: "billing_codes", Description: "CPT codes mentioned"}},
	})
	gt.NoError(t, err).Required()

	gt.Array(t, payload.CustomExtractions).Length(1).Required()
	gt.Value(t, payload.CustomExtractions[0].CategoryName).Equal("billing_codes")
	gt.Bool(t, strings.Contains(payload.CustomExtractions[0].Items[0], "99213")).True()
}
