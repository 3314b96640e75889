// Package extract calls the LLM to turn a visit transcript into a structured
// extraction payload, optionally followed by a refinement pass.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
)

// Service runs extraction calls against an LLM client.
type Service struct {
	llmClient gollem.LLMClient
	refine    bool
}

type Option func(*Service)

// WithRefinement enables the second-pass refinement call.
func WithRefinement(enabled bool) Option {
	return func(s *Service) {
		s.refine = enabled
	}
}

func New(llmClient gollem.LLMClient, options ...Option) (*Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	s := &Service{llmClient: llmClient, refine: true}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Input carries everything the extraction prompt is built from.
type Input struct {
	TranscriptText   string
	Notes            string
	MemoryContext    string
	SOPContext       string
	CustomCategories []model.CustomCategory
}

// Extract produces the structured payload for a transcript. When refinement
// is enabled the first result is passed through a second LLM call that fills
// gaps and drops hallucinated items.
func (s *Service) Extract(ctx context.Context, input Input) (*model.ExtractionPayload, error) {
	if strings.TrimSpace(input.TranscriptText) == "" {
		return nil, goerr.New("transcript text is empty")
	}

	payload, err := s.generate(ctx, buildExtractionSystemPrompt(input.CustomCategories), buildExtractionUserPrompt(input))
	if err != nil {
		return nil, goerr.Wrap(err, "extraction call failed")
	}

	if !s.refine {
		return payload, nil
	}

	refined, err := s.generate(ctx, refinementSystemPrompt, buildRefinementUserPrompt(input, payload))
	if err != nil {
		return nil, goerr.Wrap(err, "refinement call failed")
	}
	return refined, nil
}

func (s *Service) generate(ctx context.Context, systemPrompt, userPrompt string) (*model.ExtractionPayload, error) {
	session, err := s.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(buildPayloadSchema()),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(userPrompt))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content from LLM")
	}
	if len(resp.Texts) == 0 {
		return nil, goerr.New("empty LLM response")
	}

	var payload model.ExtractionPayload
	if err := json.Unmarshal([]byte(resp.Texts[0]), &payload); err != nil {
		return nil, goerr.Wrap(err, "failed to parse extraction response", goerr.V("response", resp.Texts[0]))
	}

	normalizePayload(&payload)
	return &payload, nil
}

// normalizePayload replaces nil category slices with empty ones so that
// downstream JSON rendering always shows the four standard categories.
func normalizePayload(p *model.ExtractionPayload) {
	if p.FollowUpTasks == nil {
		p.FollowUpTasks = []model.FollowUpTask{}
	}
	if p.MedicationInstructions == nil {
		p.MedicationInstructions = []model.MedicationInstruction{}
	}
	if p.ClientReminders == nil {
		p.ClientReminders = []model.ClientReminder{}
	}
	if p.ClinicianTodos == nil {
		p.ClinicianTodos = []model.ClinicianTodo{}
	}
}

// InitialConfidence is a completeness heuristic over the first-pass result,
// used only to steer the refinement prompt.
func InitialConfidence(p *model.ExtractionPayload) string {
	switch n := p.TotalItems(); {
	case n >= 5:
		return "high"
	case n >= 2:
		return "medium"
	default:
		return "low"
	}
}

func buildExtractionSystemPrompt(custom []model.CustomCategory) string {
	var sb strings.Builder

	sb.WriteString("You are a clinical documentation assistant. Extract structured, actionable information from the medical visit transcript.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. Extract items into four categories:\n")
	sb.WriteString("   - follow_up_tasks: appointments, tests, or check-ins to arrange\n")
	sb.WriteString("   - medication_instructions: medications with dosage, frequency, and duration when stated\n")
	sb.WriteString("   - client_reminders: instructions addressed to the patient\n")
	sb.WriteString("   - clinician_todos: tasks the clinician must perform\n")
	sb.WriteString("2. Only extract information explicitly present in the transcript. Never invent medications, dosages, or dates.\n")
	sb.WriteString("3. Keep descriptions specific and actionable.\n")
	sb.WriteString("4. Use empty arrays for categories with no items.\n")

	if len(custom) > 0 {
		sb.WriteString("5. Additionally extract items for these caller-defined categories into custom_extractions:\n")
		for _, c := range custom {
			if c.Description != "" {
				sb.WriteString(fmt.Sprintf("   - %s: %s\n", c.Name, c.Description))
			} else {
				sb.WriteString(fmt.Sprintf("   - %s\n", c.Name))
			}
		}
	}

	return sb.String()
}

func buildExtractionUserPrompt(input Input) string {
	var sb strings.Builder

	if input.MemoryContext != "" {
		sb.WriteString(input.MemoryContext)
		sb.WriteString("\n\n")
	}
	if input.SOPContext != "" {
		sb.WriteString("## Standard Operating Procedures\n")
		sb.WriteString(input.SOPContext)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Transcript\n")
	sb.WriteString(input.TranscriptText)

	if input.Notes != "" {
		sb.WriteString("\n\n## Clinician Notes\n")
		sb.WriteString(input.Notes)
	}

	return sb.String()
}

const refinementSystemPrompt = `You are reviewing a structured extraction from a medical visit transcript. Improve it:

1. Remove items not supported by the transcript.
2. Add clearly stated items the first pass missed.
3. Complete missing dosage, frequency, priority, or due date fields when the transcript states them.
4. Keep everything else unchanged. Return the full corrected extraction.`

func buildRefinementUserPrompt(input Input, payload *model.ExtractionPayload) string {
	var sb strings.Builder

	encoded, err := json.Marshal(payload)
	if err != nil {
		// Marshaling a plain payload struct cannot realistically fail; keep
		// the prompt usable regardless.
		encoded = []byte("{}")
	}

	sb.WriteString("## Original Extraction (initial confidence: ")
	sb.WriteString(InitialConfidence(payload))
	sb.WriteString(")\n")
	sb.Write(encoded)
	sb.WriteString("\n\n## Transcript\n")
	sb.WriteString(input.TranscriptText)

	if input.Notes != "" {
		sb.WriteString("\n\n## Clinician Notes\n")
		sb.WriteString(input.Notes)
	}
	if input.MemoryContext != "" {
		sb.WriteString("\n\n## Reference Context\n")
		sb.WriteString(input.MemoryContext)
	}
	if input.SOPContext != "" {
		sb.WriteString("\n\n## Standard Operating Procedures\n")
		sb.WriteString(input.SOPContext)
	}

	return sb.String()
}
