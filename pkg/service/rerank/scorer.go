package rerank

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// LLMScorer judges query/document relevance with a JSON-constrained LLM
// session.
type LLMScorer struct {
	llmClient gollem.LLMClient
}

var _ Scorer = &LLMScorer{}

func NewLLMScorer(llmClient gollem.LLMClient) *LLMScorer {
	return &LLMScorer{llmClient: llmClient}
}

type scoreResponse struct {
	Relevance float64 `json:"relevance"`
}

const scorerSystemPrompt = `You are a clinical relevance judge. Given a medical transcript query and a candidate document, rate how useful the candidate is as a reference example for extracting structured information from the query.

Return a JSON object with a single field "relevance", a number between 0.0 (useless) and 1.0 (near-identical clinical situation). Judge clinical content: shared medications, conditions, and care actions matter; shared filler phrasing does not.`

func buildScoreSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Type: gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"relevance": {
				Type:        gollem.TypeNumber,
				Description: "Relevance of the candidate to the query, 0.0 to 1.0",
			},
		},
		Required: []string{"relevance"},
	}
}

func (s *LLMScorer) Score(ctx context.Context, query, document string) (float64, error) {
	session, err := s.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(buildScoreSchema()),
		gollem.WithSessionSystemPrompt(scorerSystemPrompt),
	)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create rerank session")
	}

	prompt := fmt.Sprintf("## Query\n%s\n\n## Candidate\n%s", query, document)
	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return 0, goerr.Wrap(err, "failed to score candidate")
	}
	if len(resp.Texts) == 0 {
		return 0, goerr.New("empty rerank response")
	}

	var parsed scoreResponse
	if err := json.Unmarshal([]byte(resp.Texts[0]), &parsed); err != nil {
		return 0, goerr.Wrap(err, "failed to parse rerank response", goerr.V("response", resp.Texts[0]))
	}

	if parsed.Relevance < 0 {
		return 0, nil
	}
	if parsed.Relevance > 1 {
		return 1, nil
	}
	return parsed.Relevance, nil
}
