// Package contextsel picks which retrieved records go into the extraction
// prompt. Candidates are scored on four factors and admitted under a token
// budget so that low-value context never crowds out the transcript itself.
package contextsel

import (
	"regexp"
	"strings"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
)

// Relevance score weights.
const (
	similarityWeight   = 0.4
	domainWeight       = 0.3
	payloadWeight      = 0.2
	completenessWeight = 0.1
)

// medicalKeywords groups clinical vocabulary into categories. Each category
// with keyword overlap between query and candidate contributes 0.2.
var medicalKeywords = map[string][]string{
	"medication": {"prescribe", "medication", "drug", "dosage", "frequency", "duration"},
	"follow_up":  {"schedule", "follow-up", "appointment", "return", "monitor"},
	"tests":      {"blood work", "lab test", "x-ray", "mri", "ct scan", "ultrasound"},
	"symptoms":   {"pain", "symptom", "condition", "diagnosis", "treatment"},
	"vitals":     {"blood pressure", "heart rate", "temperature", "weight", "height"},
}

var medicalTermRe = regexp.MustCompile(`\b(medication|prescribe|dosage|schedule|test|appointment|monitor|symptom|diagnosis|treatment)\b`)

var actionWords = []string{"schedule", "order", "prescribe", "monitor", "test", "refer"}

// domainRelevance measures clinical vocabulary shared by query and candidate.
func domainRelevance(queryText, candidateText string) float64 {
	query := strings.ToLower(queryText)
	candidate := strings.ToLower(candidateText)

	score := 0.0
	for _, keywords := range medicalKeywords {
		shared := 0
		for _, kw := range keywords {
			if strings.Contains(query, kw) && strings.Contains(candidate, kw) {
				shared++
			}
		}
		score += float64(shared) / float64(len(keywords)) * 0.2
	}

	queryTerms := termSet(query)
	candidateTerms := termSet(candidate)
	if len(queryTerms) > 0 && len(candidateTerms) > 0 {
		intersection := 0
		for term := range queryTerms {
			if _, ok := candidateTerms[term]; ok {
				intersection++
			}
		}
		union := len(queryTerms) + len(candidateTerms) - intersection
		score += float64(intersection) / float64(union) * 0.3
	}

	return clamp01(score)
}

func termSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, m := range medicalTermRe.FindAllString(text, -1) {
		set[m] = struct{}{}
	}
	return set
}

// payloadQuality rewards specific, actionable extraction payloads attached to
// a candidate. Candidates without a payload score zero.
func payloadQuality(payload *model.ExtractionPayload) float64 {
	if payload == nil {
		return 0
	}

	score := 0.0
	score += categoryQuality(followUpItems(payload.FollowUpTasks))
	score += categoryQuality(medicationItems(payload.MedicationInstructions))
	score += categoryQuality(reminderItems(payload.ClientReminders))
	score += categoryQuality(todoItems(payload.ClinicianTodos))

	return clamp01(score)
}

type qualityItem struct {
	description string
	hasPriority bool
	hasDueDate  bool
}

// categoryQuality scores one extraction category, worth up to 0.25.
func categoryQuality(items []qualityItem) float64 {
	if len(items) == 0 {
		return 0
	}

	total := 0.0
	for _, item := range items {
		if len(item.description) > 10 && containsActionWord(item.description) {
			total += 1
		}
		if item.hasPriority {
			total += 0.5
		}
		if item.hasDueDate {
			total += 0.5
		}
	}
	return total / float64(len(items)) * 0.25
}

func followUpItems(tasks []model.FollowUpTask) []qualityItem {
	items := make([]qualityItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, qualityItem{t.Description, t.Priority != "", t.DueDate != ""})
	}
	return items
}

func medicationItems(meds []model.MedicationInstruction) []qualityItem {
	items := make([]qualityItem, 0, len(meds))
	for _, m := range meds {
		desc := strings.TrimSpace(m.MedicationName + " " + m.Dosage + " " + m.Frequency)
		items = append(items, qualityItem{description: desc})
	}
	return items
}

func reminderItems(reminders []model.ClientReminder) []qualityItem {
	items := make([]qualityItem, 0, len(reminders))
	for _, r := range reminders {
		items = append(items, qualityItem{r.Description, r.Priority != "", r.DueDate != ""})
	}
	return items
}

func todoItems(todos []model.ClinicianTodo) []qualityItem {
	items := make([]qualityItem, 0, len(todos))
	for _, td := range todos {
		items = append(items, qualityItem{td.Description, td.Priority != "", td.DueDate != ""})
	}
	return items
}

func containsActionWord(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range actionWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// completeness rewards candidate text that is informative on its own: a
// useful length, clinical vocabulary, some structure, and actionable wording.
func completeness(text string) float64 {
	if text == "" {
		return 0
	}

	score := 0.0

	switch n := len(text); {
	case n >= 100 && n <= 2000:
		score += 0.3
	case n > 2000:
		score += 0.2
	}

	if terms := medicalTermRe.FindAllString(strings.ToLower(text), -1); len(terms) > 0 {
		bonus := float64(len(terms)) * 0.1
		if bonus > 0.4 {
			bonus = 0.4
		}
		score += bonus
	}

	if strings.ContainsAny(text, ":-•*") {
		score += 0.2
	}

	if containsActionWord(text) {
		score += 0.1
	}

	return clamp01(score)
}

// scoreCandidate computes the weighted relevance score for one candidate.
func scoreCandidate(queryText string, candidate model.ContextCandidate) model.ScoredContext {
	subscores := model.ContextSubscores{
		Similarity:      clamp01(candidate.SimilarityScore),
		DomainRelevance: domainRelevance(queryText, candidate.Text),
		PayloadQuality:  payloadQuality(candidate.Extraction),
		Completeness:    completeness(candidate.Text),
	}

	relevance := subscores.Similarity*similarityWeight +
		subscores.DomainRelevance*domainWeight +
		subscores.PayloadQuality*payloadWeight +
		subscores.Completeness*completenessWeight

	return model.ScoredContext{
		Candidate:       candidate,
		RelevanceScore:  relevance,
		Subscores:       subscores,
		EstimatedTokens: estimateTokens(candidate.Text),
	}
}

// estimateTokens approximates token count as one token per four characters.
func estimateTokens(text string) int {
	return len(text) / 4
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
