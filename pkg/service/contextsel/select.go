package contextsel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/medscribe-lab/medscribe/pkg/domain/model"
)

// Selection defaults.
const (
	DefaultMaxTokens    = 2000
	DefaultMinRelevance = 0.6

	// After enough candidates are accepted, only near-perfect ones are added.
	diminishingAfter     = 3
	diminishingThreshold = 0.9

	maxSelected = 5
)

// Selector scores and admits context candidates under a token budget.
type Selector struct {
	maxTokens    int
	minRelevance float64
}

type SelectorOption func(*Selector)

func WithMaxTokens(n int) SelectorOption {
	return func(s *Selector) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

func WithMinRelevance(threshold float64) SelectorOption {
	return func(s *Selector) {
		if threshold > 0 {
			s.minRelevance = threshold
		}
	}
}

func NewSelector(options ...SelectorOption) *Selector {
	s := &Selector{
		maxTokens:    DefaultMaxTokens,
		minRelevance: DefaultMinRelevance,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Select scores candidates against the query text and returns the admitted
// subset in descending relevance order. Admission stops at the first
// candidate that fails a gate since later candidates score no higher.
func (s *Selector) Select(queryText string, candidates []model.ContextCandidate) []model.ScoredContext {
	if len(candidates) == 0 {
		return []model.ScoredContext{}
	}

	scored := make([]model.ScoredContext, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, scoreCandidate(queryText, c))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})

	selected := make([]model.ScoredContext, 0, maxSelected)
	totalTokens := 0
	for _, sc := range scored {
		if sc.RelevanceScore < s.minRelevance {
			break
		}
		if totalTokens+sc.EstimatedTokens > s.maxTokens {
			break
		}
		if len(selected) >= diminishingAfter && sc.RelevanceScore < diminishingThreshold {
			break
		}

		selected = append(selected, sc)
		totalTokens += sc.EstimatedTokens

		if len(selected) >= maxSelected {
			break
		}
	}

	return selected
}

// renderTextLimit truncates candidate text in the rendered bundle.
const renderTextLimit = 500

// Render builds the prompt context block: reference-pool examples first, then
// the owner's prior visits, each with at most two items per extraction
// category.
func Render(selected []model.ScoredContext) string {
	if len(selected) == 0 {
		return ""
	}

	var examples, visits []model.ContextCandidate
	for _, sc := range selected {
		if sc.Candidate.OwnerID.IsReferencePool() {
			examples = append(examples, sc.Candidate)
		} else {
			visits = append(visits, sc.Candidate)
		}
	}

	var parts []string

	if len(examples) > 0 {
		parts = append(parts, "RELEVANT EXAMPLE CASES:")
		for i, c := range examples {
			parts = append(parts, fmt.Sprintf("Example Case %d:", i+1))
			parts = append(parts, renderCandidate(c)...)
			parts = append(parts, "")
		}
	}

	if len(visits) > 0 {
		parts = append(parts, "PREVIOUS VISITS:")
		for i, c := range visits {
			parts = append(parts, fmt.Sprintf("Previous Visit %d (Record ID: %s):", i+1, c.RecordID))
			parts = append(parts, renderCandidate(c)...)
			parts = append(parts, "")
		}
	}

	return strings.Join(parts, "\n")
}

func renderCandidate(c model.ContextCandidate) []string {
	parts := []string{"TRANSCRIPT:", truncate(c.Text, renderTextLimit)}

	p := c.Extraction
	if p == nil {
		return parts
	}

	parts = append(parts, "EXTRACTIONS:")

	if len(p.FollowUpTasks) > 0 {
		parts = append(parts, "Follow-up Tasks:")
		for _, task := range capFollowUps(p.FollowUpTasks) {
			parts = append(parts, fmt.Sprintf("  - %s (Priority: %s)", orNA(task.Description), orNA(task.Priority)))
		}
	}

	if len(p.MedicationInstructions) > 0 {
		parts = append(parts, "Medication Instructions:")
		for _, med := range capMedications(p.MedicationInstructions) {
			parts = append(parts, fmt.Sprintf("  - %s %s %s", orNA(med.MedicationName), orNA(med.Dosage), orNA(med.Frequency)))
		}
	}

	if len(p.ClientReminders) > 0 {
		parts = append(parts, "Client Reminders:")
		for _, reminder := range capReminders(p.ClientReminders) {
			parts = append(parts, fmt.Sprintf("  - %s (%s)", orNA(reminder.Description), orNA(reminder.ReminderType)))
		}
	}

	if len(p.ClinicianTodos) > 0 {
		parts = append(parts, "Clinician To-Dos:")
		for _, todo := range capTodos(p.ClinicianTodos) {
			parts = append(parts, fmt.Sprintf("  - %s (%s)", orNA(todo.Description), orNA(todo.TaskType)))
		}
	}

	return parts
}

const itemsPerCategory = 2

func capFollowUps(v []model.FollowUpTask) []model.FollowUpTask {
	if len(v) > itemsPerCategory {
		return v[:itemsPerCategory]
	}
	return v
}

func capMedications(v []model.MedicationInstruction) []model.MedicationInstruction {
	if len(v) > itemsPerCategory {
		return v[:itemsPerCategory]
	}
	return v
}

func capReminders(v []model.ClientReminder) []model.ClientReminder {
	if len(v) > itemsPerCategory {
		return v[:itemsPerCategory]
	}
	return v
}

func capTodos(v []model.ClinicianTodo) []model.ClinicianTodo {
	if len(v) > itemsPerCategory {
		return v[:itemsPerCategory]
	}
	return v
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
