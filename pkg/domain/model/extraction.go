package model

import (
	"fmt"
	"strings"
)

// FollowUpTask is an actionable follow-up identified in a visit transcript.
type FollowUpTask struct {
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	AssignedTo  string `json:"assigned_to,omitempty"`
}

// MedicationInstruction is a medication directive extracted from a transcript.
type MedicationInstruction struct {
	MedicationName      string `json:"medication_name"`
	Dosage              string `json:"dosage,omitempty"`
	Frequency           string `json:"frequency,omitempty"`
	Duration            string `json:"duration,omitempty"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
}

// ClientReminder is a reminder addressed to the patient.
type ClientReminder struct {
	ReminderType string `json:"reminder_type,omitempty"`
	Description  string `json:"description"`
	DueDate      string `json:"due_date,omitempty"`
	Priority     string `json:"priority,omitempty"`
}

// ClinicianTodo is a task addressed to the clinician.
type ClinicianTodo struct {
	TaskType    string `json:"task_type,omitempty"`
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

// CustomExtraction holds items for a caller-defined category.
type CustomExtraction struct {
	CategoryName string   `json:"category_name"`
	Items        []string `json:"items"`
	Confidence   float64  `json:"confidence,omitempty"`
}

// ExtractionPayload is the structured result of an extraction call. It is the
// single typed shape used across the pipeline; dynamic payloads from the LLM
// boundary are converted into it on arrival.
type ExtractionPayload struct {
	FollowUpTasks          []FollowUpTask          `json:"follow_up_tasks"`
	MedicationInstructions []MedicationInstruction `json:"medication_instructions"`
	ClientReminders        []ClientReminder        `json:"client_reminders"`
	ClinicianTodos         []ClinicianTodo         `json:"clinician_todos"`
	CustomExtractions      []CustomExtraction      `json:"custom_extractions,omitempty"`
}

// TotalItems counts extracted items across the four standard categories.
func (p *ExtractionPayload) TotalItems() int {
	if p == nil {
		return 0
	}
	return len(p.FollowUpTasks) + len(p.MedicationInstructions) +
		len(p.ClientReminders) + len(p.ClinicianTodos)
}

// IsEmpty reports whether the payload carries no items at all.
func (p *ExtractionPayload) IsEmpty() bool {
	return p.TotalItems() == 0 && (p == nil || len(p.CustomExtractions) == 0)
}

// ToText renders the payload as searchable text. This is the form embedded
// into the vector index for extraction records.
func (p *ExtractionPayload) ToText() string {
	if p == nil {
		return ""
	}

	var parts []string

	if len(p.FollowUpTasks) > 0 {
		parts = append(parts, "Follow-up tasks:")
		for _, task := range p.FollowUpTasks {
			parts = append(parts, fmt.Sprintf("- %s (Priority: %s)", task.Description, task.Priority))
		}
	}

	if len(p.MedicationInstructions) > 0 {
		parts = append(parts, "Medications:")
		for _, med := range p.MedicationInstructions {
			parts = append(parts, fmt.Sprintf("- %s %s %s", med.MedicationName, med.Dosage, med.Frequency))
		}
	}

	if len(p.ClientReminders) > 0 {
		parts = append(parts, "Client reminders:")
		for _, reminder := range p.ClientReminders {
			parts = append(parts, fmt.Sprintf("- %s (%s)", reminder.Description, reminder.ReminderType))
		}
	}

	if len(p.ClinicianTodos) > 0 {
		parts = append(parts, "Clinician tasks:")
		for _, todo := range p.ClinicianTodos {
			parts = append(parts, fmt.Sprintf("- %s (%s)", todo.Description, todo.TaskType))
		}
	}

	return strings.Join(parts, "\n")
}
