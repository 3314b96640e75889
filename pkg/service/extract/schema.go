package extract

import (
	"github.com/m-mizutani/gollem"
)

// buildPayloadSchema constrains LLM output to the extraction payload shape.
func buildPayloadSchema() *gollem.Parameter {
	taskItem := func(extra map[string]*gollem.Parameter, required ...string) *gollem.Parameter {
		props := map[string]*gollem.Parameter{
			"description": {
				Type:        gollem.TypeString,
				Description: "Specific, actionable description",
			},
			"priority": {
				Type:        gollem.TypeString,
				Description: "Priority when stated: high, medium, or low",
			},
			"due_date": {
				Type:        gollem.TypeString,
				Description: "Due date when stated, ISO 8601",
			},
		}
		for k, v := range extra {
			props[k] = v
		}
		return &gollem.Parameter{
			Type:       gollem.TypeObject,
			Properties: props,
			Required:   required,
		}
	}

	return &gollem.Parameter{
		Type: gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"follow_up_tasks": {
				Type: gollem.TypeArray,
				Items: taskItem(map[string]*gollem.Parameter{
					"assigned_to": {
						Type:        gollem.TypeString,
						Description: "Who carries out the task, when stated",
					},
				}, "description"),
			},
			"medication_instructions": {
				Type: gollem.TypeArray,
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"medication_name": {
							Type:        gollem.TypeString,
							Description: "Name of the medication",
						},
						"dosage": {
							Type:        gollem.TypeString,
							Description: "Dosage when stated, e.g. 10mg",
						},
						"frequency": {
							Type:        gollem.TypeString,
							Description: "Frequency when stated, e.g. twice daily",
						},
						"duration": {
							Type:        gollem.TypeString,
							Description: "Duration when stated",
						},
						"special_instructions": {
							Type:        gollem.TypeString,
							Description: "Additional directions when stated",
						},
					},
					Required: []string{"medication_name"},
				},
			},
			"client_reminders": {
				Type: gollem.TypeArray,
				Items: taskItem(map[string]*gollem.Parameter{
					"reminder_type": {
						Type:        gollem.TypeString,
						Description: "Kind of reminder, e.g. appointment, lifestyle",
					},
				}, "description"),
			},
			"clinician_todos": {
				Type: gollem.TypeArray,
				Items: taskItem(map[string]*gollem.Parameter{
					"task_type": {
						Type:        gollem.TypeString,
						Description: "Kind of task, e.g. referral, documentation",
					},
				}, "description"),
			},
			"custom_extractions": {
				Type: gollem.TypeArray,
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"category_name": {
							Type:        gollem.TypeString,
							Description: "Name of the caller-defined category",
						},
						"items": {
							Type:  gollem.TypeArray,
							Items: &gollem.Parameter{Type: gollem.TypeString},
						},
						"confidence": {
							Type:        gollem.TypeNumber,
							Description: "Confidence in this category's items, 0.0 to 1.0",
						},
					},
					Required: []string{"category_name", "items"},
				},
			},
		},
		Required: []string{"follow_up_tasks", "medication_instructions", "client_reminders", "clinician_todos"},
	}
}
