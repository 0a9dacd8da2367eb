package dto

import (
	"go-loom/internal/domain"
)

type StepDTO struct {
	StepID         string         `json:"step_id" binding:"required"`
	Type           string         `json:"type" binding:"required"`
	Provider       string         `json:"provider"`
	Model          string         `json:"model"`
	PromptTemplate string         `json:"prompt_template"`
	DependsOn      []string       `json:"depends_on"`
	Settings       map[string]any `json:"settings"`
	Order          int            `json:"order"`
}

type ScheduleConfigDTO struct {
	CronExpression string `json:"cron_expression" binding:"required"`
	Timezone       string `json:"timezone"`
}

type SaveWorkflowRequest struct {
	Name        string             `json:"name" binding:"required"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	Tags        []string           `json:"tags"`
	Steps       []StepDTO          `json:"steps" binding:"required,min=1"`
	Variables   map[string]any     `json:"variables"`
	IsTemplate  bool               `json:"is_template"`
	Schedule    *ScheduleConfigDTO `json:"schedule"`
}

// ToDomain maps the request onto a definition, leaving identity fields for
// the service to fill.
func (r SaveWorkflowRequest) ToDomain() *domain.WorkflowDefinition {
	def := &domain.WorkflowDefinition{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Tags:        r.Tags,
		IsTemplate:  r.IsTemplate,
		Variables:   r.Variables,
	}
	for _, s := range r.Steps {
		def.Steps = append(def.Steps, domain.Step{
			StepID:         s.StepID,
			Type:           domain.StepType(s.Type),
			Provider:       s.Provider,
			Model:          s.Model,
			PromptTemplate: s.PromptTemplate,
			DependsOn:      s.DependsOn,
			Settings:       s.Settings,
			Order:          s.Order,
		})
	}
	if r.Schedule != nil {
		def.Schedule = &domain.ScheduleConfig{
			CronExpression: r.Schedule.CronExpression,
			Timezone:       r.Schedule.Timezone,
		}
	}
	return def
}

type DuplicateWorkflowRequest struct {
	Name string `json:"name"`
}

type ExecuteWorkflowRequest struct {
	RunName        string         `json:"run_name"`
	InputVariables map[string]any `json:"input_variables"`
}

type SaveScheduleRequest struct {
	WorkflowID     string         `json:"workflow_id" binding:"required,uuid"`
	Name           string         `json:"name" binding:"required"`
	CronExpression string         `json:"cron_expression" binding:"required"`
	Timezone       string         `json:"timezone"`
	InputVariables map[string]any `json:"input_variables"`
	MaxRuns        *int           `json:"max_runs"`
}

type PreviewCronRequest struct {
	CronExpression string `json:"cron_expression" binding:"required"`
	Timezone       string `json:"timezone"`
	Count          int    `json:"count"`
}
