package dto

import (
	"time"

	"go-loom/internal/domain"

	"github.com/google/uuid"
)

type IDResponse struct {
	ID uuid.UUID `json:"id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type WorkflowResponse struct {
	ID              uuid.UUID          `json:"id"`
	Name            string             `json:"name"`
	Description     string             `json:"description,omitempty"`
	Category        string             `json:"category,omitempty"`
	Tags            []string           `json:"tags,omitempty"`
	Steps           []domain.Step      `json:"steps"`
	Variables       map[string]any     `json:"variables,omitempty"`
	IsTemplate      bool               `json:"is_template"`
	Schedule        *ScheduleConfigDTO `json:"schedule,omitempty"`
	ExecutionsCount int64              `json:"executions_count"`
	LastExecutionAt *time.Time         `json:"last_execution_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func FromWorkflow(def *domain.WorkflowDefinition) WorkflowResponse {
	resp := WorkflowResponse{
		ID:              def.ID,
		Name:            def.Name,
		Description:     def.Description,
		Category:        def.Category,
		Tags:            def.Tags,
		Steps:           def.Steps,
		Variables:       def.Variables,
		IsTemplate:      def.IsTemplate,
		ExecutionsCount: def.ExecutionsCount,
		LastExecutionAt: def.LastExecutionAt,
		CreatedAt:       def.CreatedAt,
		UpdatedAt:       def.UpdatedAt,
	}
	if def.Schedule != nil {
		resp.Schedule = &ScheduleConfigDTO{
			CronExpression: def.Schedule.CronExpression,
			Timezone:       def.Schedule.Timezone,
		}
	}
	return resp
}

func FromWorkflows(defs []domain.WorkflowDefinition) []WorkflowResponse {
	out := make([]WorkflowResponse, len(defs))
	for i := range defs {
		out[i] = FromWorkflow(&defs[i])
	}
	return out
}

type ExecutionResponse struct {
	ID              uuid.UUID              `json:"id"`
	WorkflowID      uuid.UUID              `json:"workflow_id"`
	RunName         string                 `json:"run_name"`
	Status          string                 `json:"status"`
	InputVariables  map[string]any         `json:"input_variables,omitempty"`
	StepExecutions  []domain.StepExecution `json:"step_executions"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
	FinalOutput     map[string]any         `json:"final_output,omitempty"`
	StartedAt       *time.Time             `json:"started_at,omitempty"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
	DurationSeconds float64                `json:"duration_seconds"`
	CreatedAt       time.Time              `json:"created_at"`
}

func FromExecution(exec *domain.WorkflowExecution) ExecutionResponse {
	return ExecutionResponse{
		ID:              exec.ID,
		WorkflowID:      exec.WorkflowID,
		RunName:         exec.RunName,
		Status:          string(exec.Status),
		InputVariables:  exec.InputVariables,
		StepExecutions:  exec.StepExecutions,
		ErrorMessage:    exec.ErrorMessage,
		FinalOutput:     exec.FinalOutput,
		StartedAt:       exec.StartedAt,
		CompletedAt:     exec.CompletedAt,
		DurationSeconds: exec.DurationSeconds,
		CreatedAt:       exec.CreatedAt,
	}
}

func FromExecutions(execs []domain.WorkflowExecution) []ExecutionResponse {
	out := make([]ExecutionResponse, len(execs))
	for i := range execs {
		out[i] = FromExecution(&execs[i])
	}
	return out
}

type ScheduleResponse struct {
	ID             uuid.UUID      `json:"id"`
	WorkflowID     uuid.UUID      `json:"workflow_id"`
	Name           string         `json:"name"`
	CronExpression string         `json:"cron_expression"`
	Timezone       string         `json:"timezone,omitempty"`
	Status         string         `json:"status"`
	InputVariables map[string]any `json:"input_variables,omitempty"`
	MaxRuns        *int           `json:"max_runs,omitempty"`
	RunsCount      int            `json:"runs_count"`
	NextRunAt      *time.Time     `json:"next_run_at,omitempty"`
	LastRunAt      *time.Time     `json:"last_run_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func FromSchedule(sched *domain.WorkflowSchedule) ScheduleResponse {
	return ScheduleResponse{
		ID:             sched.ID,
		WorkflowID:     sched.WorkflowID,
		Name:           sched.Name,
		CronExpression: sched.CronExpression,
		Timezone:       sched.Timezone,
		Status:         string(sched.Status),
		InputVariables: sched.InputVariables,
		MaxRuns:        sched.MaxRuns,
		RunsCount:      sched.RunsCount,
		NextRunAt:      sched.NextRunAt,
		LastRunAt:      sched.LastRunAt,
		CreatedAt:      sched.CreatedAt,
	}
}

func FromSchedules(scheds []domain.WorkflowSchedule) []ScheduleResponse {
	out := make([]ScheduleResponse, len(scheds))
	for i := range scheds {
		out[i] = FromSchedule(&scheds[i])
	}
	return out
}

type PreviewCronResponse struct {
	NextRuns []time.Time `json:"next_runs"`
}
