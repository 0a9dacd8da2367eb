package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "PENDING"
	ExecutionRunning   ExecutionStatus = "RUNNING"
	ExecutionCompleted ExecutionStatus = "COMPLETED"
	ExecutionFailed    ExecutionStatus = "FAILED"
	ExecutionPaused    ExecutionStatus = "PAUSED"
)

// Terminal reports whether the status is final. A terminal execution never
// returns to RUNNING.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed || s == ExecutionPaused
}

type StepStatus string

const (
	StepPending   StepStatus = "PENDING"
	StepRunning   StepStatus = "RUNNING"
	StepCompleted StepStatus = "COMPLETED"
	StepFailed    StepStatus = "FAILED"
)

// StepExecution records one step run. InputData holds the fully-resolved
// prompt handed to the executor.
type StepExecution struct {
	StepID          string     `json:"step_id"`
	Status          StepStatus `json:"status"`
	InputData       string     `json:"input_data,omitempty"`
	OutputData      string     `json:"output_data,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
}

type WorkflowExecution struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	WorkflowID uuid.UUID `gorm:"type:uuid;index;not null"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null"`
	RunName    string    `gorm:"type:varchar(200)"`

	Status         ExecutionStatus                      `gorm:"type:varchar(20);index;default:'PENDING'"`
	InputVariables datatypes.JSONMap                    `gorm:"type:jsonb"`
	StepExecutions datatypes.JSONSlice[StepExecution]   `gorm:"type:jsonb"`
	ErrorMessage   string
	FinalOutput    datatypes.JSONMap `gorm:"type:jsonb"`

	StartedAt       *time.Time
	CompletedAt     *time.Time
	DurationSeconds float64

	// Version backs optimistic locking: every save is conditioned on the
	// stored version so a manual stop and engine step completion can never
	// silently overwrite each other.
	Version int `gorm:"default:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewWorkflowExecution(workflowID, userID uuid.UUID, runName string, input map[string]any) *WorkflowExecution {
	if runName == "" {
		runName = "Manual run"
	}
	vars := datatypes.JSONMap{}
	for k, v := range input {
		vars[k] = v
	}
	now := time.Now()
	return &WorkflowExecution{
		ID:             uuid.New(),
		WorkflowID:     workflowID,
		UserID:         userID,
		RunName:        runName,
		Status:         ExecutionPending,
		InputVariables: vars,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Finish stamps completion time and duration relative to StartedAt.
func (e *WorkflowExecution) Finish(status ExecutionStatus, at time.Time) {
	e.Status = status
	e.CompletedAt = &at
	if e.StartedAt != nil {
		e.DurationSeconds = at.Sub(*e.StartedAt).Seconds()
	}
}
