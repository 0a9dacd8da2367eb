package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventExecutionStarted   EventType = "execution_started"
	EventExecutionCompleted EventType = "execution_completed"
	EventExecutionFailed    EventType = "execution_failed"
	EventExecutionPaused    EventType = "execution_paused"
	EventStepCompleted      EventType = "step_completed"
	EventStepFailed         EventType = "step_failed"
)

// ExecutionEvent is published on the event bus as an execution moves through
// its lifecycle. Consumed by the metrics recorder.
type ExecutionEvent struct {
	Type        EventType `json:"type"`
	ExecutionID uuid.UUID `json:"execution_id"`
	WorkflowID  uuid.UUID `json:"workflow_id"`
	UserID      uuid.UUID `json:"user_id"`
	StepID      string    `json:"step_id,omitempty"`
	StepType    StepType  `json:"step_type,omitempty"`
	Error       string    `json:"error,omitempty"`

	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
