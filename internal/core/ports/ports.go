package ports

import (
	"context"
	"time"

	"go-loom/internal/domain"

	"github.com/google/uuid"
)

// DefinitionRepository is CRUD access to workflow definitions and templates.
type DefinitionRepository interface {
	Create(ctx context.Context, def *domain.WorkflowDefinition) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error)

	// List returns an owner's definitions, filtered on the template flag.
	List(ctx context.Context, ownerID uuid.UUID, isTemplate bool) ([]domain.WorkflowDefinition, error)

	Update(ctx context.Context, def *domain.WorkflowDefinition) error

	Delete(ctx context.Context, id uuid.UUID) error

	// IncrementExecutionStats bumps executions_count by one and stamps
	// last_execution_at as a single atomic update, never read-modify-write.
	IncrementExecutionStats(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ExecutionFilter narrows execution listings.
type ExecutionFilter struct {
	WorkflowID *uuid.UUID
	UserID     *uuid.UUID
	Status     *domain.ExecutionStatus
	Since      *time.Time
	Limit      int
	Offset     int
}

// ExecutionRepository persists workflow execution records.
type ExecutionRepository interface {
	Create(ctx context.Context, exec *domain.WorkflowExecution) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowExecution, error)

	List(ctx context.Context, filter ExecutionFilter) ([]domain.WorkflowExecution, error)

	// Update persists the record's mutable fields with optimistic locking:
	// the save is conditioned on exec.Version matching the stored version
	// and bumps it by one, mirrored back onto exec. A stale version returns
	// domain.ErrConflict, which is how a manual stop and engine step
	// completion are kept from overwriting each other.
	Update(ctx context.Context, exec *domain.WorkflowExecution) error
}

// ScheduleRepository persists cron schedules.
type ScheduleRepository interface {
	Create(ctx context.Context, sched *domain.WorkflowSchedule) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowSchedule, error)

	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.WorkflowSchedule, error)

	Update(ctx context.Context, sched *domain.WorkflowSchedule) error

	Delete(ctx context.Context, id uuid.UUID) error

	// FindDue returns ACTIVE schedules with next_run_at <= now.
	FindDue(ctx context.Context, now time.Time) ([]domain.WorkflowSchedule, error)

	// MarkTriggered atomically records a successful trigger: runs_count+1,
	// last_run_at=at, next_run_at=next.
	MarkTriggered(ctx context.Context, id uuid.UUID, at, next time.Time) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ScheduleStatus) error
}

// ExecutionQueue is the admission queue bounding in-flight executions.
type ExecutionQueue interface {
	// Push enqueues an execution ID for a pool worker to pick up.
	Push(ctx context.Context, executionID string) error

	// Pop blocks until an execution ID is available.
	Pop(ctx context.Context) (string, error)
}

// EventBus broadcasts execution lifecycle events.
type EventBus interface {
	Publish(ctx context.Context, event domain.ExecutionEvent) error

	Subscribe(ctx context.Context) (<-chan domain.ExecutionEvent, error)
}

// StepResult is what a step executor hands back on success.
type StepResult struct {
	Type     string         `json:"type"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// StepExecutor performs one generation call for a step type. Implementations
// wrap the concrete providers and must honor ctx cancellation.
type StepExecutor interface {
	Execute(ctx context.Context, step domain.Step, renderedPrompt string, settings map[string]any) (*StepResult, error)
}

// CronClock encapsulates cron parsing so the underlying library stays
// swappable. Expressions use the standard 5-field grammar; tz is an IANA
// zone name, empty meaning UTC.
type CronClock interface {
	Validate(expr string) error

	Next(expr, tz string, after time.Time) (time.Time, error)

	NextN(expr, tz string, after time.Time, n int) ([]time.Time, error)
}
