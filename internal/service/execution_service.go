package service

import (
	"context"

	"go-loom/internal/core/ports"
	"go-loom/internal/domain"

	"github.com/google/uuid"
)

// Runner is the slice of the engine the execution service needs.
type Runner interface {
	Execute(ctx context.Context, workflowID, userID uuid.UUID, input map[string]any, runName string, scheduled bool) (uuid.UUID, error)
	StopExecution(ctx context.Context, executionID, userID uuid.UUID) error
}

// ExecutionService is the user-facing execution surface: trigger, inspect,
// list, stop. Triggering returns the execution id immediately; steps run
// asynchronously on the engine pool.
type ExecutionService interface {
	Execute(ctx context.Context, workflowID, userID uuid.UUID, input map[string]any, runName string) (uuid.UUID, error)
	Get(ctx context.Context, executionID, userID uuid.UUID) (*domain.WorkflowExecution, error)
	List(ctx context.Context, userID uuid.UUID, filter ports.ExecutionFilter) ([]domain.WorkflowExecution, error)
	Stop(ctx context.Context, executionID, userID uuid.UUID) error
}

type executionService struct {
	runner     Runner
	executions ports.ExecutionRepository
}

func NewExecutionService(runner Runner, executions ports.ExecutionRepository) ExecutionService {
	return &executionService{runner: runner, executions: executions}
}

func (s *executionService) Execute(ctx context.Context, workflowID, userID uuid.UUID, input map[string]any, runName string) (uuid.UUID, error) {
	return s.runner.Execute(ctx, workflowID, userID, input, runName, false)
}

func (s *executionService) Get(ctx context.Context, executionID, userID uuid.UUID) (*domain.WorkflowExecution, error) {
	exec, err := s.executions.GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if exec.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return exec, nil
}

func (s *executionService) List(ctx context.Context, userID uuid.UUID, filter ports.ExecutionFilter) ([]domain.WorkflowExecution, error) {
	// listings are always pinned to the caller
	filter.UserID = &userID
	return s.executions.List(ctx, filter)
}

func (s *executionService) Stop(ctx context.Context, executionID, userID uuid.UUID) error {
	return s.runner.StopExecution(ctx, executionID, userID)
}
