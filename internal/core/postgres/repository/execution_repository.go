package repository

import (
	"context"
	"errors"

	"go-loom/internal/core/ports"
	"go-loom/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type executionRepository struct {
	db *gorm.DB
}

// NewExecutionRepository creates the gorm-backed ExecutionRepository.
func NewExecutionRepository(db *gorm.DB) *executionRepository {
	return &executionRepository{db: db}
}

func (r *executionRepository) Create(ctx context.Context, exec *domain.WorkflowExecution) error {
	return r.db.WithContext(ctx).Create(exec).Error
}

func (r *executionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowExecution, error) {
	var exec domain.WorkflowExecution
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&exec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &exec, nil
}

func (r *executionRepository) List(ctx context.Context, filter ports.ExecutionFilter) ([]domain.WorkflowExecution, error) {
	query := r.db.WithContext(ctx).Model(&domain.WorkflowExecution{})
	if filter.WorkflowID != nil {
		query = query.Where("workflow_id = ?", *filter.WorkflowID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var execs []domain.WorkflowExecution
	err := query.Order("created_at DESC").Find(&execs).Error
	return execs, err
}

// Update persists with optimistic locking on the version column, the same
// RowsAffected check that guards task claims in multi-worker setups.
func (r *executionRepository) Update(ctx context.Context, exec *domain.WorkflowExecution) error {
	result := r.db.WithContext(ctx).
		Model(&domain.WorkflowExecution{}).
		Where("id = ? AND version = ?", exec.ID, exec.Version).
		Updates(map[string]interface{}{
			"status":           exec.Status,
			"step_executions":  exec.StepExecutions,
			"error_message":    exec.ErrorMessage,
			"final_output":     exec.FinalOutput,
			"started_at":       exec.StartedAt,
			"completed_at":     exec.CompletedAt,
			"duration_seconds": exec.DurationSeconds,
			"version":          exec.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	exec.Version++
	return nil
}
