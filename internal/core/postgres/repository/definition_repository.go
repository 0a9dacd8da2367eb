package repository

import (
	"context"
	"errors"
	"time"

	"go-loom/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type definitionRepository struct {
	db *gorm.DB
}

// NewDefinitionRepository creates the gorm-backed DefinitionRepository.
func NewDefinitionRepository(db *gorm.DB) *definitionRepository {
	return &definitionRepository{db: db}
}

func (r *definitionRepository) Create(ctx context.Context, def *domain.WorkflowDefinition) error {
	return r.db.WithContext(ctx).Create(def).Error
}

func (r *definitionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	var def domain.WorkflowDefinition
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&def).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &def, nil
}

func (r *definitionRepository) List(ctx context.Context, ownerID uuid.UUID, isTemplate bool) ([]domain.WorkflowDefinition, error) {
	var defs []domain.WorkflowDefinition
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND is_template = ?", ownerID, isTemplate).
		Order("created_at DESC").
		Find(&defs).Error
	return defs, err
}

func (r *definitionRepository) Update(ctx context.Context, def *domain.WorkflowDefinition) error {
	result := r.db.WithContext(ctx).Save(def)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *definitionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.WorkflowDefinition{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *definitionRepository) IncrementExecutionStats(ctx context.Context, id uuid.UUID, at time.Time) error {
	// single atomic increment, never read-modify-write
	result := r.db.WithContext(ctx).
		Model(&domain.WorkflowDefinition{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"executions_count":  gorm.Expr("executions_count + ?", 1),
			"last_execution_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
