package repository

import (
	"context"
	"errors"
	"time"

	"go-loom/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type scheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository creates the gorm-backed ScheduleRepository.
func NewScheduleRepository(db *gorm.DB) *scheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, sched *domain.WorkflowSchedule) error {
	return r.db.WithContext(ctx).Create(sched).Error
}

func (r *scheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowSchedule, error) {
	var sched domain.WorkflowSchedule
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sched).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &sched, nil
}

func (r *scheduleRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.WorkflowSchedule, error) {
	var scheds []domain.WorkflowSchedule
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&scheds).Error
	return scheds, err
}

func (r *scheduleRepository) Update(ctx context.Context, sched *domain.WorkflowSchedule) error {
	result := r.db.WithContext(ctx).Save(sched)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.WorkflowSchedule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *scheduleRepository) FindDue(ctx context.Context, now time.Time) ([]domain.WorkflowSchedule, error) {
	var due []domain.WorkflowSchedule
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_run_at <= ?", domain.ScheduleActive, now).
		Order("next_run_at ASC").
		Find(&due).Error
	return due, err
}

func (r *scheduleRepository) MarkTriggered(ctx context.Context, id uuid.UUID, at, next time.Time) error {
	// runs_count bumps atomically alongside the timestamps
	result := r.db.WithContext(ctx).
		Model(&domain.WorkflowSchedule{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"runs_count":  gorm.Expr("runs_count + ?", 1),
			"last_run_at": at,
			"next_run_at": next,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *scheduleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ScheduleStatus) error {
	result := r.db.WithContext(ctx).
		Model(&domain.WorkflowSchedule{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
