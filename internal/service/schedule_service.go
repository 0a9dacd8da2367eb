package service

import (
	"context"
	"time"

	"go-loom/internal/core/ports"
	"go-loom/internal/domain"

	"github.com/google/uuid"
)

// ScheduleLifecycle is the pause/resume slice of the scheduler.
type ScheduleLifecycle interface {
	Pause(ctx context.Context, scheduleID, ownerID uuid.UUID) error
	Resume(ctx context.Context, scheduleID, ownerID uuid.UUID) error
}

// ScheduleService owns the schedule CRUD surface plus cron preview. Creation
// validates the cron expression, requires the target workflow to exist and
// belong to the caller, and seeds nextRunAt so the first tick can fire.
type ScheduleService interface {
	Create(ctx context.Context, ownerID uuid.UUID, sched *domain.WorkflowSchedule) error
	Get(ctx context.Context, id, ownerID uuid.UUID) (*domain.WorkflowSchedule, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]domain.WorkflowSchedule, error)
	Update(ctx context.Context, ownerID uuid.UUID, sched *domain.WorkflowSchedule) error
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
	Pause(ctx context.Context, id, ownerID uuid.UUID) error
	Resume(ctx context.Context, id, ownerID uuid.UUID) error

	// Preview returns the next n fire times of a cron expression without
	// persisting anything.
	Preview(expr, tz string, n int) ([]time.Time, error)
}

type scheduleService struct {
	schedules   ports.ScheduleRepository
	definitions ports.DefinitionRepository
	clock       ports.CronClock
	lifecycle   ScheduleLifecycle
}

func NewScheduleService(schedules ports.ScheduleRepository, definitions ports.DefinitionRepository, clock ports.CronClock, lifecycle ScheduleLifecycle) ScheduleService {
	return &scheduleService{
		schedules:   schedules,
		definitions: definitions,
		clock:       clock,
		lifecycle:   lifecycle,
	}
}

func (s *scheduleService) Create(ctx context.Context, ownerID uuid.UUID, sched *domain.WorkflowSchedule) error {
	if err := s.clock.Validate(sched.CronExpression); err != nil {
		return domain.NewValidationError(domain.CodeInvalidCronExpression, "%v", err)
	}

	def, err := s.definitions.GetByID(ctx, sched.WorkflowID)
	if err != nil {
		return err
	}
	if def.OwnerID != ownerID {
		return domain.ErrNotFound
	}

	if sched.ID == uuid.Nil {
		sched.ID = uuid.New()
	}
	sched.OwnerID = ownerID
	sched.Status = domain.ScheduleActive
	next, err := s.clock.Next(sched.CronExpression, sched.Timezone, time.Now())
	if err != nil {
		return domain.NewValidationError(domain.CodeInvalidCronExpression, "%v", err)
	}
	sched.NextRunAt = &next
	return s.schedules.Create(ctx, sched)
}

func (s *scheduleService) Get(ctx context.Context, id, ownerID uuid.UUID) (*domain.WorkflowSchedule, error) {
	return s.owned(ctx, id, ownerID)
}

func (s *scheduleService) List(ctx context.Context, ownerID uuid.UUID) ([]domain.WorkflowSchedule, error) {
	return s.schedules.ListByOwner(ctx, ownerID)
}

// Update rewrites the user-editable fields. A changed cron expression
// recomputes nextRunAt; scheduler bookkeeping (runsCount, lastRunAt) is
// never overwritten from the outside.
func (s *scheduleService) Update(ctx context.Context, ownerID uuid.UUID, sched *domain.WorkflowSchedule) error {
	existing, err := s.owned(ctx, sched.ID, ownerID)
	if err != nil {
		return err
	}
	if err := s.clock.Validate(sched.CronExpression); err != nil {
		return domain.NewValidationError(domain.CodeInvalidCronExpression, "%v", err)
	}

	existing.Name = sched.Name
	existing.InputVariables = sched.InputVariables
	existing.MaxRuns = sched.MaxRuns
	if existing.CronExpression != sched.CronExpression || existing.Timezone != sched.Timezone {
		existing.CronExpression = sched.CronExpression
		existing.Timezone = sched.Timezone
		next, err := s.clock.Next(existing.CronExpression, existing.Timezone, time.Now())
		if err != nil {
			return domain.NewValidationError(domain.CodeInvalidCronExpression, "%v", err)
		}
		existing.NextRunAt = &next
	}
	if err := s.schedules.Update(ctx, existing); err != nil {
		return err
	}
	*sched = *existing
	return nil
}

func (s *scheduleService) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	if _, err := s.owned(ctx, id, ownerID); err != nil {
		return err
	}
	return s.schedules.Delete(ctx, id)
}

func (s *scheduleService) Pause(ctx context.Context, id, ownerID uuid.UUID) error {
	return s.lifecycle.Pause(ctx, id, ownerID)
}

func (s *scheduleService) Resume(ctx context.Context, id, ownerID uuid.UUID) error {
	return s.lifecycle.Resume(ctx, id, ownerID)
}

func (s *scheduleService) Preview(expr, tz string, n int) ([]time.Time, error) {
	if n <= 0 {
		n = 5
	}
	return s.clock.NextN(expr, tz, time.Now(), n)
}

func (s *scheduleService) owned(ctx context.Context, id, ownerID uuid.UUID) (*domain.WorkflowSchedule, error) {
	sched, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sched.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return sched, nil
}
