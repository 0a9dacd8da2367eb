package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-loom/internal/core/ports"
	"go-loom/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultTick = 60 * time.Second

// Trigger is the slice of the execution engine the scheduler needs.
type Trigger interface {
	Execute(ctx context.Context, workflowID, userID uuid.UUID, input map[string]any, runName string, scheduled bool) (uuid.UUID, error)
}

// Scheduler is the fixed-interval loop that fires due cron schedules. Each
// due schedule is processed independently: one trigger failure never aborts
// the tick for the others.
type Scheduler struct {
	schedules ports.ScheduleRepository
	trigger   Trigger
	clock     ports.CronClock
	tick      time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

func New(schedules ports.ScheduleRepository, trigger Trigger, clock ports.CronClock, tick time.Duration, logger *logrus.Logger) *Scheduler {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Scheduler{
		schedules: schedules,
		trigger:   trigger,
		clock:     clock,
		tick:      tick,
		logger:    logger,
		now:       time.Now,
	}
}

// Run begins the tick loop. Call in main as a goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Infof("scheduler: started, tick=%s", s.tick)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infof("scheduler: shutting down")
			return
		case <-ticker.C:
			s.Tick(ctx, s.now())
		}
	}
}

// Tick processes every due schedule once. Exported so tests can drive the
// scheduler without the timer.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	due, err := s.schedules.FindDue(ctx, now)
	if err != nil {
		s.logger.Errorf("scheduler: failed to query due schedules: %v", err)
		return
	}
	for i := range due {
		s.process(ctx, &due[i], now)
	}
}

func (s *Scheduler) process(ctx context.Context, sched *domain.WorkflowSchedule, now time.Time) {
	if sched.RunsExhausted() {
		if err := s.schedules.UpdateStatus(ctx, sched.ID, domain.ScheduleCompleted); err != nil {
			s.logger.Errorf("scheduler: failed to complete schedule %s: %v", sched.ID, err)
		}
		return
	}

	runName := "Scheduled run - " + sched.Name
	_, err := s.trigger.Execute(ctx, sched.WorkflowID, sched.OwnerID, sched.InputVariables, runName, true)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// structural: the definition is gone, the schedule can never fire again
			s.logger.Errorf("scheduler: definition for schedule %s missing, marking FAILED", sched.ID)
			if updErr := s.schedules.UpdateStatus(ctx, sched.ID, domain.ScheduleFailed); updErr != nil {
				s.logger.Errorf("scheduler: failed to fail schedule %s: %v", sched.ID, updErr)
			}
			return
		}
		// transient: nextRunAt stays put so the next tick retries
		s.logger.Errorf("scheduler: failed to trigger schedule %s: %v", sched.ID, err)
		return
	}

	next, err := s.clock.Next(sched.CronExpression, sched.Timezone, now)
	if err != nil {
		s.logger.Errorf("scheduler: failed to compute next run for schedule %s: %v", sched.ID, err)
		if updErr := s.schedules.UpdateStatus(ctx, sched.ID, domain.ScheduleFailed); updErr != nil {
			s.logger.Errorf("scheduler: failed to fail schedule %s: %v", sched.ID, updErr)
		}
		return
	}

	if err := s.schedules.MarkTriggered(ctx, sched.ID, now, next); err != nil {
		s.logger.Errorf("scheduler: failed to record trigger of schedule %s: %v", sched.ID, err)
		return
	}
	sched.RunsCount++

	if sched.RunsExhausted() {
		if err := s.schedules.UpdateStatus(ctx, sched.ID, domain.ScheduleCompleted); err != nil {
			s.logger.Errorf("scheduler: failed to complete schedule %s: %v", sched.ID, err)
		}
	}
}

// Pause suspends an ACTIVE schedule.
func (s *Scheduler) Pause(ctx context.Context, scheduleID, ownerID uuid.UUID) error {
	sched, err := s.owned(ctx, scheduleID, ownerID)
	if err != nil {
		return err
	}
	if sched.Status != domain.ScheduleActive {
		return fmt.Errorf("schedule %s is %s, only ACTIVE schedules can be paused", scheduleID, sched.Status)
	}
	return s.schedules.UpdateStatus(ctx, scheduleID, domain.SchedulePaused)
}

// Resume reactivates a PAUSED schedule, recomputing nextRunAt from now
// rather than resuming the stale timestamp.
func (s *Scheduler) Resume(ctx context.Context, scheduleID, ownerID uuid.UUID) error {
	sched, err := s.owned(ctx, scheduleID, ownerID)
	if err != nil {
		return err
	}
	if sched.Status != domain.SchedulePaused {
		return fmt.Errorf("schedule %s is %s, only PAUSED schedules can be resumed", scheduleID, sched.Status)
	}

	next, err := s.clock.Next(sched.CronExpression, sched.Timezone, s.now())
	if err != nil {
		return err
	}
	sched.Status = domain.ScheduleActive
	sched.NextRunAt = &next
	return s.schedules.Update(ctx, sched)
}

func (s *Scheduler) owned(ctx context.Context, scheduleID, ownerID uuid.UUID) (*domain.WorkflowSchedule, error) {
	sched, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if sched.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return sched, nil
}
