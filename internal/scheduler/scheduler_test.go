package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-loom/internal/core/memory"
	"go-loom/internal/cronclock"
	"go-loom/internal/domain"
	"go-loom/internal/log"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type triggerCall struct {
	workflowID uuid.UUID
	userID     uuid.UUID
	runName    string
	scheduled  bool
}

// fakeTrigger records calls and can fail per workflow id.
type fakeTrigger struct {
	mu    sync.Mutex
	calls []triggerCall
	fail  map[uuid.UUID]error
}

func newFakeTrigger() *fakeTrigger {
	return &fakeTrigger{fail: make(map[uuid.UUID]error)}
}

func (f *fakeTrigger) Execute(ctx context.Context, workflowID, userID uuid.UUID, input map[string]any, runName string, scheduled bool) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, triggerCall{workflowID, userID, runName, scheduled})
	if err, ok := f.fail[workflowID]; ok {
		return uuid.Nil, err
	}
	return uuid.New(), nil
}

func (f *fakeTrigger) callsFor(workflowID uuid.UUID) []triggerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []triggerCall
	for _, c := range f.calls {
		if c.workflowID == workflowID {
			out = append(out, c)
		}
	}
	return out
}

func newTestScheduler(t *testing.T) (*Scheduler, *memory.ScheduleStore, *fakeTrigger) {
	t.Helper()
	store := memory.NewScheduleStore()
	trigger := newFakeTrigger()
	sched := New(store, trigger, cronclock.New(), time.Minute, log.GetLogger())
	return sched, store, trigger
}

func dueSchedule(t *testing.T, store *memory.ScheduleStore, name string, at time.Time) *domain.WorkflowSchedule {
	t.Helper()
	s := domain.NewWorkflowSchedule(uuid.New(), uuid.New(), name, "*/5 * * * *", "UTC")
	s.NextRunAt = &at
	require.NoError(t, store.Create(context.Background(), s))
	return s
}

func TestTickTriggersDueSchedules(t *testing.T) {
	sched, store, trigger := newTestScheduler(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	due := dueSchedule(t, store, "hourly digest", now.Add(-time.Minute))
	notDue := dueSchedule(t, store, "later", now.Add(time.Hour))

	sched.Tick(context.Background(), now)

	calls := trigger.callsFor(due.WorkflowID)
	require.Len(t, calls, 1)
	assert.Equal(t, due.OwnerID, calls[0].userID)
	assert.Equal(t, "Scheduled run - hourly digest", calls[0].runName)
	assert.True(t, calls[0].scheduled)
	assert.Empty(t, trigger.callsFor(notDue.WorkflowID))

	got, err := store.GetByID(context.Background(), due.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RunsCount)
	require.NotNil(t, got.LastRunAt)
	assert.True(t, got.LastRunAt.Equal(now))
	require.NotNil(t, got.NextRunAt)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC), got.NextRunAt.UTC())
}

func TestTickCompletesScheduleAtMaxRuns(t *testing.T) {
	sched, store, trigger := newTestScheduler(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := dueSchedule(t, store, "one shot", now.Add(-time.Minute))
	one := 1
	s.MaxRuns = &one
	require.NoError(t, store.Update(context.Background(), s))

	sched.Tick(context.Background(), now)

	got, err := store.GetByID(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleCompleted, got.Status)
	assert.Equal(t, 1, got.RunsCount)
	require.Len(t, trigger.callsFor(s.WorkflowID), 1)

	// a completed schedule never fires again
	sched.Tick(context.Background(), now.Add(10*time.Minute))
	assert.Len(t, trigger.callsFor(s.WorkflowID), 1)
}

func TestTickIsolatesFailures(t *testing.T) {
	sched, store, trigger := newTestScheduler(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	broken := dueSchedule(t, store, "broken", now.Add(-time.Minute))
	healthy := dueSchedule(t, store, "healthy", now.Add(-time.Minute))
	trigger.fail[broken.WorkflowID] = errors.New("queue unavailable")

	sched.Tick(context.Background(), now)

	// the healthy schedule fired and advanced
	require.Len(t, trigger.callsFor(healthy.WorkflowID), 1)
	got, err := store.GetByID(context.Background(), healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RunsCount)

	// the broken one stays ACTIVE with nextRunAt untouched, so it retries
	got, err = store.GetByID(context.Background(), broken.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleActive, got.Status)
	assert.Equal(t, 0, got.RunsCount)
	require.NotNil(t, got.NextRunAt)
	assert.True(t, got.NextRunAt.Before(now))

	sched.Tick(context.Background(), now.Add(time.Minute))
	assert.Len(t, trigger.callsFor(broken.WorkflowID), 2)
}

func TestTickFailsScheduleWhenDefinitionGone(t *testing.T) {
	sched, store, trigger := newTestScheduler(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := dueSchedule(t, store, "orphaned", now.Add(-time.Minute))
	trigger.fail[s.WorkflowID] = domain.ErrNotFound

	sched.Tick(context.Background(), now)

	got, err := store.GetByID(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleFailed, got.Status)

	// FAILED schedules are excluded from future ticks
	sched.Tick(context.Background(), now.Add(time.Minute))
	assert.Len(t, trigger.callsFor(s.WorkflowID), 1)
}

func TestPauseAndResume(t *testing.T) {
	sched, store, _ := newTestScheduler(t)
	resumeAt := time.Date(2026, 3, 1, 12, 3, 0, 0, time.UTC)
	sched.now = func() time.Time { return resumeAt }

	past := resumeAt.Add(-time.Hour)
	s := dueSchedule(t, store, "digest", past)

	require.NoError(t, sched.Pause(context.Background(), s.ID, s.OwnerID))
	got, err := store.GetByID(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SchedulePaused, got.Status)

	// pausing twice fails
	assert.Error(t, sched.Pause(context.Background(), s.ID, s.OwnerID))

	// resume recomputes nextRunAt from now, not from the stale timestamp
	require.NoError(t, sched.Resume(context.Background(), s.ID, s.OwnerID))
	got, err = store.GetByID(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleActive, got.Status)
	require.NotNil(t, got.NextRunAt)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC), got.NextRunAt.UTC())
}

func TestPauseRejectsForeignOwner(t *testing.T) {
	sched, store, _ := newTestScheduler(t)
	s := dueSchedule(t, store, "digest", time.Now())

	err := sched.Pause(context.Background(), s.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
