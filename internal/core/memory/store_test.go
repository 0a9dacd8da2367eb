package memory

import (
	"context"
	"testing"
	"time"

	"go-loom/internal/core/ports"
	"go-loom/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionStoreRoundTrip(t *testing.T) {
	store := NewDefinitionStore()
	ctx := context.Background()
	owner := uuid.New()

	def := domain.NewWorkflowDefinition(owner, "pipeline")
	def.Tags = []string{"content", "daily"}
	def.Steps = []domain.Step{
		{StepID: "a", Type: domain.StepTypeText, Order: 1},
		{StepID: "b", Type: domain.StepTypeImage, DependsOn: []string{"a"}, Order: 2},
		{StepID: "c", Type: domain.StepTypeSocial, DependsOn: []string{"b"}, Order: 3},
	}
	def.Variables = map[string]any{"topic": "go"}
	require.NoError(t, store.Create(ctx, def))

	got, err := store.GetByID(ctx, def.ID)
	require.NoError(t, err)
	require.Len(t, got.Steps, 3)
	// step order survives storage
	assert.Equal(t, "a", got.Steps[0].StepID)
	assert.Equal(t, "b", got.Steps[1].StepID)
	assert.Equal(t, "c", got.Steps[2].StepID)
	assert.Equal(t, []string{"b"}, got.Steps[2].DependsOn)

	// mutating the returned copy must not leak into the store
	got.Steps[0].StepID = "mutated"
	got.Variables["topic"] = "rust"
	again, err := store.GetByID(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Steps[0].StepID)
	assert.Equal(t, "go", again.Variables["topic"])
}

func TestDefinitionStoreNotFound(t *testing.T) {
	store := NewDefinitionStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, uuid.New()), domain.ErrNotFound)
	assert.ErrorIs(t, store.IncrementExecutionStats(ctx, uuid.New(), time.Now()), domain.ErrNotFound)
}

func TestDefinitionStoreListSplitsTemplates(t *testing.T) {
	store := NewDefinitionStore()
	ctx := context.Background()
	owner := uuid.New()

	plain := domain.NewWorkflowDefinition(owner, "plain")
	tmpl := domain.NewWorkflowDefinition(owner, "template")
	tmpl.IsTemplate = true
	other := domain.NewWorkflowDefinition(uuid.New(), "foreign")
	require.NoError(t, store.Create(ctx, plain))
	require.NoError(t, store.Create(ctx, tmpl))
	require.NoError(t, store.Create(ctx, other))

	defs, err := store.List(ctx, owner, false)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "plain", defs[0].Name)

	templates, err := store.List(ctx, owner, true)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "template", templates[0].Name)
}

func TestExecutionStoreOptimisticUpdate(t *testing.T) {
	store := NewExecutionStore()
	ctx := context.Background()

	exec := domain.NewWorkflowExecution(uuid.New(), uuid.New(), "", nil)
	require.NoError(t, store.Create(ctx, exec))

	first, err := store.GetByID(ctx, exec.ID)
	require.NoError(t, err)
	second, err := store.GetByID(ctx, exec.ID)
	require.NoError(t, err)

	first.Status = domain.ExecutionRunning
	require.NoError(t, store.Update(ctx, first))
	assert.Equal(t, 2, first.Version)

	// the stale copy loses
	second.Status = domain.ExecutionPaused
	assert.ErrorIs(t, store.Update(ctx, second), domain.ErrConflict)

	got, err := store.GetByID(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionRunning, got.Status)
}

func TestExecutionStoreListFilters(t *testing.T) {
	store := NewExecutionStore()
	ctx := context.Background()
	workflowID, userID := uuid.New(), uuid.New()

	mine := domain.NewWorkflowExecution(workflowID, userID, "", nil)
	require.NoError(t, store.Create(ctx, mine))
	done := domain.NewWorkflowExecution(workflowID, userID, "", nil)
	done.Status = domain.ExecutionCompleted
	require.NoError(t, store.Create(ctx, done))
	foreign := domain.NewWorkflowExecution(uuid.New(), uuid.New(), "", nil)
	require.NoError(t, store.Create(ctx, foreign))

	byWorkflow, err := store.List(ctx, ports.ExecutionFilter{WorkflowID: &workflowID})
	require.NoError(t, err)
	assert.Len(t, byWorkflow, 2)

	completed := domain.ExecutionCompleted
	byStatus, err := store.List(ctx, ports.ExecutionFilter{UserID: &userID, Status: &completed})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, done.ID, byStatus[0].ID)

	limited, err := store.List(ctx, ports.ExecutionFilter{WorkflowID: &workflowID, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	offset, err := store.List(ctx, ports.ExecutionFilter{WorkflowID: &workflowID, Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, offset)
}

func TestScheduleStoreFindDue(t *testing.T) {
	store := NewScheduleStore()
	ctx := context.Background()
	now := time.Now()

	overdue := domain.NewWorkflowSchedule(uuid.New(), uuid.New(), "overdue", "*/5 * * * *", "UTC")
	past := now.Add(-time.Minute)
	overdue.NextRunAt = &past
	require.NoError(t, store.Create(ctx, overdue))

	upcoming := domain.NewWorkflowSchedule(uuid.New(), uuid.New(), "upcoming", "*/5 * * * *", "UTC")
	future := now.Add(time.Hour)
	upcoming.NextRunAt = &future
	require.NoError(t, store.Create(ctx, upcoming))

	paused := domain.NewWorkflowSchedule(uuid.New(), uuid.New(), "paused", "*/5 * * * *", "UTC")
	paused.Status = domain.SchedulePaused
	paused.NextRunAt = &past
	require.NoError(t, store.Create(ctx, paused))

	due, err := store.FindDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "overdue", due[0].Name)
}

func TestScheduleStoreMarkTriggered(t *testing.T) {
	store := NewScheduleStore()
	ctx := context.Background()

	s := domain.NewWorkflowSchedule(uuid.New(), uuid.New(), "digest", "0 9 * * *", "UTC")
	require.NoError(t, store.Create(ctx, s))

	at := time.Now()
	next := at.Add(24 * time.Hour)
	require.NoError(t, store.MarkTriggered(ctx, s.ID, at, next))
	require.NoError(t, store.MarkTriggered(ctx, s.ID, at, next))

	got, err := store.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RunsCount)
	require.NotNil(t, got.LastRunAt)
	assert.True(t, got.LastRunAt.Equal(at))
	require.NotNil(t, got.NextRunAt)
	assert.True(t, got.NextRunAt.Equal(next))
}

func TestQueueBlocksUntilPush(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "first"))
	require.NoError(t, q.Push(ctx, "second"))

	id, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", id)
	id, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", id)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.Pop(cancelled)
	assert.Error(t, err)
}

func TestBusFanOut(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	event := domain.ExecutionEvent{Type: domain.EventExecutionStarted, ExecutionID: uuid.New()}
	require.NoError(t, bus.Publish(ctx, event))

	for _, sub := range []<-chan domain.ExecutionEvent{a, b} {
		select {
		case got := <-sub:
			assert.Equal(t, event.ExecutionID, got.ExecutionID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}
