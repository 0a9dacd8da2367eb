package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go-loom/internal/core/memory"
	"go-loom/internal/core/ports"
	"go-loom/internal/domain"
	"go-loom/internal/executor"
	"go-loom/internal/log"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type executorFunc func(ctx context.Context, step domain.Step, prompt string, settings map[string]any) (*ports.StepResult, error)

func (f executorFunc) Execute(ctx context.Context, step domain.Step, prompt string, settings map[string]any) (*ports.StepResult, error) {
	return f(ctx, step, prompt, settings)
}

// echoExecutor produces "out-<step id>" so dependency wiring is observable
// in downstream prompts.
func echoExecutor() ports.StepExecutor {
	return executorFunc(func(ctx context.Context, step domain.Step, prompt string, settings map[string]any) (*ports.StepResult, error) {
		return &ports.StepResult{Type: string(step.Type), Content: "out-" + step.StepID}, nil
	})
}

type engineHarness struct {
	definitions *memory.DefinitionStore
	executions  *memory.ExecutionStore
	engine      *Engine
	cancel      context.CancelFunc
}

func newHarness(t *testing.T, cfg Config, register func(r *executor.Registry)) *engineHarness {
	t.Helper()

	definitions := memory.NewDefinitionStore()
	executions := memory.NewExecutionStore()
	queue := memory.NewQueue(16)
	bus := memory.NewBus()

	registry := executor.NewRegistry()
	register(registry)

	eng := New(definitions, executions, queue, bus, registry, cfg, log.GetLogger())

	ctx, cancel := context.WithCancel(context.Background())
	eng.Start(ctx)
	t.Cleanup(func() {
		cancel()
		eng.Wait()
	})

	return &engineHarness{definitions: definitions, executions: executions, engine: eng, cancel: cancel}
}

func registerEcho(r *executor.Registry) {
	for _, st := range domain.StepTypes {
		_ = r.Register(st, echoExecutor())
	}
}

func chainDefinition(owner uuid.UUID) *domain.WorkflowDefinition {
	def := domain.NewWorkflowDefinition(owner, "content pipeline")
	def.Variables = map[string]any{"topic": "compilers"}
	def.Steps = []domain.Step{
		{StepID: "research", Type: domain.StepTypeText, PromptTemplate: "research {topic}", Order: 1},
		{StepID: "write", Type: domain.StepTypeText, PromptTemplate: "expand: {previous_output}", DependsOn: []string{"research"}, Order: 2},
		{StepID: "publish", Type: domain.StepTypeSocial, PromptTemplate: "{step_research}/{previous_output}", DependsOn: []string{"research", "write"}, Order: 3},
	}
	return def
}

func waitTerminal(t *testing.T, executions *memory.ExecutionStore, id uuid.UUID) *domain.WorkflowExecution {
	t.Helper()
	var out *domain.WorkflowExecution
	require.Eventually(t, func() bool {
		exec, err := executions.GetByID(context.Background(), id)
		if err != nil {
			return false
		}
		out = exec
		return exec.Status.Terminal()
	}, 3*time.Second, 10*time.Millisecond)
	return out
}

func TestEngineRunsChainInDependencyOrder(t *testing.T) {
	h := newHarness(t, Config{Workers: 2}, registerEcho)

	owner := uuid.New()
	def := chainDefinition(owner)
	require.NoError(t, h.definitions.Create(context.Background(), def))

	execID, err := h.engine.Execute(context.Background(), def.ID, owner, map[string]any{"topic": "parsers"}, "", false)
	require.NoError(t, err)

	exec := waitTerminal(t, h.executions, execID)
	require.Equal(t, domain.ExecutionCompleted, exec.Status)
	require.Len(t, exec.StepExecutions, 3)

	assert.Equal(t, "research", exec.StepExecutions[0].StepID)
	assert.Equal(t, "write", exec.StepExecutions[1].StepID)
	assert.Equal(t, "publish", exec.StepExecutions[2].StepID)
	for _, se := range exec.StepExecutions {
		assert.Equal(t, domain.StepCompleted, se.Status)
	}

	// input variables override definition defaults
	assert.Equal(t, "research parsers", exec.StepExecutions[0].InputData)
	// previous_output resolves to the last-listed dependency
	assert.Equal(t, "expand: out-research", exec.StepExecutions[1].InputData)
	assert.Equal(t, "out-research/out-write", exec.StepExecutions[2].InputData)

	require.NotNil(t, exec.FinalOutput)
	assert.Equal(t, 3, exec.FinalOutput["total_steps"])
	assert.Equal(t, 3, exec.FinalOutput["completed_steps"])
	outputs, ok := exec.FinalOutput["outputs"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "out-write", outputs["write"])

	require.Eventually(t, func() bool {
		got, err := h.definitions.GetByID(context.Background(), def.ID)
		return err == nil && got.ExecutionsCount == 1 && got.LastExecutionAt != nil
	}, 3*time.Second, 10*time.Millisecond)
}

func TestEngineStepFailureStopsRun(t *testing.T) {
	h := newHarness(t, Config{Workers: 1}, func(r *executor.Registry) {
		for _, st := range domain.StepTypes {
			_ = r.Register(st, executorFunc(func(ctx context.Context, step domain.Step, prompt string, settings map[string]any) (*ports.StepResult, error) {
				if step.StepID == "write" {
					return nil, errors.New("provider rejected the request")
				}
				return &ports.StepResult{Type: string(step.Type), Content: "out-" + step.StepID}, nil
			}))
		}
	})

	owner := uuid.New()
	def := chainDefinition(owner)
	require.NoError(t, h.definitions.Create(context.Background(), def))

	execID, err := h.engine.Execute(context.Background(), def.ID, owner, nil, "", false)
	require.NoError(t, err)

	exec := waitTerminal(t, h.executions, execID)
	require.Equal(t, domain.ExecutionFailed, exec.Status)
	assert.Contains(t, exec.ErrorMessage, `"write"`)
	assert.Contains(t, exec.ErrorMessage, "provider rejected")

	// publish never starts
	require.Len(t, exec.StepExecutions, 2)
	assert.Equal(t, domain.StepCompleted, exec.StepExecutions[0].Status)
	assert.Equal(t, domain.StepFailed, exec.StepExecutions[1].Status)
	assert.Nil(t, exec.FinalOutput)
}

func TestEngineExecuteRejectsForeignWorkflow(t *testing.T) {
	h := newHarness(t, Config{Workers: 1}, registerEcho)

	owner := uuid.New()
	def := chainDefinition(owner)
	require.NoError(t, h.definitions.Create(context.Background(), def))

	_, err := h.engine.Execute(context.Background(), def.ID, uuid.New(), nil, "", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// scheduled runs bypass the ownership check
	_, err = h.engine.Execute(context.Background(), def.ID, uuid.New(), nil, "Scheduled run", true)
	assert.NoError(t, err)
}

func TestEngineExecuteRejectsInvalidGraph(t *testing.T) {
	h := newHarness(t, Config{Workers: 1}, registerEcho)

	owner := uuid.New()
	def := domain.NewWorkflowDefinition(owner, "broken")
	def.Steps = []domain.Step{
		{StepID: "a", Type: domain.StepTypeText, Order: 2},
		{StepID: "b", Type: domain.StepTypeText, DependsOn: []string{"a"}, Order: 1},
	}
	require.NoError(t, h.definitions.Create(context.Background(), def))

	_, err := h.engine.Execute(context.Background(), def.ID, owner, nil, "", false)
	require.Error(t, err)
	verr, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeOrderViolation, verr.Code)

	// nothing was admitted
	execs, err := h.executions.List(context.Background(), ports.ExecutionFilter{})
	require.NoError(t, err)
	assert.Empty(t, execs)
}

func TestEngineStopFreezesStepList(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, Config{Workers: 1}, func(r *executor.Registry) {
		for _, st := range domain.StepTypes {
			_ = r.Register(st, executorFunc(func(ctx context.Context, step domain.Step, prompt string, settings map[string]any) (*ports.StepResult, error) {
				if step.StepID == "research" {
					<-release
				}
				return &ports.StepResult{Type: string(step.Type), Content: "out-" + step.StepID}, nil
			}))
		}
	})

	owner := uuid.New()
	def := chainDefinition(owner)
	require.NoError(t, h.definitions.Create(context.Background(), def))

	execID, err := h.engine.Execute(context.Background(), def.ID, owner, nil, "", false)
	require.NoError(t, err)

	// wait until the first step is persisted as running
	require.Eventually(t, func() bool {
		exec, err := h.executions.GetByID(context.Background(), execID)
		return err == nil && exec.Status == domain.ExecutionRunning && len(exec.StepExecutions) == 1
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, h.engine.StopExecution(context.Background(), execID, owner))
	close(release)

	exec, err := h.executions.GetByID(context.Background(), execID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionPaused, exec.Status)

	// the in-flight step's result is discarded, not appended
	time.Sleep(100 * time.Millisecond)
	exec, err = h.executions.GetByID(context.Background(), execID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionPaused, exec.Status)
	assert.Len(t, exec.StepExecutions, 1)
}

func TestEngineStopRequiresRunning(t *testing.T) {
	h := newHarness(t, Config{Workers: 1}, registerEcho)

	owner := uuid.New()
	def := chainDefinition(owner)
	require.NoError(t, h.definitions.Create(context.Background(), def))

	execID, err := h.engine.Execute(context.Background(), def.ID, owner, nil, "", false)
	require.NoError(t, err)
	waitTerminal(t, h.executions, execID)

	err = h.engine.StopExecution(context.Background(), execID, owner)
	assert.ErrorIs(t, err, domain.ErrNotRunning)

	err = h.engine.StopExecution(context.Background(), execID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngineStepTimeoutFailsStep(t *testing.T) {
	h := newHarness(t, Config{Workers: 1, StepTimeout: 50 * time.Millisecond}, func(r *executor.Registry) {
		for _, st := range domain.StepTypes {
			_ = r.Register(st, executorFunc(func(ctx context.Context, step domain.Step, prompt string, settings map[string]any) (*ports.StepResult, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}))
		}
	})

	owner := uuid.New()
	def := domain.NewWorkflowDefinition(owner, "slow")
	def.Steps = []domain.Step{
		{StepID: "only", Type: domain.StepTypeText, PromptTemplate: "hang", Order: 1},
	}
	require.NoError(t, h.definitions.Create(context.Background(), def))

	execID, err := h.engine.Execute(context.Background(), def.ID, owner, nil, "", false)
	require.NoError(t, err)

	exec := waitTerminal(t, h.executions, execID)
	require.Equal(t, domain.ExecutionFailed, exec.Status)
	assert.Contains(t, exec.ErrorMessage, "timed out")
	require.Len(t, exec.StepExecutions, 1)
	assert.Equal(t, domain.StepFailed, exec.StepExecutions[0].Status)
}

func TestEngineUnregisteredTypeFailsStep(t *testing.T) {
	h := newHarness(t, Config{Workers: 1}, func(r *executor.Registry) {
		_ = r.Register(domain.StepTypeText, echoExecutor())
	})

	owner := uuid.New()
	def := domain.NewWorkflowDefinition(owner, "partial")
	def.Steps = []domain.Step{
		{StepID: "a", Type: domain.StepTypeText, PromptTemplate: "ok", Order: 1},
		{StepID: "b", Type: domain.StepTypeImage, PromptTemplate: "no executor", DependsOn: []string{"a"}, Order: 2},
	}
	require.NoError(t, h.definitions.Create(context.Background(), def))

	execID, err := h.engine.Execute(context.Background(), def.ID, owner, nil, "", false)
	require.NoError(t, err)

	exec := waitTerminal(t, h.executions, execID)
	require.Equal(t, domain.ExecutionFailed, exec.Status)
	assert.Contains(t, exec.ErrorMessage, fmt.Sprintf("%q", "b"))
}

func TestEngineSnapshotSurvivesDefinitionEdit(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, Config{Workers: 1}, func(r *executor.Registry) {
		for _, st := range domain.StepTypes {
			_ = r.Register(st, executorFunc(func(ctx context.Context, step domain.Step, prompt string, settings map[string]any) (*ports.StepResult, error) {
				if step.StepID == "research" {
					<-release
				}
				return &ports.StepResult{Type: string(step.Type), Content: "out-" + step.StepID}, nil
			}))
		}
	})

	owner := uuid.New()
	def := chainDefinition(owner)
	require.NoError(t, h.definitions.Create(context.Background(), def))

	execID, err := h.engine.Execute(context.Background(), def.ID, owner, nil, "", false)
	require.NoError(t, err)

	// shrink the definition mid-run; the snapshot keeps all three steps
	def.Steps = def.Steps[:1]
	require.NoError(t, h.definitions.Update(context.Background(), def))
	close(release)

	exec := waitTerminal(t, h.executions, execID)
	require.Equal(t, domain.ExecutionCompleted, exec.Status)
	assert.Len(t, exec.StepExecutions, 3)
}
