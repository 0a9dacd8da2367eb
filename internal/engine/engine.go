package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-loom/internal/core/ports"
	"go-loom/internal/domain"
	"go-loom/internal/executor"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	DefaultWorkers     = 10
	DefaultStepTimeout = 120 * time.Second
)

type Config struct {
	// Workers bounds concurrent in-flight executions; excess triggers wait
	// in the admission queue as PENDING records.
	Workers     int
	StepTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.StepTimeout <= 0 {
		c.StepTimeout = DefaultStepTimeout
	}
	return c
}

// executionPlan is the definition snapshot taken at trigger time. A
// definition edited mid-run never changes an in-flight execution.
type executionPlan struct {
	definition *domain.WorkflowDefinition
	steps      []domain.Step
}

// Engine runs workflow executions: it admits them onto a bounded worker
// pool, resolves step order, interpolates variables, dispatches to step
// executors and persists every state transition.
type Engine struct {
	definitions ports.DefinitionRepository
	executions  ports.ExecutionRepository
	queue       ports.ExecutionQueue
	bus         ports.EventBus
	registry    *executor.Registry
	cfg         Config
	logger      *logrus.Logger

	plans sync.Map // execution id -> *executionPlan
	stops sync.Map // execution id -> struct{}, cooperative stop flags
	wg    sync.WaitGroup
}

func New(
	definitions ports.DefinitionRepository,
	executions ports.ExecutionRepository,
	queue ports.ExecutionQueue,
	bus ports.EventBus,
	registry *executor.Registry,
	cfg Config,
	logger *logrus.Logger,
) *Engine {
	return &Engine{
		definitions: definitions,
		executions:  executions,
		queue:       queue,
		bus:         bus,
		registry:    registry,
		cfg:         cfg.withDefaults(),
		logger:      logger,
	}
}

// Start launches the execution worker pool. Workers exit when ctx is done.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Infof("engine: starting %d execution workers", e.cfg.Workers)
	for i := 0; i < e.cfg.Workers; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for {
				id, err := e.queue.Pop(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					e.logger.Errorf("engine: queue pop failed: %v", err)
					time.Sleep(time.Second)
					continue
				}
				e.runExecution(ctx, id)
			}
		}()
	}
}

// Wait blocks until every worker has exited.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Execute admits one run of a workflow. It persists a PENDING execution and
// returns its id immediately; the steps run asynchronously on the pool.
// Schedule-triggered runs bypass the ownership check but still require the
// definition to exist.
func (e *Engine) Execute(ctx context.Context, workflowID, userID uuid.UUID, input map[string]any, runName string, scheduled bool) (uuid.UUID, error) {
	def, err := e.definitions.GetByID(ctx, workflowID)
	if err != nil {
		return uuid.Nil, err
	}
	if !scheduled && def.OwnerID != userID {
		return uuid.Nil, domain.ErrNotFound
	}

	plan, err := BuildPlan(def.Steps)
	if err != nil {
		return uuid.Nil, err
	}

	exec := domain.NewWorkflowExecution(workflowID, userID, runName, input)
	e.plans.Store(exec.ID.String(), &executionPlan{definition: def, steps: plan})

	if err := e.executions.Create(ctx, exec); err != nil {
		e.plans.Delete(exec.ID.String())
		return uuid.Nil, fmt.Errorf("failed to persist execution: %w", err)
	}

	if err := e.queue.Push(ctx, exec.ID.String()); err != nil {
		e.plans.Delete(exec.ID.String())
		exec.Finish(domain.ExecutionFailed, time.Now())
		exec.ErrorMessage = fmt.Sprintf("failed to enqueue execution: %v", err)
		if saveErr := e.executions.Update(ctx, exec); saveErr != nil {
			e.logger.Errorf("engine: failed to record enqueue failure for %s: %v", exec.ID, saveErr)
		}
		return uuid.Nil, fmt.Errorf("failed to enqueue execution: %w", err)
	}

	return exec.ID, nil
}

// StopExecution requests cooperative cancellation of a RUNNING execution.
// The flag is observed between steps; an in-flight executor call is never
// aborted, and its result is discarded rather than appended.
func (e *Engine) StopExecution(ctx context.Context, executionID, userID uuid.UUID) error {
	exec, err := e.executions.GetByID(ctx, executionID)
	if err != nil {
		return err
	}
	if exec.UserID != userID {
		return domain.ErrNotFound
	}
	if exec.Status != domain.ExecutionRunning {
		return domain.ErrNotRunning
	}

	// Flag first, then flip the record, so the run loop can never append
	// another step after the PAUSED status lands.
	e.stops.Store(executionID.String(), struct{}{})

	exec.Finish(domain.ExecutionPaused, time.Now())
	if err := e.executions.Update(ctx, exec); err != nil {
		e.stops.Delete(executionID.String())
		if err == domain.ErrConflict {
			return domain.ErrNotRunning
		}
		return err
	}

	e.publish(ctx, domain.ExecutionEvent{
		Type:        domain.EventExecutionPaused,
		ExecutionID: exec.ID,
		WorkflowID:  exec.WorkflowID,
		UserID:      exec.UserID,
		OccurredAt:  time.Now(),
	})
	return nil
}

func (e *Engine) stopRequested(id uuid.UUID) bool {
	_, ok := e.stops.Load(id.String())
	return ok
}

func (e *Engine) cleanup(id uuid.UUID) {
	e.plans.Delete(id.String())
	e.stops.Delete(id.String())
}

// runExecution drives one execution to a terminal state. Steps run strictly
// sequentially in resolved order; every persisted transition is optimistic
// so a concurrent stop wins cleanly.
func (e *Engine) runExecution(ctx context.Context, idStr string) {
	execID, err := uuid.Parse(idStr)
	if err != nil {
		e.logger.Errorf("engine: bad execution id %q: %v", idStr, err)
		return
	}
	defer e.cleanup(execID)

	exec, err := e.executions.GetByID(ctx, execID)
	if err != nil {
		e.logger.Errorf("engine: failed to load execution %s: %v", execID, err)
		return
	}
	if exec.Status != domain.ExecutionPending {
		e.logger.Infof("engine: execution %s already %s, skipping", execID, exec.Status)
		return
	}

	plan, err := e.resolvePlan(ctx, exec)
	if err != nil {
		e.failExecution(ctx, exec, err.Error())
		return
	}

	startedAt := time.Now()
	exec.Status = domain.ExecutionRunning
	exec.StartedAt = &startedAt
	if err := e.executions.Update(ctx, exec); err != nil {
		e.logger.Errorf("engine: failed to start execution %s: %v", execID, err)
		return
	}
	e.publish(ctx, domain.ExecutionEvent{
		Type:        domain.EventExecutionStarted,
		ExecutionID: exec.ID,
		WorkflowID:  exec.WorkflowID,
		UserID:      exec.UserID,
		OccurredAt:  startedAt,
	})

	outputs := make(map[string]string, len(plan.steps))

	for _, step := range plan.steps {
		if e.stopRequested(execID) {
			e.logger.Infof("engine: execution %s stopped before step %s", execID, step.StepID)
			return
		}

		vars := e.buildContext(plan.definition, exec, step, outputs)
		prompt := Interpolate(step.PromptTemplate, vars)
		settings := InterpolateSettings(step.Settings, vars)

		stepStart := time.Now()
		exec.StepExecutions = append(exec.StepExecutions, domain.StepExecution{
			StepID:    step.StepID,
			Status:    domain.StepRunning,
			InputData: prompt,
			StartedAt: &stepStart,
		})
		if err := e.executions.Update(ctx, exec); err != nil {
			e.logger.Infof("engine: execution %s no longer running, abandoning: %v", execID, err)
			return
		}

		result, stepErr := e.dispatch(ctx, step, prompt, settings)

		entry := &exec.StepExecutions[len(exec.StepExecutions)-1]
		stepEnd := time.Now()
		entry.CompletedAt = &stepEnd
		entry.DurationSeconds = stepEnd.Sub(stepStart).Seconds()

		if stepErr != nil {
			entry.Status = domain.StepFailed
			entry.ErrorMessage = stepErr.Error()
			exec.ErrorMessage = fmt.Sprintf("step %q failed: %v", step.StepID, stepErr)
			exec.Finish(domain.ExecutionFailed, stepEnd)
			if err := e.executions.Update(ctx, exec); err != nil {
				e.logger.Errorf("engine: failed to record failure of %s: %v", execID, err)
				return
			}
			e.publish(ctx, domain.ExecutionEvent{
				Type:        domain.EventStepFailed,
				ExecutionID: exec.ID,
				WorkflowID:  exec.WorkflowID,
				UserID:      exec.UserID,
				StepID:      step.StepID,
				StepType:    step.Type,
				Error:       stepErr.Error(),
				OccurredAt:  stepEnd,
			})
			e.publish(ctx, domain.ExecutionEvent{
				Type:            domain.EventExecutionFailed,
				ExecutionID:     exec.ID,
				WorkflowID:      exec.WorkflowID,
				UserID:          exec.UserID,
				Error:           exec.ErrorMessage,
				DurationSeconds: exec.DurationSeconds,
				OccurredAt:      stepEnd,
			})
			return
		}

		entry.Status = domain.StepCompleted
		entry.OutputData = result.Content
		outputs[step.StepID] = result.Content
		if err := e.executions.Update(ctx, exec); err != nil {
			e.logger.Infof("engine: execution %s no longer running, abandoning: %v", execID, err)
			return
		}
		e.publish(ctx, domain.ExecutionEvent{
			Type:            domain.EventStepCompleted,
			ExecutionID:     exec.ID,
			WorkflowID:      exec.WorkflowID,
			UserID:          exec.UserID,
			StepID:          step.StepID,
			StepType:        step.Type,
			DurationSeconds: entry.DurationSeconds,
			OccurredAt:      stepEnd,
		})
	}

	stepOutputs := make(map[string]any, len(outputs))
	for id, out := range outputs {
		stepOutputs[id] = out
	}
	completedAt := time.Now()
	exec.FinalOutput = datatypes.JSONMap{
		"outputs":         stepOutputs,
		"total_steps":     len(plan.steps),
		"completed_steps": len(plan.steps),
	}
	exec.Finish(domain.ExecutionCompleted, completedAt)
	if err := e.executions.Update(ctx, exec); err != nil {
		e.logger.Errorf("engine: failed to complete execution %s: %v", execID, err)
		return
	}

	if err := e.definitions.IncrementExecutionStats(ctx, exec.WorkflowID, completedAt); err != nil {
		e.logger.Errorf("engine: failed to bump execution stats for %s: %v", exec.WorkflowID, err)
	}

	e.publish(ctx, domain.ExecutionEvent{
		Type:            domain.EventExecutionCompleted,
		ExecutionID:     exec.ID,
		WorkflowID:      exec.WorkflowID,
		UserID:          exec.UserID,
		DurationSeconds: exec.DurationSeconds,
		OccurredAt:      completedAt,
	})
}

// failExecution moves an execution to FAILED before any step has run.
func (e *Engine) failExecution(ctx context.Context, exec *domain.WorkflowExecution, reason string) {
	now := time.Now()
	exec.ErrorMessage = reason
	exec.Finish(domain.ExecutionFailed, now)
	if err := e.executions.Update(ctx, exec); err != nil {
		e.logger.Errorf("engine: failed to record failure of %s: %v", exec.ID, err)
		return
	}
	e.publish(ctx, domain.ExecutionEvent{
		Type:        domain.EventExecutionFailed,
		ExecutionID: exec.ID,
		WorkflowID:  exec.WorkflowID,
		UserID:      exec.UserID,
		Error:       reason,
		OccurredAt:  now,
	})
}

// resolvePlan returns the trigger-time snapshot, or rebuilds it when the
// process restarted between admission and pickup.
func (e *Engine) resolvePlan(ctx context.Context, exec *domain.WorkflowExecution) (*executionPlan, error) {
	if cached, ok := e.plans.Load(exec.ID.String()); ok {
		return cached.(*executionPlan), nil
	}
	def, err := e.definitions.GetByID(ctx, exec.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("workflow definition %s no longer exists", exec.WorkflowID)
	}
	steps, err := BuildPlan(def.Steps)
	if err != nil {
		return nil, err
	}
	return &executionPlan{definition: def, steps: steps}, nil
}

// buildContext assembles the substitution context for one step: workflow
// variable defaults, overridden by the run's input variables, plus
// step_<id> entries for every completed step and previous_output from the
// last-listed dependency.
func (e *Engine) buildContext(def *domain.WorkflowDefinition, exec *domain.WorkflowExecution, step domain.Step, outputs map[string]string) map[string]any {
	vars := make(map[string]any, len(def.Variables)+len(exec.InputVariables)+len(outputs)+1)
	for k, v := range def.Variables {
		vars[k] = v
	}
	for k, v := range exec.InputVariables {
		vars[k] = v
	}
	for id, out := range outputs {
		vars["step_"+id] = out
	}
	if len(step.DependsOn) > 0 {
		last := step.DependsOn[len(step.DependsOn)-1]
		if out, ok := outputs[last]; ok {
			vars["previous_output"] = out
		}
	}
	return vars
}

// dispatch calls the executor for the step's type under the per-step
// timeout. A timed-out call is a step failure; the in-flight goroutine is
// left to drain into its buffered channel rather than forcibly aborted.
func (e *Engine) dispatch(ctx context.Context, step domain.Step, prompt string, settings map[string]any) (*ports.StepResult, error) {
	ex, err := e.registry.Get(step.Type)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.StepTimeout)
	defer cancel()

	type outcome struct {
		res *ports.StepResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, execErr := ex.Execute(callCtx, step, prompt, settings)
		done <- outcome{res, execErr}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		if o.res == nil {
			return nil, fmt.Errorf("executor for %s returned no result", step.Type)
		}
		return o.res, nil
	case <-callCtx.Done():
		return nil, fmt.Errorf("step timed out after %s: %w", e.cfg.StepTimeout, callCtx.Err())
	}
}

func (e *Engine) publish(ctx context.Context, event domain.ExecutionEvent) {
	if err := e.bus.Publish(ctx, event); err != nil {
		e.logger.Errorf("engine: failed to publish %s event: %v", event.Type, err)
	}
}
