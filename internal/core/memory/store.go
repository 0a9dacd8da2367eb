// Package memory provides in-memory implementations of the persistence
// ports. They back the test suite and store-less local runs; semantics
// (not-found errors, optimistic locking, atomic increments) mirror the
// postgres repositories.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-loom/internal/core/ports"
	"go-loom/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DefinitionStore is an in-memory ports.DefinitionRepository.
type DefinitionStore struct {
	mu   sync.RWMutex
	defs map[uuid.UUID]*domain.WorkflowDefinition
}

func NewDefinitionStore() *DefinitionStore {
	return &DefinitionStore{defs: make(map[uuid.UUID]*domain.WorkflowDefinition)}
}

func (s *DefinitionStore) Create(ctx context.Context, def *domain.WorkflowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs[def.ID] = cloneDefinition(def)
	return nil
}

func (s *DefinitionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.defs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneDefinition(def), nil
}

func (s *DefinitionStore) List(ctx context.Context, ownerID uuid.UUID, isTemplate bool) ([]domain.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.WorkflowDefinition
	for _, def := range s.defs {
		if def.OwnerID == ownerID && def.IsTemplate == isTemplate {
			out = append(out, *cloneDefinition(def))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *DefinitionStore) Update(ctx context.Context, def *domain.WorkflowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[def.ID]; !ok {
		return domain.ErrNotFound
	}
	def.UpdatedAt = time.Now()
	s.defs[def.ID] = cloneDefinition(def)
	return nil
}

func (s *DefinitionStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.defs, id)
	return nil
}

func (s *DefinitionStore) IncrementExecutionStats(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.defs[id]
	if !ok {
		return domain.ErrNotFound
	}
	def.ExecutionsCount++
	stamp := at
	def.LastExecutionAt = &stamp
	def.UpdatedAt = time.Now()
	return nil
}

// ExecutionStore is an in-memory ports.ExecutionRepository.
type ExecutionStore struct {
	mu    sync.RWMutex
	execs map[uuid.UUID]*domain.WorkflowExecution
}

func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{execs: make(map[uuid.UUID]*domain.WorkflowExecution)}
}

func (s *ExecutionStore) Create(ctx context.Context, exec *domain.WorkflowExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs[exec.ID] = cloneExecution(exec)
	return nil
}

func (s *ExecutionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exec, ok := s.execs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneExecution(exec), nil
}

func (s *ExecutionStore) List(ctx context.Context, filter ports.ExecutionFilter) ([]domain.WorkflowExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.WorkflowExecution
	for _, exec := range s.execs {
		if filter.WorkflowID != nil && exec.WorkflowID != *filter.WorkflowID {
			continue
		}
		if filter.UserID != nil && exec.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && exec.Status != *filter.Status {
			continue
		}
		if filter.Since != nil && exec.CreatedAt.Before(*filter.Since) {
			continue
		}
		out = append(out, *cloneExecution(exec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *ExecutionStore) Update(ctx context.Context, exec *domain.WorkflowExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.execs[exec.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != exec.Version {
		return domain.ErrConflict
	}
	exec.Version++
	exec.UpdatedAt = time.Now()
	s.execs[exec.ID] = cloneExecution(exec)
	return nil
}

// ScheduleStore is an in-memory ports.ScheduleRepository.
type ScheduleStore struct {
	mu     sync.RWMutex
	scheds map[uuid.UUID]*domain.WorkflowSchedule
}

func NewScheduleStore() *ScheduleStore {
	return &ScheduleStore{scheds: make(map[uuid.UUID]*domain.WorkflowSchedule)}
}

func (s *ScheduleStore) Create(ctx context.Context, sched *domain.WorkflowSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheds[sched.ID] = cloneSchedule(sched)
	return nil
}

func (s *ScheduleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sched, ok := s.scheds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneSchedule(sched), nil
}

func (s *ScheduleStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.WorkflowSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.WorkflowSchedule
	for _, sched := range s.scheds {
		if sched.OwnerID == ownerID {
			out = append(out, *cloneSchedule(sched))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *ScheduleStore) Update(ctx context.Context, sched *domain.WorkflowSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scheds[sched.ID]; !ok {
		return domain.ErrNotFound
	}
	sched.UpdatedAt = time.Now()
	s.scheds[sched.ID] = cloneSchedule(sched)
	return nil
}

func (s *ScheduleStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scheds[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.scheds, id)
	return nil
}

func (s *ScheduleStore) FindDue(ctx context.Context, now time.Time) ([]domain.WorkflowSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []domain.WorkflowSchedule
	for _, sched := range s.scheds {
		if sched.Status == domain.ScheduleActive && sched.NextRunAt != nil && !sched.NextRunAt.After(now) {
			due = append(due, *cloneSchedule(sched))
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRunAt.Before(*due[j].NextRunAt) })
	return due, nil
}

func (s *ScheduleStore) MarkTriggered(ctx context.Context, id uuid.UUID, at, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched, ok := s.scheds[id]
	if !ok {
		return domain.ErrNotFound
	}
	sched.RunsCount++
	last, upcoming := at, next
	sched.LastRunAt = &last
	sched.NextRunAt = &upcoming
	sched.UpdatedAt = time.Now()
	return nil
}

func (s *ScheduleStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ScheduleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched, ok := s.scheds[id]
	if !ok {
		return domain.ErrNotFound
	}
	sched.Status = status
	sched.UpdatedAt = time.Now()
	return nil
}

func cloneDefinition(def *domain.WorkflowDefinition) *domain.WorkflowDefinition {
	copied := *def
	copied.Tags = append(datatypes.JSONSlice[string]{}, def.Tags...)
	copied.Steps = append(datatypes.JSONSlice[domain.Step]{}, def.Steps...)
	copied.Variables = cloneMap(def.Variables)
	if def.Schedule != nil {
		sc := *def.Schedule
		copied.Schedule = &sc
	}
	return &copied
}

func cloneExecution(exec *domain.WorkflowExecution) *domain.WorkflowExecution {
	copied := *exec
	copied.InputVariables = cloneMap(exec.InputVariables)
	copied.StepExecutions = append(datatypes.JSONSlice[domain.StepExecution]{}, exec.StepExecutions...)
	copied.FinalOutput = cloneMap(exec.FinalOutput)
	return &copied
}

func cloneSchedule(sched *domain.WorkflowSchedule) *domain.WorkflowSchedule {
	copied := *sched
	copied.InputVariables = cloneMap(sched.InputVariables)
	return &copied
}

func cloneMap(m datatypes.JSONMap) datatypes.JSONMap {
	if m == nil {
		return nil
	}
	out := make(datatypes.JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
