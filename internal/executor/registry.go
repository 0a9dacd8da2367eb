package executor

import (
	"fmt"

	"go-loom/internal/core/ports"
	"go-loom/internal/domain"
)

// Registry maps a step type to its executor. Pure dispatch table, no state
// beyond registration.
type Registry struct {
	executors map[domain.StepType]ports.StepExecutor
}

func NewRegistry() *Registry {
	return &Registry{executors: make(map[domain.StepType]ports.StepExecutor)}
}

func (r *Registry) Register(t domain.StepType, ex ports.StepExecutor) error {
	if !t.Valid() {
		return fmt.Errorf("unknown step type %q", t)
	}
	if ex == nil {
		return fmt.Errorf("nil executor for step type %q", t)
	}
	r.executors[t] = ex
	return nil
}

func (r *Registry) Get(t domain.StepType) (ports.StepExecutor, error) {
	ex, ok := r.executors[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrExecutorNotRegistered, t)
	}
	return ex, nil
}

// Complete reports whether every step type has an executor registered.
func (r *Registry) Complete() bool {
	for _, t := range domain.StepTypes {
		if _, ok := r.executors[t]; !ok {
			return false
		}
	}
	return true
}
