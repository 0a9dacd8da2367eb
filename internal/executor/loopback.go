package executor

import (
	"context"
	"fmt"

	"go-loom/internal/core/ports"
	"go-loom/internal/domain"
)

// Loopback is a provider-less executor that echoes the rendered prompt back
// as the step output. It stands in for real generation providers in local
// wiring and demos; production deployments register provider-backed
// executors instead.
type Loopback struct {
	kind domain.StepType
}

func NewLoopback(kind domain.StepType) *Loopback {
	return &Loopback{kind: kind}
}

func (l *Loopback) Execute(ctx context.Context, step domain.Step, renderedPrompt string, settings map[string]any) (*ports.StepResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return &ports.StepResult{
		Type:    string(l.kind),
		Content: fmt.Sprintf("[%s/%s] %s", step.Provider, step.Model, renderedPrompt),
		Metadata: map[string]any{
			"provider": step.Provider,
			"model":    step.Model,
		},
	}, nil
}

// RegisterLoopbacks fills the registry with a loopback executor per step
// type.
func RegisterLoopbacks(r *Registry) error {
	for _, t := range domain.StepTypes {
		if err := r.Register(t, NewLoopback(t)); err != nil {
			return err
		}
	}
	return nil
}
