package validator

import (
	"strings"

	"go-loom/internal/core/ports"
	"go-loom/internal/domain"
)

// Validator checks a workflow definition for structural correctness before
// it is persisted. Validation is synchronous and side-effect free.
type Validator struct {
	clock ports.CronClock
}

func New(clock ports.CronClock) *Validator {
	return &Validator{clock: clock}
}

// Validate runs the checks in order: unique step ids, resolvable
// dependencies, acyclic graph, order consistency, cron syntax. Graph checks
// are skipped when the id/dependency checks already failed, since they
// assume a well-formed step set.
func (v *Validator) Validate(def *domain.WorkflowDefinition) domain.ValidationResult {
	var errs []*domain.ValidationError

	seen := make(map[string]bool, len(def.Steps))
	for _, step := range def.Steps {
		if seen[step.StepID] {
			errs = append(errs, domain.NewValidationError(domain.CodeDuplicateStepID,
				"step id %q appears more than once", step.StepID))
		}
		seen[step.StepID] = true
	}

	depsResolvable := true
	for _, step := range def.Steps {
		for _, dep := range step.DependsOn {
			if !seen[dep] {
				depsResolvable = false
				errs = append(errs, domain.NewValidationError(domain.CodeUnknownDependency,
					"step %q depends on undefined step %q", step.StepID, dep))
			}
		}
	}

	if len(errs) == 0 && depsResolvable {
		if cycle := findCycle(def.Steps); len(cycle) > 0 {
			errs = append(errs, domain.NewValidationError(domain.CodeCyclicDependency,
				"dependency cycle: %s", strings.Join(cycle, " -> ")))
		} else {
			errs = append(errs, checkOrder(def.Steps)...)
		}
	}

	if def.Schedule != nil {
		if err := v.clock.Validate(def.Schedule.CronExpression); err != nil {
			errs = append(errs, domain.NewValidationError(domain.CodeInvalidCronExpression,
				"%v", err))
		}
	}

	return domain.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// checkOrder rejects declared order values inconsistent with the dependency
// graph: a dependency whose order is >= its dependent's cannot be honored by
// the order tie-break without running out of dependency order.
func checkOrder(steps []domain.Step) []*domain.ValidationError {
	byID := make(map[string]domain.Step, len(steps))
	for _, s := range steps {
		byID[s.StepID] = s
	}
	var errs []*domain.ValidationError
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if byID[dep].Order >= s.Order {
				errs = append(errs, domain.NewValidationError(domain.CodeOrderViolation,
					"step %q (order=%d) depends on %q (order=%d); dependency order must be lower",
					s.StepID, s.Order, dep, byID[dep].Order))
			}
		}
	}
	return errs
}

// findCycle runs a DFS over dependsOn edges and returns the offending cycle
// as a step id path, or nil when the graph is acyclic.
func findCycle(steps []domain.Step) []string {
	deps := make(map[string][]string, len(steps))
	for _, s := range steps {
		deps[s.StepID] = s.DependsOn
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(steps))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		state[id] = inStack
		stack = append(stack, id)
		for _, dep := range deps[id] {
			switch state[dep] {
			case inStack:
				// close the loop for the report
				for i, onPath := range stack {
					if onPath == dep {
						return append(append([]string{}, stack[i:]...), dep)
					}
				}
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, s := range steps {
		if state[s.StepID] == unvisited {
			if cycle := visit(s.StepID); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
