package engine

import (
	"sort"

	"go-loom/internal/domain"
)

// BuildPlan resolves the execution order of a definition's steps: a
// topological sort of dependsOn edges, breaking ties among ready steps by
// ascending declared order (then step id, for determinism). Declared order
// values that contradict the dependency graph fail fast with OrderViolation
// instead of silently running out of dependency order.
func BuildPlan(steps []domain.Step) ([]domain.Step, error) {
	byID := make(map[string]domain.Step, len(steps))
	for _, s := range steps {
		byID[s.StepID] = s
	}

	indegree := make(map[string]int, len(steps))
	dependents := make(map[string][]string, len(steps))
	for _, s := range steps {
		indegree[s.StepID] = len(s.DependsOn)
		for _, dep := range s.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, domain.NewValidationError(domain.CodeUnknownDependency,
					"step %q depends on undefined step %q", s.StepID, dep)
			}
			if byID[dep].Order >= s.Order {
				return nil, domain.NewValidationError(domain.CodeOrderViolation,
					"step %q (order=%d) depends on %q (order=%d)",
					s.StepID, s.Order, dep, byID[dep].Order)
			}
			dependents[dep] = append(dependents[dep], s.StepID)
		}
	}

	var ready []string
	for _, s := range steps {
		if indegree[s.StepID] == 0 {
			ready = append(ready, s.StepID)
		}
	}

	plan := make([]domain.Step, 0, len(steps))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			a, b := byID[ready[i]], byID[ready[j]]
			if a.Order != b.Order {
				return a.Order < b.Order
			}
			return a.StepID < b.StepID
		})
		next := ready[0]
		ready = ready[1:]
		plan = append(plan, byID[next])

		for _, child := range dependents[next] {
			indegree[child]--
			if indegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(plan) != len(steps) {
		return nil, domain.NewValidationError(domain.CodeCyclicDependency,
			"dependency graph contains a cycle")
	}
	return plan, nil
}
