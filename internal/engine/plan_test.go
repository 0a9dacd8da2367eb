package engine

import (
	"testing"

	"go-loom/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planStep(id string, order int, deps ...string) domain.Step {
	return domain.Step{
		StepID:         id,
		Type:           domain.StepTypeText,
		PromptTemplate: "run " + id,
		DependsOn:      deps,
		Order:          order,
	}
}

func ids(steps []domain.Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.StepID
	}
	return out
}

func TestBuildPlanDependencyOrder(t *testing.T) {
	steps := []domain.Step{
		planStep("publish", 3, "write"),
		planStep("write", 2, "research"),
		planStep("research", 1),
	}

	plan, err := BuildPlan(steps)
	require.NoError(t, err)
	assert.Equal(t, []string{"research", "write", "publish"}, ids(plan))
}

func TestBuildPlanOrderBreaksTies(t *testing.T) {
	// b and c both depend only on a; the order field decides between them.
	steps := []domain.Step{
		planStep("a", 1),
		planStep("c", 2, "a"),
		planStep("b", 3, "a"),
	}

	plan, err := BuildPlan(steps)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, ids(plan))
}

func TestBuildPlanStepIDBreaksEqualOrder(t *testing.T) {
	steps := []domain.Step{
		planStep("zeta", 1),
		planStep("alpha", 1),
	}

	plan, err := BuildPlan(steps)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, ids(plan))
}

func TestBuildPlanRejectsOrderAgainstDependency(t *testing.T) {
	steps := []domain.Step{
		planStep("a", 2),
		planStep("b", 1, "a"),
	}

	_, err := BuildPlan(steps)
	require.Error(t, err)
	verr, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeOrderViolation, verr.Code)
}

func TestBuildPlanRejectsUnknownDependency(t *testing.T) {
	steps := []domain.Step{planStep("a", 1, "ghost")}

	_, err := BuildPlan(steps)
	require.Error(t, err)
	verr, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeUnknownDependency, verr.Code)
}

func TestBuildPlanRejectsCycle(t *testing.T) {
	// Any cycle contains at least one edge whose dependency order is not
	// strictly smaller, so it is reported as an order violation here. The
	// validator reports the cycle path itself.
	steps := []domain.Step{
		planStep("a", 1, "c"),
		planStep("b", 2, "a"),
		planStep("c", 3, "b"),
	}

	_, err := BuildPlan(steps)
	require.Error(t, err)
	verr, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeOrderViolation, verr.Code)
}

func TestBuildPlanEmpty(t *testing.T) {
	plan, err := BuildPlan(nil)
	require.NoError(t, err)
	assert.Empty(t, plan)
}
