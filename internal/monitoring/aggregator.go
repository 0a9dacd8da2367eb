package monitoring

import (
	"context"
	"sort"
	"time"

	"go-loom/internal/core/ports"
	"go-loom/internal/domain"

	"github.com/google/uuid"
)

const (
	trendDays          = 30
	healthWindow       = 24 * time.Hour
	stuckThreshold     = 2 * time.Hour
	lowSuccessRate     = 0.8
	HealthHealthy      = "healthy"
	HealthWarning      = "warning"
	HealthCritical     = "critical"
)

type DailyTrendPoint struct {
	Date        string  `json:"date"`
	Executions  int     `json:"executions"`
	Successes   int     `json:"successes"`
	SuccessRate float64 `json:"success_rate"`
}

type WorkflowAnalytics struct {
	WorkflowID         uuid.UUID         `json:"workflow_id"`
	TotalExecutions    int               `json:"total_executions"`
	StatusCounts       map[string]int    `json:"status_counts"`
	SuccessRate        float64           `json:"success_rate"`
	AvgDurationSeconds float64           `json:"avg_duration_seconds"`
	Trend              []DailyTrendPoint `json:"trend"`
}

type WorkflowUsage struct {
	WorkflowID  uuid.UUID `json:"workflow_id"`
	Name        string    `json:"name"`
	Executions  int       `json:"executions"`
	SuccessRate float64   `json:"success_rate"`
}

type HealthReport struct {
	Score  int      `json:"score"`
	Status string   `json:"status"`
	Issues []string `json:"issues,omitempty"`
}

type UserDashboard struct {
	UserID             uuid.UUID         `json:"user_id"`
	TotalExecutions    int               `json:"total_executions"`
	StatusCounts       map[string]int    `json:"status_counts"`
	SuccessRate        float64           `json:"success_rate"`
	AvgDurationSeconds float64           `json:"avg_duration_seconds"`
	Trend              []DailyTrendPoint `json:"trend"`
	TopWorkflows       []WorkflowUsage   `json:"top_workflows"`
	Health             HealthReport      `json:"health"`
}

type ScheduleAnalytics struct {
	Total         int            `json:"total"`
	StatusCounts  map[string]int `json:"status_counts"`
	TotalRuns     int            `json:"total_runs"`
	NextRunAt     *time.Time     `json:"next_run_at,omitempty"`
	FailedNames  []string       `json:"failed_names,omitempty"`
}

// Aggregator computes dashboards and analytics from persisted executions
// and schedules. Pure read side, no persisted side effects.
type Aggregator struct {
	executions  ports.ExecutionRepository
	schedules   ports.ScheduleRepository
	definitions ports.DefinitionRepository
	now         func() time.Time
}

func NewAggregator(executions ports.ExecutionRepository, schedules ports.ScheduleRepository, definitions ports.DefinitionRepository) *Aggregator {
	return &Aggregator{
		executions:  executions,
		schedules:   schedules,
		definitions: definitions,
		now:         time.Now,
	}
}

// WorkflowAnalytics aggregates all executions of one workflow.
func (a *Aggregator) WorkflowAnalytics(ctx context.Context, workflowID uuid.UUID) (*WorkflowAnalytics, error) {
	execs, err := a.executions.List(ctx, ports.ExecutionFilter{WorkflowID: &workflowID})
	if err != nil {
		return nil, err
	}

	out := &WorkflowAnalytics{
		WorkflowID:      workflowID,
		TotalExecutions: len(execs),
		StatusCounts:    statusCounts(execs),
		Trend:           a.trend(execs),
	}
	out.SuccessRate = successRate(execs)
	out.AvgDurationSeconds = avgCompletedDuration(execs)
	return out, nil
}

// UserDashboard aggregates everything a user's dashboard shows: totals,
// trend, per-workflow ranking and the health heuristic.
func (a *Aggregator) UserDashboard(ctx context.Context, userID uuid.UUID) (*UserDashboard, error) {
	execs, err := a.executions.List(ctx, ports.ExecutionFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}
	scheds, err := a.schedules.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	defs, err := a.definitions.List(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	out := &UserDashboard{
		UserID:             userID,
		TotalExecutions:    len(execs),
		StatusCounts:       statusCounts(execs),
		SuccessRate:        successRate(execs),
		AvgDurationSeconds: avgCompletedDuration(execs),
		Trend:              a.trend(execs),
		TopWorkflows:       topWorkflows(execs, defs),
		Health:             a.health(execs, scheds),
	}
	return out, nil
}

// ScheduleAnalytics summarizes a user's schedules.
func (a *Aggregator) ScheduleAnalytics(ctx context.Context, userID uuid.UUID) (*ScheduleAnalytics, error) {
	scheds, err := a.schedules.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &ScheduleAnalytics{
		Total:        len(scheds),
		StatusCounts: make(map[string]int, 4),
	}
	for _, sched := range scheds {
		out.StatusCounts[string(sched.Status)]++
		out.TotalRuns += sched.RunsCount
		if sched.Status == domain.ScheduleFailed {
			out.FailedNames = append(out.FailedNames, sched.Name)
		}
		if sched.Status == domain.ScheduleActive && sched.NextRunAt != nil {
			if out.NextRunAt == nil || sched.NextRunAt.Before(*out.NextRunAt) {
				out.NextRunAt = sched.NextRunAt
			}
		}
	}
	return out, nil
}

// health folds three signals into a 0-100 score: low success rate in the
// last 24h, executions stuck RUNNING for over two hours, and any schedule
// in FAILED status.
func (a *Aggregator) health(execs []domain.WorkflowExecution, scheds []domain.WorkflowSchedule) HealthReport {
	now := a.now()
	score := 100
	var issues []string

	var recent []domain.WorkflowExecution
	for _, exec := range execs {
		if now.Sub(exec.CreatedAt) <= healthWindow {
			recent = append(recent, exec)
		}
	}
	if len(recent) > 0 && successRate(recent) < lowSuccessRate {
		score -= 30
		issues = append(issues, "success rate below 80% in the last 24h")
	}

	for _, exec := range execs {
		if exec.Status == domain.ExecutionRunning && exec.StartedAt != nil && now.Sub(*exec.StartedAt) > stuckThreshold {
			score -= 40
			issues = append(issues, "execution running for over 2 hours: "+exec.ID.String())
			break
		}
	}

	for _, sched := range scheds {
		if sched.Status == domain.ScheduleFailed {
			score -= 30
			issues = append(issues, "schedule in FAILED status: "+sched.Name)
			break
		}
	}

	if score < 0 {
		score = 0
	}
	status := HealthHealthy
	switch {
	case score < 60:
		status = HealthCritical
	case score < 90:
		status = HealthWarning
	}
	return HealthReport{Score: score, Status: status, Issues: issues}
}

// trend buckets executions into a fixed 30-day daily series, zero-filled
// for days with no activity, oldest first.
func (a *Aggregator) trend(execs []domain.WorkflowExecution) []DailyTrendPoint {
	today := a.now().UTC().Truncate(24 * time.Hour)
	points := make([]DailyTrendPoint, trendDays)
	index := make(map[string]int, trendDays)
	for i := 0; i < trendDays; i++ {
		day := today.AddDate(0, 0, i-trendDays+1)
		key := day.Format("2006-01-02")
		points[i] = DailyTrendPoint{Date: key}
		index[key] = i
	}

	for _, exec := range execs {
		key := exec.CreatedAt.UTC().Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			continue
		}
		points[i].Executions++
		if exec.Status == domain.ExecutionCompleted {
			points[i].Successes++
		}
	}
	for i := range points {
		if points[i].Executions > 0 {
			points[i].SuccessRate = float64(points[i].Successes) / float64(points[i].Executions)
		}
	}
	return points
}

func topWorkflows(execs []domain.WorkflowExecution, defs []domain.WorkflowDefinition) []WorkflowUsage {
	names := make(map[uuid.UUID]string, len(defs))
	for _, def := range defs {
		names[def.ID] = def.Name
	}

	byWorkflow := make(map[uuid.UUID][]domain.WorkflowExecution)
	for _, exec := range execs {
		byWorkflow[exec.WorkflowID] = append(byWorkflow[exec.WorkflowID], exec)
	}

	usage := make([]WorkflowUsage, 0, len(byWorkflow))
	for id, runs := range byWorkflow {
		usage = append(usage, WorkflowUsage{
			WorkflowID:  id,
			Name:        names[id],
			Executions:  len(runs),
			SuccessRate: successRate(runs),
		})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Executions != usage[j].Executions {
			return usage[i].Executions > usage[j].Executions
		}
		return usage[i].WorkflowID.String() < usage[j].WorkflowID.String()
	})
	return usage
}

func statusCounts(execs []domain.WorkflowExecution) map[string]int {
	counts := make(map[string]int, 5)
	for _, exec := range execs {
		counts[string(exec.Status)]++
	}
	return counts
}

func successRate(execs []domain.WorkflowExecution) float64 {
	if len(execs) == 0 {
		return 0
	}
	completed := 0
	for _, exec := range execs {
		if exec.Status == domain.ExecutionCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(execs))
}

// avgCompletedDuration averages over completed executions only.
func avgCompletedDuration(execs []domain.WorkflowExecution) float64 {
	total, n := 0.0, 0
	for _, exec := range execs {
		if exec.Status == domain.ExecutionCompleted {
			total += exec.DurationSeconds
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}
