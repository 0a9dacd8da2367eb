package monitoring

import (
	"context"

	"go-loom/internal/core/ports"
	"go-loom/internal/domain"
	"go-loom/internal/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	executionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_executions_started_total",
		Help: "Workflow executions started.",
	})
	executionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_executions_finished_total",
		Help: "Workflow executions finished, by outcome.",
	}, []string{"status"})
	executionsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loom_executions_running",
		Help: "Workflow executions currently running.",
	})
	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loom_step_duration_seconds",
		Help:    "Step execution duration in seconds, by step type.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"type"})
	stepsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_steps_failed_total",
		Help: "Failed step executions, by step type.",
	}, []string{"type"})
)

// Recorder consumes execution events from the bus and keeps the Prometheus
// metrics current. Run it once per process.
type Recorder struct {
	bus ports.EventBus
}

func NewRecorder(bus ports.EventBus) *Recorder {
	return &Recorder{bus: bus}
}

func (r *Recorder) Run(ctx context.Context) error {
	events, err := r.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	logger := log.GetLogger()
	logger.Info("metrics recorder started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			r.record(event)
		}
	}
}

func (r *Recorder) record(event domain.ExecutionEvent) {
	switch event.Type {
	case domain.EventExecutionStarted:
		executionsStarted.Inc()
		executionsRunning.Inc()
	case domain.EventExecutionCompleted:
		executionsFinished.WithLabelValues("completed").Inc()
		executionsRunning.Dec()
	case domain.EventExecutionFailed:
		executionsFinished.WithLabelValues("failed").Inc()
		executionsRunning.Dec()
	case domain.EventExecutionPaused:
		executionsFinished.WithLabelValues("paused").Inc()
		executionsRunning.Dec()
	case domain.EventStepCompleted:
		stepDuration.WithLabelValues(string(event.StepType)).Observe(event.DurationSeconds)
	case domain.EventStepFailed:
		stepsFailed.WithLabelValues(string(event.StepType)).Inc()
	}
}
