package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-loom/internal/api/handler"
	"go-loom/internal/config"
	"go-loom/internal/core/postgres/repository"
	"go-loom/internal/cronclock"
	"go-loom/internal/domain"
	"go-loom/internal/engine"
	"go-loom/internal/executor"
	loomredis "go-loom/internal/infrastructure/redis"
	"go-loom/internal/log"
	"go-loom/internal/monitoring"
	"go-loom/internal/scheduler"
	"go-loom/internal/service"
	"go-loom/internal/validator"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	logger := log.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.WorkflowDefinition{},
		&domain.WorkflowExecution{},
		&domain.WorkflowSchedule{},
	); err != nil {
		logger.Fatalf("failed to migrate schema: %v", err)
	}

	redisClient, err := loomredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("failed to connect to redis: %v", err)
	}

	definitions := repository.NewDefinitionRepository(db)
	executions := repository.NewExecutionRepository(db)
	schedules := repository.NewScheduleRepository(db)
	queue := loomredis.NewExecutionQueue(redisClient)
	bus := loomredis.NewEventBus(redisClient)

	registry := executor.NewRegistry()
	if err := executor.RegisterLoopbacks(registry); err != nil {
		logger.Fatalf("failed to register step executors: %v", err)
	}

	eng := engine.New(definitions, executions, queue, bus, registry, engine.Config{
		Workers:     cfg.Engine.Workers,
		StepTimeout: cfg.Engine.StepTimeout,
	}, logger)

	clock := cronclock.New()
	sched := scheduler.New(schedules, eng, clock, cfg.Scheduler.Tick, logger)
	recorder := monitoring.NewRecorder(bus)
	aggregator := monitoring.NewAggregator(executions, schedules, definitions)

	validate := validator.New(clock)
	workflowSvc := service.NewWorkflowService(definitions, validate)
	executionSvc := service.NewExecutionService(eng, executions)
	scheduleSvc := service.NewScheduleService(schedules, definitions, clock, sched)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng.Start(ctx)
	go sched.Run(ctx)
	go func() {
		if err := recorder.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("metrics recorder stopped: %v", err)
		}
	}()

	router := gin.Default()
	handler.New(workflowSvc, executionSvc, scheduleSvc, aggregator).Register(router)

	server := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	go func() {
		logger.Infof("server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}

	cancel()
	eng.Wait()
	logger.Info("stopped")
}
