package handler

import (
	"errors"
	"net/http"

	"go-loom/internal/api/dto"
	"go-loom/internal/domain"
	"go-loom/internal/monitoring"
	"go-loom/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// userHeader carries the caller identity. Authentication itself lives in
// the edge proxy; the engine only needs a stable user id.
const userHeader = "X-User-ID"

type Handler struct {
	workflows  service.WorkflowService
	executions service.ExecutionService
	schedules  service.ScheduleService
	analytics  *monitoring.Aggregator
}

func New(
	workflows service.WorkflowService,
	executions service.ExecutionService,
	schedules service.ScheduleService,
	analytics *monitoring.Aggregator,
) *Handler {
	return &Handler{
		workflows:  workflows,
		executions: executions,
		schedules:  schedules,
		analytics:  analytics,
	}
}

// Register mounts every route on the router.
func (h *Handler) Register(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/workflows", h.CreateWorkflow)
		api.GET("/workflows", h.ListWorkflows)
		api.GET("/workflows/:id", h.GetWorkflow)
		api.PUT("/workflows/:id", h.UpdateWorkflow)
		api.DELETE("/workflows/:id", h.DeleteWorkflow)
		api.POST("/workflows/:id/duplicate", h.DuplicateWorkflow)
		api.POST("/workflows/:id/execute", h.ExecuteWorkflow)
		api.GET("/workflows/:id/analytics", h.WorkflowAnalytics)

		api.GET("/templates", h.ListTemplates)
		api.POST("/templates/:id/instantiate", h.InstantiateTemplate)

		api.GET("/executions", h.ListExecutions)
		api.GET("/executions/:id", h.GetExecution)
		api.POST("/executions/:id/stop", h.StopExecution)

		api.POST("/schedules", h.CreateSchedule)
		api.GET("/schedules", h.ListSchedules)
		api.GET("/schedules/:id", h.GetSchedule)
		api.PUT("/schedules/:id", h.UpdateSchedule)
		api.DELETE("/schedules/:id", h.DeleteSchedule)
		api.POST("/schedules/:id/pause", h.PauseSchedule)
		api.POST("/schedules/:id/resume", h.ResumeSchedule)
		api.POST("/schedules/preview", h.PreviewCron)

		api.GET("/dashboard", h.UserDashboard)
		api.GET("/schedules/analytics", h.ScheduleAnalytics)
	}
}

// userID reads the caller identity header. Requests without it are rejected
// before reaching any service.
func userID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader(userHeader)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing or malformed " + userHeader + " header"})
		return uuid.Nil, false
	}
	return id, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed id"})
		return uuid.Nil, false
	}
	return id, true
}

// fail maps domain errors onto HTTP statuses: validation failures are 400,
// missing or foreign records 404, state conflicts 409, the rest 500.
func fail(c *gin.Context, err error) {
	if verr, ok := domain.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: verr.Message, Code: string(verr.Code)})
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotRunning), errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
}
