package handler

import (
	"net/http"
	"strconv"

	"go-loom/internal/api/dto"
	"go-loom/internal/core/ports"
	"go-loom/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) ExecuteWorkflow(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.ExecuteWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	execID, err := h.executions.Execute(c.Request.Context(), id, uid, req.InputVariables, req.RunName)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.IDResponse{ID: execID})
}

func (h *Handler) GetExecution(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	exec, err := h.executions.Get(c.Request.Context(), id, uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromExecution(exec))
}

// ListExecutions supports workflow_id, status, limit and offset query
// filters, always scoped to the caller.
func (h *Handler) ListExecutions(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var filter ports.ExecutionFilter
	if raw := c.Query("workflow_id"); raw != "" {
		workflowID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed workflow_id"})
			return
		}
		filter.WorkflowID = &workflowID
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.ExecutionStatus(raw)
		filter.Status = &status
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	execs, err := h.executions.List(c.Request.Context(), uid, filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromExecutions(execs))
}

func (h *Handler) StopExecution(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.executions.Stop(c.Request.Context(), id, uid); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopping"})
}
