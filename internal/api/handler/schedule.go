package handler

import (
	"net/http"

	"go-loom/internal/api/dto"
	"go-loom/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) CreateSchedule(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req dto.SaveScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	workflowID, _ := uuid.Parse(req.WorkflowID)
	sched := domain.NewWorkflowSchedule(workflowID, uid, req.Name, req.CronExpression, req.Timezone)
	sched.InputVariables = req.InputVariables
	sched.MaxRuns = req.MaxRuns

	if err := h.schedules.Create(c.Request.Context(), uid, sched); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromSchedule(sched))
}

func (h *Handler) ListSchedules(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	scheds, err := h.schedules.List(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSchedules(scheds))
}

func (h *Handler) GetSchedule(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	sched, err := h.schedules.Get(c.Request.Context(), id, uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSchedule(sched))
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.SaveScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	sched := &domain.WorkflowSchedule{
		ID:             id,
		Name:           req.Name,
		CronExpression: req.CronExpression,
		Timezone:       req.Timezone,
		InputVariables: req.InputVariables,
		MaxRuns:        req.MaxRuns,
	}
	if err := h.schedules.Update(c.Request.Context(), uid, sched); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSchedule(sched))
}

func (h *Handler) DeleteSchedule(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.schedules.Delete(c.Request.Context(), id, uid); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) PauseSchedule(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.schedules.Pause(c.Request.Context(), id, uid); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.SchedulePaused)})
}

func (h *Handler) ResumeSchedule(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.schedules.Resume(c.Request.Context(), id, uid); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.ScheduleActive)})
}

func (h *Handler) PreviewCron(c *gin.Context) {
	if _, ok := userID(c); !ok {
		return
	}
	var req dto.PreviewCronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	runs, err := h.schedules.Preview(req.CronExpression, req.Timezone, req.Count)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  string(domain.CodeInvalidCronExpression),
		})
		return
	}
	c.JSON(http.StatusOK, dto.PreviewCronResponse{NextRuns: runs})
}
