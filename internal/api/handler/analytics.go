package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) WorkflowAnalytics(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	// ownership gate before aggregating
	if _, err := h.workflows.Get(c.Request.Context(), id, uid); err != nil {
		fail(c, err)
		return
	}

	analytics, err := h.analytics.WorkflowAnalytics(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

func (h *Handler) UserDashboard(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	dashboard, err := h.analytics.UserDashboard(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (h *Handler) ScheduleAnalytics(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	analytics, err := h.analytics.ScheduleAnalytics(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}
