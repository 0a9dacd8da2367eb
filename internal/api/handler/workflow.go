package handler

import (
	"net/http"

	"go-loom/internal/api/dto"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateWorkflow(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req dto.SaveWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	def := req.ToDomain()
	if err := h.workflows.Create(c.Request.Context(), uid, def); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromWorkflow(def))
}

func (h *Handler) ListWorkflows(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	defs, err := h.workflows.List(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromWorkflows(defs))
}

func (h *Handler) GetWorkflow(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	def, err := h.workflows.Get(c.Request.Context(), id, uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromWorkflow(def))
}

func (h *Handler) UpdateWorkflow(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.SaveWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	def := req.ToDomain()
	def.ID = id
	if err := h.workflows.Update(c.Request.Context(), uid, def); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromWorkflow(def))
}

func (h *Handler) DeleteWorkflow(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.workflows.Delete(c.Request.Context(), id, uid); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DuplicateWorkflow(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.DuplicateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	copied, err := h.workflows.Duplicate(c.Request.Context(), id, uid, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromWorkflow(copied))
}

func (h *Handler) ListTemplates(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	defs, err := h.workflows.ListTemplates(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromWorkflows(defs))
}

func (h *Handler) InstantiateTemplate(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.DuplicateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	def, err := h.workflows.Instantiate(c.Request.Context(), id, uid, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromWorkflow(def))
}
