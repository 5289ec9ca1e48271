package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/employee-admin-api/internal/dto"
	apierrors "github.com/yukikurage/employee-admin-api/internal/errors"
	"github.com/yukikurage/employee-admin-api/internal/middleware"
	"github.com/yukikurage/employee-admin-api/internal/services"
)

type TaskHandler struct {
	taskService  *services.TaskService
	draftService *services.TaskDraftService
}

func NewTaskHandler(taskService *services.TaskService, draftService *services.TaskDraftService) *TaskHandler {
	return &TaskHandler{
		taskService:  taskService,
		draftService: draftService,
	}
}

// caller returns the authenticated user and the numeric :id path parameter.
func caller(c *gin.Context) (uint64, uint64, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return 0, 0, false
	}
	id, ok := middleware.GetIDParam(c, "id")
	if !ok {
		apierrors.BadRequest(c, "Invalid id")
		return 0, 0, false
	}
	return userID, id, true
}

// ListProjectTasks returns every task of a project
func (h *TaskHandler) ListProjectTasks(c *gin.Context) {
	userID, projectID, ok := caller(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.GetAllForProject(c.Request.Context(), userID, projectID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": dto.ToTaskDetailsList(tasks),
	})
}

// CreateTask creates a task in a project
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, projectID, ok := caller(c)
	if !ok {
		return
	}

	var req services.CreateTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), userID, projectID, req)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDetailsDTO(*task))
}

// DraftTasks uses AI to suggest tasks from free text
func (h *TaskHandler) DraftTasks(c *gin.Context) {
	userID, projectID, ok := caller(c)
	if !ok {
		return
	}

	if h.draftService == nil {
		apierrors.ServiceUnavailable(c, "AI service not configured")
		return
	}

	var req services.DraftTasksInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	drafts, err := h.draftService.DraftTasks(c.Request.Context(), userID, projectID, req)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"drafts": dto.ToTaskDraftDTOs(drafts),
	})
}

// GetTask returns a task to an administrator or its appointee
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, taskID, ok := caller(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetByID(c.Request.Context(), userID, taskID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDetailsDTO(*task))
}

// UpdateTask updates name, description or completion
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, taskID, ok := caller(c)
	if !ok {
		return
	}

	var req services.UpdateTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), userID, taskID, req)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDetailsDTO(*task))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	taskID, ok := middleware.GetIDParam(c, "id")
	if !ok {
		apierrors.BadRequest(c, "Invalid id")
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), taskID); err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
