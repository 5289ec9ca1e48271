package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/employee-admin-api/internal/dto"
	apierrors "github.com/yukikurage/employee-admin-api/internal/errors"
	"github.com/yukikurage/employee-admin-api/internal/middleware"
	"github.com/yukikurage/employee-admin-api/internal/services"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	memberService  *services.ProjectMemberService
}

func NewProjectHandler(projectService *services.ProjectService, memberService *services.ProjectMemberService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		memberService:  memberService,
	}
}

// GetProject returns a project with its tasks and members
func (h *ProjectHandler) GetProject(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	projectID, ok := middleware.GetIDParam(c, "id")
	if !ok {
		apierrors.BadRequest(c, "Invalid id")
		return
	}

	details, err := h.projectService.GetByID(c.Request.Context(), projectID, userID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDetailsDTO(*details))
}

// CreateProject creates a project with its initial employees
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req services.CreateProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	details, err := h.projectService.CreateProject(c.Request.Context(), req)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDetailsDTO(*details))
}

// UpdateProject updates name, description or status
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	projectID, ok := middleware.GetIDParam(c, "id")
	if !ok {
		apierrors.BadRequest(c, "Invalid id")
		return
	}

	var req services.UpdateProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.UpdateProject(c.Request.Context(), projectID, req)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// DeleteProject deletes a project whose tasks are all completed
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	projectID, ok := middleware.GetIDParam(c, "id")
	if !ok {
		apierrors.BadRequest(c, "Invalid id")
		return
	}

	if err := h.projectService.DeleteProject(c.Request.Context(), projectID); err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type membersRequest struct {
	EmployeeIDs []uint64 `json:"employee_ids"`
}

// AddMembers adds employees to a project
func (h *ProjectHandler) AddMembers(c *gin.Context) {
	projectID, ok := middleware.GetIDParam(c, "id")
	if !ok {
		apierrors.BadRequest(c, "Invalid id")
		return
	}

	var req membersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.memberService.AddEmployees(c.Request.Context(), req.EmployeeIDs, projectID); err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveMembers removes employees from a project
func (h *ProjectHandler) RemoveMembers(c *gin.Context) {
	projectID, ok := middleware.GetIDParam(c, "id")
	if !ok {
		apierrors.BadRequest(c, "Invalid id")
		return
	}

	var req membersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.memberService.RemoveEmployees(c.Request.Context(), req.EmployeeIDs, projectID); err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
