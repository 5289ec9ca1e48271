package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/employee-admin-api/internal/dto"
	apierrors "github.com/yukikurage/employee-admin-api/internal/errors"
	"github.com/yukikurage/employee-admin-api/internal/middleware"
	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/services"
	"github.com/yukikurage/employee-admin-api/internal/storage"
	"github.com/yukikurage/employee-admin-api/internal/utils"
)

const profilePictureField = "profile_picture"

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// openPicture returns the optional profile picture of a multipart request.
// The caller must call the returned close func.
func openPicture(c *gin.Context) (*storage.Upload, func(), error) {
	header, err := c.FormFile(profilePictureField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}

	file, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return uploadFrom(header, file), func() { file.Close() }, nil
}

func uploadFrom(header *multipart.FileHeader, file multipart.File) *storage.Upload {
	return &storage.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	}
}

// CreateUser creates a user. Accepts JSON or a multipart form with an
// optional profile_picture file.
func (h *UserHandler) CreateUser(c *gin.Context) {
	type CreateUserRequest struct {
		Email     string `json:"email" form:"email"`
		FirstName string `json:"first_name" form:"first_name"`
		Surname   string `json:"surname" form:"surname"`
		Password  string `json:"password" form:"password"`
		Role      string `json:"role" form:"role" binding:"required"`
	}

	var req CreateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		apierrors.BadRequestWithDetails(c, "validation failed", map[string]string{"role": "is invalid"})
		return
	}

	picture, closePicture, err := openPicture(c)
	if err != nil {
		apierrors.BadRequest(c, "Invalid profile picture")
		return
	}
	defer closePicture()

	user, err := h.userService.CreateUser(c.Request.Context(), services.CreateUserInput{
		Email:          req.Email,
		FirstName:      req.FirstName,
		Surname:        req.Surname,
		Password:       req.Password,
		Role:           role,
		ProfilePicture: picture,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// ListUsers returns users, optionally filtered by role and including deleted ones.
func (h *UserHandler) ListUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filter := services.UserListFilter{
		Page:     params.Page,
		PageSize: params.Limit,
	}

	if raw := c.Query("role"); raw != "" {
		role, err := models.ParseRole(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid role")
			return
		}
		filter.Role = &role
	}
	if raw := c.Query("include_deleted"); raw != "" {
		includeDeleted, err := strconv.ParseBool(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid include_deleted")
			return
		}
		filter.IncludeDeleted = includeDeleted
	}

	users, total, err := h.userService.GetAllUsers(c.Request.Context(), filter)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserListResponse(users, params, total))
}

// UpdateUser patches a user. Employees may only update themselves.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	targetID, ok := middleware.GetIDParam(c, "id")
	if !ok {
		apierrors.BadRequest(c, "Invalid id")
		return
	}

	type UpdateUserRequest struct {
		Email     *string `json:"email" form:"email"`
		FirstName *string `json:"first_name" form:"first_name"`
		Surname   *string `json:"surname" form:"surname"`
	}

	var req UpdateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	picture, closePicture, err := openPicture(c)
	if err != nil {
		apierrors.BadRequest(c, "Invalid profile picture")
		return
	}
	defer closePicture()

	user, err := h.userService.UpdateUser(c.Request.Context(), userID, targetID, services.UpdateUserInput{
		Email:          req.Email,
		FirstName:      req.FirstName,
		Surname:        req.Surname,
		ProfilePicture: picture,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteUser soft-deletes a user.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	targetID, ok := middleware.GetIDParam(c, "id")
	if !ok {
		apierrors.BadRequest(c, "Invalid id")
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), targetID); err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
