package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/employee-admin-api/internal/middleware"
	"github.com/yukikurage/employee-admin-api/internal/models"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Projects *ProjectHandler
	Tasks    *TaskHandler
}

// RegisterRoutes mounts the API on r. Session middleware must already be installed.
func RegisterRoutes(r gin.IRouter, h Handlers, authn middleware.Authenticator) {
	requireAuth := middleware.RequireAuth(authn)
	adminOnly := middleware.RequireRole(authn, models.RoleAdministrator)
	withID := middleware.RequireIDParam("id")

	api := r.Group("/api")
	{
		// Identity routes
		identity := api.Group("/identity")
		{
			identity.POST("/login", h.Auth.Login)
			identity.POST("/refresh", h.Auth.Refresh)
			identity.POST("/logout", requireAuth, h.Auth.Logout)
			identity.GET("/profile", requireAuth, h.Auth.GetProfile)
			identity.PUT("/password", requireAuth, h.Auth.UpdatePassword)
		}

		// User routes (protected)
		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.POST("", adminOnly, h.Users.CreateUser)
			users.GET("", adminOnly, h.Users.ListUsers)
			users.PATCH("/:id", withID, h.Users.UpdateUser)
			users.DELETE("/:id", adminOnly, withID, h.Users.DeleteUser)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(requireAuth)
		{
			projects.POST("", adminOnly, h.Projects.CreateProject)
			projects.GET("/:id", withID, h.Projects.GetProject)
			projects.PATCH("/:id", adminOnly, withID, h.Projects.UpdateProject)
			projects.DELETE("/:id", adminOnly, withID, h.Projects.DeleteProject)
			projects.POST("/:id/members", adminOnly, withID, h.Projects.AddMembers)
			projects.DELETE("/:id/members", adminOnly, withID, h.Projects.RemoveMembers)
			projects.GET("/:id/tasks", withID, h.Tasks.ListProjectTasks)
			projects.POST("/:id/tasks", withID, h.Tasks.CreateTask)
			projects.POST("/:id/tasks/drafts", withID, h.Tasks.DraftTasks)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("/:id", withID, h.Tasks.GetTask)
			tasks.PATCH("/:id", withID, h.Tasks.UpdateTask)
			tasks.DELETE("/:id", adminOnly, withID, h.Tasks.DeleteTask)
		}
	}
}
