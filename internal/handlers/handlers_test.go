package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/employee-admin-api/internal/auth"
	"github.com/yukikurage/employee-admin-api/internal/cache"
	"github.com/yukikurage/employee-admin-api/internal/constants"
	"github.com/yukikurage/employee-admin-api/internal/database"
	"github.com/yukikurage/employee-admin-api/internal/dto"
	"github.com/yukikurage/employee-admin-api/internal/lock"
	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/repository"
	"github.com/yukikurage/employee-admin-api/internal/roles"
	"github.com/yukikurage/employee-admin-api/internal/services"
	"github.com/yukikurage/employee-admin-api/internal/storage"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testPassword = "Password1"

type apiTestEnv struct {
	t            *testing.T
	db           *gorm.DB
	router       *gin.Engine
	images       *storage.LocalStore
	passwordHash string
}

func setupAPITestEnv(t *testing.T) *apiTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, database.MigrateModels(db))

	images, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	uow := repository.NewWorkUnit(db)
	tx := services.NewTransactor(uow, lock.NewKeyedMutex(), nil)
	roleCache := roles.NewCache(cache.NewMemory(), uow.Users, 0, nil)
	tokens := auth.NewHMACProvider("test-secret", "test", "test-clients", time.Minute, time.Hour)

	userService := services.NewUserService(uow, tx, roleCache, images, tokens)
	authService := services.NewAuthService(uow, tx, roleCache, images, tokens)
	projectService := services.NewProjectService(uow, tx, roleCache, images)
	memberService := services.NewProjectMemberService(uow, tx, roleCache)
	taskService := services.NewTaskService(uow, tx, roleCache, images, nil)
	draftService := services.NewTaskDraftService(taskService, "")

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionName, cookie.NewStore([]byte("secret"))))
	RegisterRoutes(r, Handlers{
		Auth:     NewAuthHandler(userService, authService),
		Users:    NewUserHandler(userService),
		Projects: NewProjectHandler(projectService, memberService),
		Tasks:    NewTaskHandler(taskService, draftService),
	}, authService)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	return &apiTestEnv{
		t:            t,
		db:           db,
		router:       r,
		images:       images,
		passwordHash: string(hash),
	}
}

func (env *apiTestEnv) createUser(email string, role models.Role) *models.User {
	user := &models.User{
		Email:        email,
		FirstName:    "Test",
		Surname:      "User",
		PasswordHash: env.passwordHash,
		RoleID:       role,
	}
	require.NoError(env.t, env.db.Create(user).Error)
	return user
}

func (env *apiTestEnv) createProject(name string, memberIDs ...uint64) *models.Project {
	project := &models.Project{Name: name, StatusID: models.ProjectStatusInProgress}
	require.NoError(env.t, env.db.Create(project).Error)
	for _, id := range memberIDs {
		require.NoError(env.t, env.db.Create(&models.ProjectMember{ProjectID: project.ID, UserID: id}).Error)
	}
	return project
}

func (env *apiTestEnv) createTask(projectID, appointerID, appointeeID uint64) *models.Task {
	task := &models.Task{
		ProjectID:           projectID,
		AppointerUserID:     appointerID,
		AppointeeEmployeeID: appointeeID,
		Name:                "Task",
	}
	require.NoError(env.t, env.db.Create(task).Error)
	return task
}

func (env *apiTestEnv) request(method, url string, body any, token string, extra ...func(*http.Request)) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(env.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, fn := range extra {
		fn(req)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *apiTestEnv) login(email string) dto.LoginResponse {
	w := env.request(http.MethodPost, "/api/identity/login", map[string]string{
		"email":    email,
		"password": testPassword,
	}, "")
	require.Equal(env.t, http.StatusOK, w.Code, w.Body.String())

	var response dto.LoginResponse
	require.NoError(env.t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func (env *apiTestEnv) token(email string) string {
	return env.login(email).Tokens.AccessToken
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}
