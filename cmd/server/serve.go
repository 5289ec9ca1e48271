package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yukikurage/employee-admin-api/internal/config"
	"github.com/yukikurage/employee-admin-api/internal/constants"
	"github.com/yukikurage/employee-admin-api/internal/database"
	"github.com/yukikurage/employee-admin-api/internal/handlers"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not migrate the schema on startup")
	rootCmd.AddCommand(serveCmd)
}

func serve(cfg *config.Config) error {
	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	app, cleanup, err := bootstrap(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(); err != nil {
			log.Printf("[Server] cleanup: %v", err)
		}
	}()

	if !skipMigrations {
		if err := database.Migrate(); err != nil {
			return err
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	app.runConsumer(ctx)

	r := gin.Default()

	store, err := sessionStore(cfg)
	if err != nil {
		return err
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == gin.ReleaseMode
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   constants.SessionMaxAge,
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionName, store))

	// Uploads are served locally unless they are published under an external URL
	if strings.HasPrefix(cfg.UploadBaseURL, "/") {
		r.Static(cfg.UploadBaseURL, app.images.Dir())
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Employee Admin API is running",
		})
	})

	handlers.RegisterRoutes(r, handlers.Handlers{
		Auth:     handlers.NewAuthHandler(app.users, app.auth),
		Users:    handlers.NewUserHandler(app.users),
		Projects: handlers.NewProjectHandler(app.projects, app.members),
		Tasks:    handlers.NewTaskHandler(app.tasks, app.drafts),
	}, app.auth)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-quit:
	}

	log.Println("[Server] shutting down")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sessionStore keeps sessions in Redis unless the in-memory cache driver is
// configured, in which case they live in signed cookies.
func sessionStore(cfg *config.Config) (sessions.Store, error) {
	if cfg.CacheDriver == "memory" {
		return cookie.NewStore([]byte(cfg.SessionSecret)), nil
	}
	return redisStore.NewStore(
		10,    // Redis pool size
		"tcp", // network type
		cfg.RedisHost+":"+cfg.RedisPort,
		cfg.RedisPassword,
		[]byte(cfg.SessionSecret),
	)
}
