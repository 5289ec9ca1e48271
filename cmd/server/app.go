package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/yukikurage/employee-admin-api/internal/auth"
	"github.com/yukikurage/employee-admin-api/internal/cache"
	"github.com/yukikurage/employee-admin-api/internal/config"
	"github.com/yukikurage/employee-admin-api/internal/database"
	"github.com/yukikurage/employee-admin-api/internal/events"
	"github.com/yukikurage/employee-admin-api/internal/lock"
	"github.com/yukikurage/employee-admin-api/internal/repository"
	"github.com/yukikurage/employee-admin-api/internal/roles"
	"github.com/yukikurage/employee-admin-api/internal/services"
	"github.com/yukikurage/employee-admin-api/internal/storage"
)

// application holds the wired services shared by the commands.
type application struct {
	cfg      *config.Config
	redis    *cache.Redis
	consumer *events.TaskCreatedConsumer
	images   *storage.LocalStore

	users    *services.UserService
	auth     *services.AuthService
	projects *services.ProjectService
	members  *services.ProjectMemberService
	tasks    *services.TaskService
	drafts   *services.TaskDraftService
}

// bootstrap connects to the database and wires every service. The returned
// cleanup releases the connections.
func bootstrap(cfg *config.Config) (*application, func() error, error) {
	if err := database.Connect(cfg); err != nil {
		return nil, nil, err
	}
	db := database.GetDB()

	roleTTL, err := cfg.RoleCacheDuration()
	if err != nil {
		return nil, nil, err
	}
	accessTTL, err := cfg.AccessTokenDuration()
	if err != nil {
		return nil, nil, err
	}
	refreshTTL, err := cfg.RefreshTokenDuration()
	if err != nil {
		return nil, nil, err
	}

	var (
		redis *cache.Redis
		store cache.Store
	)
	switch cfg.CacheDriver {
	case "memory":
		store = cache.NewMemory()
	case "redis", "":
		redis = cache.NewRedis(cache.RedisOptions{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		}, log.Default())
		store = redis
	default:
		return nil, nil, fmt.Errorf("unsupported cache driver %q", cfg.CacheDriver)
	}

	images, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		return nil, nil, err
	}

	var mailer events.Mailer
	if cfg.SMTPEnabled() {
		mailer = events.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		mailer = events.NewLogMailer(log.Default())
	}
	consumer := events.NewTaskCreatedConsumer(mailer, log.Default())

	var publisher events.Publisher
	if redis.Available() {
		publisher = events.NewRedisPublisher(redis)
	} else {
		publisher = events.NewInlinePublisher(consumer)
	}

	uow := repository.NewWorkUnit(db)
	tx := services.NewTransactor(uow, lock.NewKeyedMutex(), log.Default())
	roleCache := roles.NewCache(store, uow.Users, roleTTL, log.Default())
	tokens := auth.NewHMACProvider(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, accessTTL, refreshTTL)

	tasks := services.NewTaskService(uow, tx, roleCache, images, publisher)
	app := &application{
		cfg:      cfg,
		redis:    redis,
		consumer: consumer,
		images:   images,
		users:    services.NewUserService(uow, tx, roleCache, images, tokens),
		auth:     services.NewAuthService(uow, tx, roleCache, images, tokens),
		projects: services.NewProjectService(uow, tx, roleCache, images),
		members:  services.NewProjectMemberService(uow, tx, roleCache),
		tasks:    tasks,
		drafts:   services.NewTaskDraftService(tasks, cfg.OpenAIAPIKey),
	}

	cleanup := func() error {
		var errs []error
		if err := redis.Close(); err != nil {
			errs = append(errs, err)
		}
		if sqlDB, err := db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
		return errors.Join(errs...)
	}
	return app, cleanup, nil
}

// runConsumer processes task created events published on Redis until ctx ends.
func (a *application) runConsumer(ctx context.Context) {
	if !a.redis.Available() {
		return
	}
	go func() {
		if err := a.consumer.Run(ctx, a.redis); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[Events] consumer stopped: %v", err)
		}
	}()
}
