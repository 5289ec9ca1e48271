package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/yukikurage/employee-admin-api/internal/cache"
	"github.com/yukikurage/employee-admin-api/internal/constants"
)

// TaskCreatedEvent is emitted after a task has been committed.
type TaskCreatedEvent struct {
	TaskID          uint64  `json:"task_id"`
	TaskName        string  `json:"task_name"`
	TaskDescription *string `json:"task_description,omitempty"`
	ProjectID       uint64  `json:"project_id"`
	ProjectName     string  `json:"project_name"`
	AppointeeID     uint64  `json:"appointee_id"`
	AppointeeEmail  string  `json:"appointee_email"`
}

type Publisher interface {
	PublishTaskCreated(ctx context.Context, event TaskCreatedEvent) error
}

// RedisPublisher publishes events on Redis pub/sub channels.
type RedisPublisher struct {
	redis *cache.Redis
}

func NewRedisPublisher(redis *cache.Redis) *RedisPublisher {
	return &RedisPublisher{redis: redis}
}

func (p *RedisPublisher) PublishTaskCreated(ctx context.Context, event TaskCreatedEvent) error {
	if err := p.redis.Publish(ctx, constants.TaskCreatedChannel, event); err != nil {
		return fmt.Errorf("failed to publish task created event: %w", err)
	}
	return nil
}

// InlinePublisher hands events straight to a consumer in the calling goroutine.
type InlinePublisher struct {
	consumer *TaskCreatedConsumer
}

func NewInlinePublisher(consumer *TaskCreatedConsumer) *InlinePublisher {
	return &InlinePublisher{consumer: consumer}
}

func (p *InlinePublisher) PublishTaskCreated(ctx context.Context, event TaskCreatedEvent) error {
	return p.consumer.HandleTaskCreated(ctx, event)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishTaskCreated(context.Context, TaskCreatedEvent) error { return nil }

// TaskCreatedConsumer notifies the appointee of a new task by email.
type TaskCreatedConsumer struct {
	mailer Mailer
	logger *log.Logger
}

func NewTaskCreatedConsumer(mailer Mailer, logger *log.Logger) *TaskCreatedConsumer {
	if logger == nil {
		logger = log.Default()
	}
	return &TaskCreatedConsumer{mailer: mailer, logger: logger}
}

func (c *TaskCreatedConsumer) HandleTaskCreated(ctx context.Context, event TaskCreatedEvent) error {
	subject := fmt.Sprintf("New task assigned for %s", event.ProjectName)
	body := fmt.Sprintf("You have been assigned the task %q (#%d) in project %q.",
		event.TaskName, event.TaskID, event.ProjectName)
	if event.TaskDescription != nil && *event.TaskDescription != "" {
		body += "\n\n" + *event.TaskDescription
	}

	if err := c.mailer.Send(ctx, event.AppointeeEmail, subject, body); err != nil {
		return fmt.Errorf("failed to notify %s: %w", event.AppointeeEmail, err)
	}
	return nil
}

// HandlePayload decodes a raw channel message and handles it, logging failures.
func (c *TaskCreatedConsumer) HandlePayload(ctx context.Context, payload []byte) {
	var event TaskCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		c.logger.Printf("[Events] discarding malformed task created event: %v", err)
		return
	}
	if err := c.HandleTaskCreated(ctx, event); err != nil {
		c.logger.Printf("[Events] %v", err)
	}
}

// Run consumes task created events from Redis until ctx is done.
func (c *TaskCreatedConsumer) Run(ctx context.Context, redis *cache.Redis) error {
	return redis.Subscribe(ctx, constants.TaskCreatedChannel, c.HandlePayload)
}
