package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps a go-redis client. When the server cannot be reached at startup
// every operation becomes a no-op so callers fall back to their source of truth.
type Redis struct {
	client *redis.Client
	logger *log.Logger

	warnedUnavailable atomic.Bool
}

// RedisOptions configures NewRedis
type RedisOptions struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func NewRedis(opts RedisOptions, logger *log.Logger) *Redis {
	addr := fmt.Sprintf("%s:%s", opts.Host, opts.Port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		if logger != nil {
			logger.Printf("[Cache] Redis unavailable at %s, bypassing cache: %v", addr, err)
		}
		_ = client.Close()
		return &Redis{client: nil, logger: logger}
	}

	return &Redis{client: client, logger: logger}
}

// NewRedisFromClient wraps an existing client without pinging it
func NewRedisFromClient(client *redis.Client, logger *log.Logger) *Redis {
	return &Redis{client: client, logger: logger}
}

func (r *Redis) isUnavailable() bool {
	return r == nil || r.client == nil
}

// Available reports whether a live client is attached
func (r *Redis) Available() bool {
	return !r.isUnavailable()
}

func (r *Redis) warnUnavailableOnce(err error) {
	if r == nil || r.logger == nil {
		return
	}
	if r.warnedUnavailable.CompareAndSwap(false, true) {
		r.logger.Printf("[Cache] Redis error, falling back to source: %v", err)
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	if r.isUnavailable() {
		return errors.New("redis unavailable")
	}
	return r.client.Ping(ctx).Err()
}

func (r *Redis) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	if r.isUnavailable() {
		return false, nil
	}
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		r.warnUnavailableOnce(err)
		return false, err
	}
	if len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores value under key; a non-positive ttl stores it without expiry.
func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if r.isUnavailable() {
		return nil
	}
	if ttl < 0 {
		ttl = 0
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, b, ttl).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return err
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if r.isUnavailable() {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return err
	}
	return nil
}

// Publish sends a JSON payload on a pub/sub channel
func (r *Redis) Publish(ctx context.Context, channel string, payload any) error {
	if r.isUnavailable() {
		return errors.New("redis unavailable")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, b).Err()
}

// Subscribe delivers raw channel payloads to handle until ctx is done
func (r *Redis) Subscribe(ctx context.Context, channel string, handle func(ctx context.Context, payload []byte)) error {
	if r.isUnavailable() {
		return errors.New("redis unavailable")
	}
	sub := r.client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handle(ctx, []byte(msg.Payload))
		}
	}
}

// Close closes the underlying client
func (r *Redis) Close() error {
	if r.isUnavailable() {
		return nil
	}
	return r.client.Close()
}
