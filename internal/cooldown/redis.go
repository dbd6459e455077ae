package cooldown

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "onda:cooldown:"

// Redis shares the skip-list between processes using keys that expire on their own.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects using a redis:// URL and verifies the connection.
func NewRedis(ctx context.Context, rawURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	slog.Info("Credential cooldown backed by Redis", "addr", opts.Addr)
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Active(ctx context.Context, credential string) bool {
	n, err := r.client.Exists(ctx, Key(credential)).Result()
	if err != nil {
		slog.Debug("Cooldown lookup failed", "error", err)
		return false
	}
	return n > 0
}

func (r *Redis) Mark(ctx context.Context, credential string) {
	if err := r.client.Set(ctx, Key(credential), time.Now().UTC().Format(time.RFC3339), r.ttl).Err(); err != nil {
		slog.Warn("Cooldown mark failed", "error", err)
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Key is the Redis key for a credential's cooldown entry.
func Key(credential string) string {
	return keyPrefix + Fingerprint(credential)
}
