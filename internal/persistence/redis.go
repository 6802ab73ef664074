package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

const seenKeyPrefix = "helpdesk:seen:"

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// SeenTicket returns the ticket previously recorded for a message id, if
// the fast-path cache still remembers it. The database unique constraint
// remains authoritative; a cache miss means nothing.
func (r *Redis) SeenTicket(ctx context.Context, messageID string) (string, bool) {
	if r == nil || r.Client == nil || messageID == "" {
		return "", false
	}
	val, err := r.Client.Get(ctx, seenKeyPrefix+messageID).Result()
	if err != nil || val == "" {
		return "", false
	}
	return val, true
}

// RememberMessage caches messageID -> ticketID so repeated webhook
// deliveries can short-circuit before hitting the database.
func (r *Redis) RememberMessage(ctx context.Context, messageID, ticketID string, ttl time.Duration) {
	if r == nil || r.Client == nil || messageID == "" {
		return
	}
	_ = r.Client.SetNX(ctx, seenKeyPrefix+messageID, ticketID, ttl).Err()
}
