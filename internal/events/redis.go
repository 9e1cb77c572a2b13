package events

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"viktor/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Connect returns a Redis client for addr, or nil when addr is empty,
// malformed or unreachable. Callers treat nil as "events disabled".
func Connect(ctx context.Context, addr string) *redis.Client {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}

	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			observability.GlobalLogger.WarnContext(ctx, "invalid REDIS_URL, continuing without events",
				slog.String("error", err.Error()))
			return nil
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "redis unreachable, continuing without events",
			slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}

	observability.GlobalLogger.InfoContext(ctx, "Redis connected successfully")
	return client
}
