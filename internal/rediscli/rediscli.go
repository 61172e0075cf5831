// Package rediscli opens the optional Redis connection shared by event
// publishing, webhook de-duplication and rate limiting.
package rediscli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AhmedB2023/ecommerce-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// New returns nil without error when Redis is disabled.
func New(ctx context.Context, cfg config.Redis, log *slog.Logger) (*redis.Client, error) {
	const op = "internal.rediscli.New"

	if !cfg.Enabled {
		log.Info("redis disabled, using in-memory fallbacks")
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse url: %w", op, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: failed to ping: %w", op, err)
	}

	log.Info("redis connected", slog.String("addr", opts.Addr))

	return client, nil
}
