package cache

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/polkiloo/facecheck/internal/config"
)

// Module provides *redis.Client, nil when Redis is disabled.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

func newClient(p clientParams) (*redis.Client, error) {
	client, err := NewRedisClient(context.Background(), p.Config.Redis, p.Logger)
	if err != nil || client == nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}
