package lock

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/polkiloo/facecheck/internal/config"
)

// Module provides the Locker used for per-user exclusion.
var Module = fx.Provide(newLocker)

type lockerParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
	Redis  *redis.Client
}

func newLocker(p lockerParams) Locker {
	if p.Redis == nil {
		return NewKeyedMutex()
	}
	p.Logger.Info("using redis locks", slog.Duration("ttl", p.Config.LockTTL))
	return NewRedisLocker(p.Redis, p.Config.LockTTL, p.Logger)
}
