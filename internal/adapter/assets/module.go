package assets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/facecheck/internal/config"
)

// Module provides the configured asset Store.
var Module = fx.Provide(newStore)

type storeParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

func newStore(p storeParams) (Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch p.Config.AssetBackend {
	case config.AssetBackendS3:
		return NewS3Store(ctx, p.Config.S3, p.Logger)
	case config.AssetBackendGCS:
		store, err := NewGCSStore(ctx, p.Config.GCS, p.Logger)
		if err != nil {
			return nil, err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return store.Close()
			},
		})
		return store, nil
	case config.AssetBackendLocal, "":
		return NewLocalStore(p.Config.AssetDir, p.Logger)
	default:
		return nil, fmt.Errorf("unknown asset backend %q", p.Config.AssetBackend)
	}
}
