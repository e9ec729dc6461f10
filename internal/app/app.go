package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/facecheck/internal/adapter/embedding"
	"github.com/polkiloo/facecheck/internal/config"
	"github.com/polkiloo/facecheck/internal/pkg/face"
	"github.com/polkiloo/facecheck/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewIdentityFacade,
		newHTTPServer,
		newEmbeddingPool,
		func(pool *worker.EmbeddingPool) face.Provider { return pool },
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type workerParams struct {
	fx.In

	Client *embedding.HTTPClient
	Config *config.Config
	Logger *slog.Logger
}

func newEmbeddingPool(p workerParams) *worker.EmbeddingPool {
	return worker.NewEmbeddingPool(
		p.Client,
		p.Config.EmbedWorkers,
		p.Config.EmbedTimeout,
		p.Logger,
	)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Worker     *worker.EmbeddingPool
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting facecheck",
				slog.String("addr", p.Server.Addr),
				slog.Float64("match_threshold", p.Config.MatchThreshold),
			)
			p.Worker.Start(ctx)
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			// in-flight requests may still need the pool
			err := p.Server.Shutdown(shutdownCtx)
			p.Worker.Stop()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("facecheck stopped")
			return nil
		},
	})
}
