package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/facecheck/internal/adapter/assets"
	"github.com/polkiloo/facecheck/internal/adapter/embedding"
	"github.com/polkiloo/facecheck/internal/adapter/events"
	"github.com/polkiloo/facecheck/internal/app"
	"github.com/polkiloo/facecheck/internal/config"
	"github.com/polkiloo/facecheck/internal/logger"
	"github.com/polkiloo/facecheck/internal/pkg/auth"
	"github.com/polkiloo/facecheck/internal/pkg/lock"
	"github.com/polkiloo/facecheck/internal/server/http/handlers"
	"github.com/polkiloo/facecheck/internal/server/http/router"
	"github.com/polkiloo/facecheck/internal/storage/cache"
	"github.com/polkiloo/facecheck/internal/storage/postgres"
	"github.com/polkiloo/facecheck/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		postgres.Module,
		cache.Module,
		lock.Module,
		assets.Module,
		events.Module,
		embedding.Module,
		usecase.Module,
		fx.Provide(func(f *app.IdentityFacade) handlers.IdentityFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
