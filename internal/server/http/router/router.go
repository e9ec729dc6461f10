package router

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/polkiloo/facecheck/internal/config"
	"github.com/polkiloo/facecheck/internal/server/http/handlers"
	"github.com/polkiloo/facecheck/internal/server/http/middleware"
)

// Params lists router dependencies. Redis is optional and enables rate limiting.
type Params struct {
	fx.In

	Facade handlers.IdentityFacade
	Config *config.Config
	Logger *slog.Logger
	Redis  *redis.Client `optional:"true"`
}

// Setup configures gin router with handlers and middleware.
func Setup(p Params) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	middleware.RegisterValidation()
	engine := gin.New()
	if p.Config.MaxUploadBytes > 0 {
		engine.MaxMultipartMemory = p.Config.MaxUploadBytes
	}

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogger(p.Logger))
	engine.Use(cors.New(corsConfig(p.Config.CORSOrigins)))
	engine.Use(middleware.DecompressRequest())
	engine.Use(middleware.LimitBody(p.Config.MaxUploadBytes))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	authHandler := handlers.NewAuthHandler(p.Facade)
	verificationHandler := handlers.NewVerificationHandler(p.Facade)
	healthHandler := handlers.NewHealthHandler(p.Facade)

	var rdb redis.Scripter
	if p.Redis != nil {
		rdb = p.Redis
	}
	limited := middleware.RateLimit(rdb, p.Config.RateLimitMax, p.Config.RateLimitWindow, middleware.KeyByIPAndRoute(), p.Logger)

	engine.GET("/healthz", healthHandler.Check)

	engine.POST("/users", authHandler.Register)
	engine.POST("/sessions", limited, authHandler.Login)
	engine.GET("/users/me", middleware.AuthRequired(p.Facade), authHandler.Me)
	engine.GET("/users/:id", authHandler.Profile)
	engine.POST("/users/:id/verification", limited, verificationHandler.Verify)
	engine.PUT("/users/:id/verification/reset", verificationHandler.Reset)

	api := engine.Group("/api")
	api.POST("/register", authHandler.Register)
	api.POST("/login", limited, authHandler.Login)
	api.GET("/user/:id", authHandler.Profile)
	api.POST("/verify-identity/:id", limited, verificationHandler.Verify)
	api.PUT("/request-revalidation/:id", verificationHandler.Reset)

	local := p.Config.AssetBackend == "" || p.Config.AssetBackend == config.AssetBackendLocal
	if local && p.Config.AssetDir != "" {
		engine.Static("/uploads", p.Config.AssetDir)
	}

	return engine
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "Authorization", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	wildcard := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	if wildcard {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
