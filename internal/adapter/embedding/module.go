package embedding

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/facecheck/internal/config"
)

// Module exposes the embedding service client to the fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (*HTTPClient, error) {
	return NewHTTPClient(p.Config.EmbeddingServiceURL, p.Logger)
}
