package usecase

import (
	"go.uber.org/fx"

	"github.com/polkiloo/facecheck/internal/config"
	"github.com/polkiloo/facecheck/internal/pkg/face"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewAuthUseCase,
	NewVerificationUseCase,
	newMatcher,
	newVerificationOptions,
)

func newMatcher(cfg *config.Config) *face.Matcher {
	return face.NewMatcher(cfg.MatchThreshold)
}

func newVerificationOptions(cfg *config.Config) VerificationOptions {
	return VerificationOptions{RetainRejectedSelfies: cfg.RetainRejectedSelfies}
}
