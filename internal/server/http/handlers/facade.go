package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/polkiloo/facecheck/internal/domain/model"
)

// AuthFacade describes account capabilities required by handlers.
type AuthFacade interface {
	Register(ctx context.Context, in model.Registration) (*model.User, error)
	Login(ctx context.Context, login, password string) (*model.Session, error)
	ParseToken(token string) (uuid.UUID, error)
	Profile(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

// VerificationFacade encapsulates identity verification operations exposed via HTTP.
type VerificationFacade interface {
	VerifyIdentity(ctx context.Context, userID uuid.UUID, selfie model.Upload) (*model.VerificationResult, error)
	RequestRevalidation(ctx context.Context, userID uuid.UUID) error
}

// HealthChecker reports backend availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// IdentityFacade aggregates the full set of operations used across handlers.
type IdentityFacade interface {
	AuthFacade
	VerificationFacade
	HealthChecker
}
