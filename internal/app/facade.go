package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/polkiloo/facecheck/internal/domain/model"
	"github.com/polkiloo/facecheck/internal/domain/repository"
	"github.com/polkiloo/facecheck/internal/usecase"
)

// IdentityFacade exposes the account and verification use cases to the transport layer.
type IdentityFacade struct {
	auth         *usecase.AuthUseCase
	verification *usecase.VerificationUseCase
	repos        repository.Factory
}

func NewIdentityFacade(auth *usecase.AuthUseCase, verification *usecase.VerificationUseCase, repos repository.Factory) *IdentityFacade {
	return &IdentityFacade{auth: auth, verification: verification, repos: repos}
}

func (f *IdentityFacade) Register(ctx context.Context, in model.Registration) (*model.User, error) {
	return f.auth.Register(ctx, in)
}

func (f *IdentityFacade) Login(ctx context.Context, login, password string) (*model.Session, error) {
	return f.auth.Login(ctx, login, password)
}

func (f *IdentityFacade) ParseToken(token string) (uuid.UUID, error) {
	return f.auth.ParseToken(token)
}

func (f *IdentityFacade) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return f.auth.Profile(ctx, userID)
}

func (f *IdentityFacade) VerifyIdentity(ctx context.Context, userID uuid.UUID, selfie model.Upload) (*model.VerificationResult, error) {
	return f.verification.VerifyIdentity(ctx, userID, selfie)
}

func (f *IdentityFacade) RequestRevalidation(ctx context.Context, userID uuid.UUID) error {
	return f.verification.RequestRevalidation(ctx, userID)
}

// HealthCheck reports whether the user store is reachable.
func (f *IdentityFacade) HealthCheck(ctx context.Context) error {
	return f.repos.HealthCheck(ctx)
}
