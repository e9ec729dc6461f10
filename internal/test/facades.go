package test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/polkiloo/facecheck/internal/domain/model"
)

// AuthFacadeStub provides controllable behaviour for account endpoints.
type AuthFacadeStub struct {
	RegisterFn func(context.Context, model.Registration) (*model.User, error)
	LoginFn    func(context.Context, string, string) (*model.Session, error)
	ParseFn    func(string) (uuid.UUID, error)
	ProfileFn  func(context.Context, uuid.UUID) (*model.User, error)
}

// Register delegates to RegisterFn or returns a fresh unverified user.
func (s AuthFacadeStub) Register(ctx context.Context, in model.Registration) (*model.User, error) {
	if s.RegisterFn != nil {
		return s.RegisterFn(ctx, in)
	}
	return &model.User{ID: uuid.New(), Login: in.Login, Name: in.Name, Email: in.Email, UserType: model.UserTypeIndividual}, nil
}

// Login delegates to LoginFn or issues "token" for a new user.
func (s AuthFacadeStub) Login(ctx context.Context, login, password string) (*model.Session, error) {
	if s.LoginFn != nil {
		return s.LoginFn(ctx, login, password)
	}
	return &model.Session{Token: "token", User: &model.User{ID: uuid.New(), Login: login, Name: login}}, nil
}

// ParseToken delegates to ParseFn or returns a random identifier.
func (s AuthFacadeStub) ParseToken(token string) (uuid.UUID, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return uuid.New(), nil
}

// Profile delegates to ProfileFn or returns a minimal user.
func (s AuthFacadeStub) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	if s.ProfileFn != nil {
		return s.ProfileFn(ctx, userID)
	}
	now := time.Unix(0, 0).UTC()
	return &model.User{ID: userID, Login: "user", Name: "User", PasswordHash: "secret-hash", CreatedAt: now, UpdatedAt: now}, nil
}

// VerificationFacadeStub simulates verification operations.
type VerificationFacadeStub struct {
	VerifyFn func(context.Context, uuid.UUID, model.Upload) (*model.VerificationResult, error)
	ResetFn  func(context.Context, uuid.UUID) error
}

// VerifyIdentity delegates to VerifyFn or reports a match.
func (s VerificationFacadeStub) VerifyIdentity(ctx context.Context, userID uuid.UUID, selfie model.Upload) (*model.VerificationResult, error) {
	if s.VerifyFn != nil {
		return s.VerifyFn(ctx, userID, selfie)
	}
	return &model.VerificationResult{Verified: true, Similarity: 0.8, Distance: 0.2}, nil
}

// RequestRevalidation delegates to ResetFn.
func (s VerificationFacadeStub) RequestRevalidation(ctx context.Context, userID uuid.UUID) error {
	if s.ResetFn != nil {
		return s.ResetFn(ctx, userID)
	}
	return nil
}

// HealthCheckerStub returns Err from every probe.
type HealthCheckerStub struct {
	Err error
}

// HealthCheck returns the configured error.
func (s HealthCheckerStub) HealthCheck(context.Context) error {
	return s.Err
}

// IdentityFacadeStub composes the facade stubs for router tests.
type IdentityFacadeStub struct {
	AuthFacadeStub
	VerificationFacadeStub
	HealthCheckerStub
}
