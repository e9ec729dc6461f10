package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/polkiloo/facecheck/internal/adapter/assets"
	"github.com/polkiloo/facecheck/internal/adapter/events"
	domainErrors "github.com/polkiloo/facecheck/internal/domain/errors"
	"github.com/polkiloo/facecheck/internal/domain/model"
	"github.com/polkiloo/facecheck/internal/domain/repository"
	pkgAuth "github.com/polkiloo/facecheck/internal/pkg/auth"
)

// AuthUseCase handles user lifecycle and token management.
type AuthUseCase struct {
	users  repository.UserRepository
	hasher pkgAuth.PasswordHasher
	tokens pkgAuth.Strategy
	assets assets.Store
	events events.Publisher
	logger *slog.Logger
}

// NewAuthUseCase constructs AuthUseCase.
func NewAuthUseCase(
	users repository.UserRepository,
	hasher pkgAuth.PasswordHasher,
	strategy pkgAuth.Strategy,
	store assets.Store,
	publisher events.Publisher,
	logger *slog.Logger,
) *AuthUseCase {
	return &AuthUseCase{users: users, hasher: hasher, tokens: strategy, assets: store, events: publisher, logger: logger}
}

// Register creates a new unverified user and stores the document photo when one is supplied.
func (u *AuthUseCase) Register(ctx context.Context, in model.Registration) (*model.User, error) {
	login := strings.TrimSpace(in.Login)
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if login == "" || in.Password == "" || name == "" || email == "" {
		return nil, domainErrors.Wrap(domainErrors.ErrInvalidInput, errors.New("login, password, name and email are required"))
	}
	userType, err := model.ParseUserType(in.UserType)
	if err != nil {
		return nil, domainErrors.Wrap(domainErrors.ErrInvalidInput, err)
	}

	// no asset is written for a login that is already taken
	if _, err := u.users.GetByLogin(ctx, login); err == nil {
		return nil, domainErrors.ErrDuplicateLogin
	} else if !errors.Is(err, domainErrors.ErrUserNotFound) {
		return nil, err
	}

	var documentRef *string
	if in.Document != nil && len(in.Document.Data) > 0 {
		ref, err := u.assets.Put(ctx, assets.SlotDocument, in.Document.Filename, in.Document.ContentType, bytes.NewReader(in.Document.Data))
		if err != nil {
			return nil, domainErrors.Wrap(domainErrors.ErrStorage, err)
		}
		documentRef = &ref
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		u.discardAsset(ctx, documentRef)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	usr, err := u.users.Create(ctx, model.NewUser{
		Login:        login,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		UserType:     userType,
		DocumentRef:  documentRef,
	})
	if err != nil {
		u.discardAsset(ctx, documentRef)
		return nil, err
	}

	u.logger.Info("user registered", slog.String("user_id", usr.ID.String()), slog.Bool("has_document", usr.HasDocument()))
	publish(ctx, u.events, u.logger, model.IdentityEvent{Type: model.EventUserRegistered, UserID: usr.ID})
	return usr, nil
}

// Login validates credentials and issues a session token.
func (u *AuthUseCase) Login(ctx context.Context, login, password string) (*model.Session, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, domainErrors.Wrap(domainErrors.ErrInvalidInput, errors.New("login and password are required"))
	}

	usr, err := u.users.GetByLogin(ctx, login)
	if err != nil {
		return nil, err
	}

	if err := u.hasher.Compare(usr.PasswordHash, password); err != nil {
		if errors.Is(err, pkgAuth.ErrPasswordMismatch) {
			return nil, domainErrors.ErrInvalidPassword
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}

	token, err := u.tokens.IssueToken(usr.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &model.Session{Token: token, User: usr}, nil
}

// ParseToken extracts user ID from provided token.
func (u *AuthUseCase) ParseToken(token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, pkgAuth.ErrInvalidToken
	}
	return u.tokens.ParseToken(token)
}

// Profile fetches user by identifier.
func (u *AuthUseCase) Profile(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return u.users.GetByID(ctx, id)
}

func (u *AuthUseCase) discardAsset(ctx context.Context, ref *string) {
	if ref == nil {
		return
	}
	if err := u.assets.Delete(context.WithoutCancel(ctx), *ref); err != nil {
		u.logger.Warn("failed to delete orphaned asset", slog.String("ref", *ref), slog.String("error", err.Error()))
	}
}

// publish never fails the calling operation; delivery problems are only logged.
func publish(ctx context.Context, publisher events.Publisher, logger *slog.Logger, event model.IdentityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = nowUTC()
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish identity event",
			slog.String("type", string(event.Type)),
			slog.String("user_id", event.UserID.String()),
			slog.String("error", err.Error()),
		)
	}
}
