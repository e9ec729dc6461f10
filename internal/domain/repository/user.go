package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/polkiloo/facecheck/internal/domain/model"
)

// UserRepository describes persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user model.NewUser) (*model.User, error)
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// Save overwrites the mutable fields of an existing user.
	Save(ctx context.Context, user *model.User) error
	// Update applies mutate to a locked copy of the user and persists it in one transaction.
	// Nothing is written when mutate returns an error.
	Update(ctx context.Context, id uuid.UUID, mutate func(*model.User) error) (*model.User, error)
}
