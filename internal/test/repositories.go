package test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/facecheck/internal/domain/errors"
	"github.com/polkiloo/facecheck/internal/domain/model"
	"github.com/polkiloo/facecheck/internal/domain/repository"
)

// UserRepositoryStub stores users in-memory for tests. It is safe for concurrent use
// and hands out copies, so callers never share state with the store.
type UserRepositoryStub struct {
	mu      sync.Mutex
	byLogin map[string]uuid.UUID
	byID    map[uuid.UUID]*model.User

	// Err, when set, is returned by every operation.
	Err error
	// CreateFn and UpdateFn run before the in-memory operation; a non-nil error aborts it.
	CreateFn func(context.Context, model.NewUser) error
	UpdateFn func(context.Context, uuid.UUID) error

	updates int
}

// NewUserRepositoryStub constructs stub repository with initialized maps.
func NewUserRepositoryStub() *UserRepositoryStub {
	return &UserRepositoryStub{
		byLogin: make(map[string]uuid.UUID),
		byID:    make(map[uuid.UUID]*model.User),
	}
}

// Create registers user unless the login is taken.
func (s *UserRepositoryStub) Create(ctx context.Context, nu model.NewUser) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.CreateFn != nil {
		if err := s.CreateFn(ctx, nu); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byLogin[nu.Login]; exists {
		return nil, domainErrors.ErrDuplicateLogin
	}
	userType := nu.UserType
	if userType == "" {
		userType = model.UserTypeIndividual
	}
	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.New(),
		Login:        nu.Login,
		Name:         nu.Name,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		UserType:     userType,
		DocumentRef:  copyString(nu.DocumentRef),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byLogin[user.Login] = user.ID
	s.byID[user.ID] = user
	return cloneUser(user), nil
}

// GetByLogin fetches user by login or returns not found.
func (s *UserRepositoryStub) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byLogin[login]; ok {
		return cloneUser(s.byID[id]), nil
	}
	return nil, domainErrors.ErrUserNotFound
}

// GetByID fetches user by identifier or returns not found.
func (s *UserRepositoryStub) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.byID[id]; ok {
		return cloneUser(user), nil
	}
	return nil, domainErrors.ErrUserNotFound
}

// Save overwrites the mutable fields of a stored user.
func (s *UserRepositoryStub) Save(ctx context.Context, user *model.User) error {
	if s.Err != nil {
		return s.Err
	}
	if err := user.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[user.ID]; !ok {
		return domainErrors.ErrUserNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	s.byID[user.ID] = cloneUser(user)
	return nil
}

// Update applies mutate to a copy under the store lock and keeps it only when mutate succeeds.
func (s *UserRepositoryStub) Update(ctx context.Context, id uuid.UUID, mutate func(*model.User) error) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.UpdateFn != nil {
		if err := s.UpdateFn(ctx, id); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[id]
	if !ok {
		return nil, domainErrors.ErrUserNotFound
	}
	working := cloneUser(stored)
	if err := mutate(working); err != nil {
		return nil, err
	}
	if err := working.Validate(); err != nil {
		return nil, err
	}
	working.UpdatedAt = time.Now().UTC()
	s.byID[id] = working
	s.updates++
	return cloneUser(working), nil
}

// Put stores a user as is, bypassing registration.
func (s *UserRepositoryStub) Put(user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byLogin[user.Login] = user.ID
	s.byID[user.ID] = cloneUser(user)
}

// UpdateCount returns the number of committed updates.
func (s *UserRepositoryStub) UpdateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.DocumentRef = copyString(u.DocumentRef)
	c.SelfieRef = copyString(u.SelfieRef)
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// RepositoryFactoryStub satisfies repository.Factory.
type RepositoryFactoryStub struct {
	UsersRepo repository.UserRepository
	HealthErr error
}

// Users returns the configured repository.
func (f RepositoryFactoryStub) Users() repository.UserRepository {
	return f.UsersRepo
}

// HealthCheck returns the configured error.
func (f RepositoryFactoryStub) HealthCheck(context.Context) error {
	return f.HealthErr
}

var _ repository.UserRepository = (*UserRepositoryStub)(nil)
var _ repository.Factory = RepositoryFactoryStub{}
