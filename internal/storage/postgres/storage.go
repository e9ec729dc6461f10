package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/polkiloo/facecheck/internal/domain/errors"
	"github.com/polkiloo/facecheck/internal/domain/model"
	"github.com/polkiloo/facecheck/internal/domain/repository"
)

const uniqueViolation = "23505"

type pgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type userRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Storage) Users() repository.UserRepository {
	return &userRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            login TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            password_hash TEXT NOT NULL,
            user_type TEXT NOT NULL DEFAULT 'individual',
            document_ref TEXT,
            selfie_ref TEXT,
            is_verified BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CONSTRAINT verified_has_selfie CHECK (NOT is_verified OR selfie_ref IS NOT NULL)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_users_verified ON users(is_verified)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// --- UserRepository implementation ---

const selectUser = `SELECT id, login, name, email, password_hash, user_type, document_ref, selfie_ref, is_verified, created_at, updated_at FROM users`

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u        model.User
		userType string
	)
	err := row.Scan(&u.ID, &u.Login, &u.Name, &u.Email, &u.PasswordHash, &userType,
		&u.DocumentRef, &u.SelfieRef, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrUserNotFound
		}
		return nil, domainErrors.Wrap(domainErrors.ErrStorage, err)
	}
	u.UserType = model.UserType(userType)
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, nu model.NewUser) (*model.User, error) {
	const query = `INSERT INTO users (id, login, name, email, password_hash, user_type, document_ref)
                   VALUES ($1, $2, $3, $4, $5, $6, $7)
                   RETURNING created_at, updated_at`
	userType := nu.UserType
	if userType == "" {
		userType = model.UserTypeIndividual
	}
	u := model.User{
		ID:           uuid.New(),
		Login:        nu.Login,
		Name:         nu.Name,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		UserType:     userType,
		DocumentRef:  nu.DocumentRef,
	}
	err := r.storage.pool.QueryRow(ctx, query, u.ID, u.Login, u.Name, u.Email, u.PasswordHash, string(u.UserType), u.DocumentRef).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domainErrors.ErrDuplicateLogin
		}
		return nil, domainErrors.Wrap(domainErrors.ErrStorage, err)
	}
	return &u, nil
}

func (r *userRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	return scanUser(r.storage.pool.QueryRow(ctx, selectUser+` WHERE login=$1`, login))
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return scanUser(r.storage.pool.QueryRow(ctx, selectUser+` WHERE id=$1`, id))
}

func (r *userRepository) Save(ctx context.Context, user *model.User) error {
	return saveUser(ctx, r.storage.pool, user)
}

func saveUser(ctx context.Context, q rowQuerier, user *model.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	const query = `UPDATE users
                   SET name=$2, email=$3, user_type=$4, document_ref=$5, selfie_ref=$6, is_verified=$7, updated_at=NOW()
                   WHERE id=$1
                   RETURNING updated_at`
	err := q.QueryRow(ctx, query, user.ID, user.Name, user.Email, string(user.UserType),
		user.DocumentRef, user.SelfieRef, user.IsVerified).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainErrors.ErrUserNotFound
		}
		return domainErrors.Wrap(domainErrors.ErrStorage, err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*model.User) error) (*model.User, error) {
	var (
		updated *model.User
		fnErr   error
	)
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		updated, fnErr = updateLocked(ctx, tx, id, mutate)
		return fnErr
	})
	if err != nil {
		if fnErr != nil {
			return nil, fnErr
		}
		// begin or commit failed
		return nil, domainErrors.Wrap(domainErrors.ErrStorage, err)
	}
	return updated, nil
}

func updateLocked(ctx context.Context, tx pgx.Tx, id uuid.UUID, mutate func(*model.User) error) (*model.User, error) {
	user, err := scanUser(tx.QueryRow(ctx, selectUser+` WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if err := mutate(user); err != nil {
		return nil, err
	}
	if err := saveUser(ctx, tx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
