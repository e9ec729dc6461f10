package repository

import "context"

// Factory describes access to domain repositories and the health of their backend.
type Factory interface {
	Users() UserRepository
	HealthCheck(ctx context.Context) error
}
