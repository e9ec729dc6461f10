package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid auth token")

// DefaultTTL bounds the validity of session tokens when no TTL is configured.
const DefaultTTL = 2 * time.Hour

// Strategy issues and verifies session tokens carrying the user identifier.
type Strategy interface {
	IssueToken(userID uuid.UUID) (string, error)
	ParseToken(token string) (uuid.UUID, error)
	Name() string
}

type Options struct {
	TTL time.Duration
}

func (o Options) ttl() time.Duration {
	if o.TTL <= 0 {
		return DefaultTTL
	}
	return o.TTL
}
