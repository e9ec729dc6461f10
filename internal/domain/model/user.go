package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserType classifies account holders for quota policies outside this service.
type UserType string

const (
	UserTypeIndividual UserType = "individual"
	UserTypeCompany    UserType = "company"
)

// ErrUnknownUserType is returned by ParseUserType for unsupported values.
var ErrUnknownUserType = errors.New("unknown user type")

// ParseUserType accepts canonical names and the legacy pf/pj codes.
// Empty input defaults to an individual account.
func ParseUserType(raw string) (UserType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "individual", "pf":
		return UserTypeIndividual, nil
	case "company", "pj":
		return UserTypeCompany, nil
	default:
		return "", ErrUnknownUserType
	}
}

// ErrVerifiedWithoutSelfie signals a user record that claims trust without evidence.
var ErrVerifiedWithoutSelfie = errors.New("verified user must have a selfie on file")

// User is a registered account together with its verification state.
type User struct {
	ID           uuid.UUID
	Login        string
	Name         string
	Email        string
	PasswordHash string `json:"-"`
	UserType     UserType
	DocumentRef  *string
	SelfieRef    *string
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasDocument reports whether a document photo is on file.
func (u *User) HasDocument() bool {
	return u.DocumentRef != nil && *u.DocumentRef != ""
}

// MarkVerified attaches the accepted selfie and grants trust.
func (u *User) MarkVerified(selfieRef string) {
	u.SelfieRef = &selfieRef
	u.IsVerified = true
}

// ResetVerification drops the selfie and trust flag.
func (u *User) ResetVerification() {
	u.SelfieRef = nil
	u.IsVerified = false
}

// Validate checks record level invariants before persisting.
func (u *User) Validate() error {
	if u.IsVerified && (u.SelfieRef == nil || *u.SelfieRef == "") {
		return ErrVerifiedWithoutSelfie
	}
	return nil
}

// NewUser carries the fields needed to create a user record.
type NewUser struct {
	Login        string
	Name         string
	Email        string
	PasswordHash string
	UserType     UserType
	DocumentRef  *string
}
