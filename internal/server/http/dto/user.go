package dto

import (
	"time"

	"github.com/polkiloo/facecheck/internal/domain/model"
)

// UserResponse is the public view of a user. The password hash is never exposed.
type UserResponse struct {
	ID          string    `json:"id"`
	Login       string    `json:"login"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	UserType    string    `json:"userType"`
	DocumentRef *string   `json:"documentRef,omitempty"`
	SelfieRef   *string   `json:"selfieRef,omitempty"`
	IsVerified  bool      `json:"isVerified"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewUserResponse converts a domain user.
func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:          u.ID.String(),
		Login:       u.Login,
		Name:        u.Name,
		Email:       u.Email,
		UserType:    string(u.UserType),
		DocumentRef: u.DocumentRef,
		SelfieRef:   u.SelfieRef,
		IsVerified:  u.IsVerified,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// VerificationResponse reports a verification attempt. Reason is set only on a mismatch.
type VerificationResponse struct {
	Verified   bool    `json:"verified"`
	Similarity float64 `json:"similarity"`
	Reason     string  `json:"reason,omitempty"`
}

// NewVerificationResponse converts a domain result.
func NewVerificationResponse(r *model.VerificationResult) VerificationResponse {
	return VerificationResponse{
		Verified:   r.Verified,
		Similarity: r.RoundedSimilarity(),
		Reason:     r.Reason,
	}
}

// StatusResponse acknowledges operations without a payload.
type StatusResponse struct {
	OK     bool   `json:"ok,omitempty"`
	Status string `json:"status,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
