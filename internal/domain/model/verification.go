package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// ReasonFaceMismatch explains a negative verification outcome.
const ReasonFaceMismatch = "face mismatch"

// VerificationResult is the outcome of a document against selfie comparison.
type VerificationResult struct {
	Verified   bool
	Similarity float64
	Distance   float64
	Reason     string
}

// RoundedSimilarity returns similarity with two decimal places.
func (r VerificationResult) RoundedSimilarity() float64 {
	return math.Round(r.Similarity*100) / 100
}

// EventType names a published identity event.
type EventType string

const (
	EventUserRegistered        EventType = "user.registered"
	EventIdentityVerified      EventType = "identity.verified"
	EventIdentityRejected      EventType = "identity.rejected"
	EventRevalidationRequested EventType = "identity.revalidation_requested"
)

// IdentityEvent notifies downstream consumers about trust state changes.
type IdentityEvent struct {
	Type       EventType `json:"type"`
	UserID     uuid.UUID `json:"userId"`
	Verified   bool      `json:"verified"`
	Similarity *float64  `json:"similarity,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
