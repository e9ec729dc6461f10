package errors

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateLogin   = errors.New("login already registered")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrNoDocumentOnFile = errors.New("no document on file")
	ErrFaceNotDetected  = errors.New("face not detected")
	ErrProvider         = errors.New("embedding provider failure")
	ErrStorage          = errors.New("storage failure")
	ErrInvalidInput     = errors.New("invalid input")
)

// Wrap attaches a taxonomy kind to an underlying cause, keeping both reachable via errors.Is.
func Wrap(kind, cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, kind) {
		return cause
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

var kinds = []struct {
	err  error
	name string
}{
	{ErrDuplicateLogin, "DuplicateLogin"},
	{ErrUserNotFound, "UserNotFound"},
	{ErrInvalidPassword, "InvalidPassword"},
	{ErrNoDocumentOnFile, "NoDocumentOnFile"},
	{ErrFaceNotDetected, "FaceNotDetected"},
	{ErrProvider, "ProviderError"},
	{ErrStorage, "StorageError"},
	{ErrInvalidInput, "InvalidInput"},
}

// Kind returns the taxonomy name of err, or "Internal" for unclassified errors.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}
