// Package assets persists uploaded document and selfie images.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a reference does not resolve to a stored object.
var ErrNotFound = errors.New("asset not found")

// ErrInvalidRef is returned for references that could escape the store namespace.
var ErrInvalidRef = errors.New("invalid asset reference")

// Slot groups stored objects by purpose.
type Slot string

const (
	SlotDocument Slot = "documents"
	SlotSelfie   Slot = "selfies"
)

const maxNameLen = 64

// Store saves binary assets under unique names and returns opaque references to them.
type Store interface {
	Put(ctx context.Context, slot Slot, originalName, contentType string, r io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

// ReadAll loads the whole object behind ref.
func ReadAll(ctx context.Context, s Store, ref string) ([]byte, error) {
	rc, err := s.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", ref, err)
	}
	return data, nil
}

// objectName builds "<slot>/<unix millis>-<uuid>-<sanitized name>".
func objectName(slot Slot, originalName string, now time.Time) string {
	return fmt.Sprintf("%s/%d-%s-%s", slot, now.UnixMilli(), uuid.NewString(), sanitizeName(originalName))
}

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	if out == "" {
		return "upload"
	}
	return out
}

func validateRef(ref string) error {
	if ref == "" || strings.HasPrefix(ref, "/") || strings.Contains(ref, "\\") {
		return ErrInvalidRef
	}
	for _, part := range strings.Split(ref, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrInvalidRef
		}
	}
	return nil
}
