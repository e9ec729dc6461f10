package test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/polkiloo/facecheck/internal/adapter/assets"
	"github.com/polkiloo/facecheck/internal/adapter/events"
	"github.com/polkiloo/facecheck/internal/domain/model"
	"github.com/polkiloo/facecheck/internal/pkg/face"
)

// AssetStoreStub keeps assets in memory and records deletions.
type AssetStoreStub struct {
	mu      sync.Mutex
	objects map[string][]byte
	seq     int
	deleted []string

	PutErr    error
	OpenErr   error
	DeleteErr error
}

// NewAssetStoreStub constructs an empty store.
func NewAssetStoreStub() *AssetStoreStub {
	return &AssetStoreStub{objects: make(map[string][]byte)}
}

// Put stores r under "<slot>/<seq>-<name>".
func (s *AssetStoreStub) Put(ctx context.Context, slot assets.Slot, originalName, contentType string, r io.Reader) (string, error) {
	if s.PutErr != nil {
		return "", s.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	ref := fmt.Sprintf("%s/%d-%s", slot, s.seq, originalName)
	s.objects[ref] = data
	return ref, nil
}

// Open returns stored content or assets.ErrNotFound.
func (s *AssetStoreStub) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[ref]
	if !ok {
		return nil, assets.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete drops the object and records the reference.
func (s *AssetStoreStub) Delete(ctx context.Context, ref string) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, ref)
	s.deleted = append(s.deleted, ref)
	return nil
}

// Seed stores data under a fixed reference.
func (s *AssetStoreStub) Seed(ref string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[ref] = data
}

// Has reports whether ref is stored.
func (s *AssetStoreStub) Has(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[ref]
	return ok
}

// Count returns the number of stored objects.
func (s *AssetStoreStub) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Deleted returns references removed so far.
func (s *AssetStoreStub) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

// PublisherStub records published events.
type PublisherStub struct {
	mu     sync.Mutex
	events []model.IdentityEvent
	Err    error
}

// Publish records event and returns the configured error.
func (p *PublisherStub) Publish(ctx context.Context, event model.IdentityEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.Err
}

// Events returns a copy of recorded events.
func (p *PublisherStub) Events() []model.IdentityEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.IdentityEvent(nil), p.events...)
}

// EmbedderStub maps image contents to embeddings. Unknown images have no face.
type EmbedderStub struct {
	mu      sync.Mutex
	Faces   map[string]face.Embedding
	Errs    map[string]error
	EmbedFn func(context.Context, []byte) (face.Embedding, error)
	calls   int
}

// Embed looks up image in Faces and Errs.
func (e *EmbedderStub) Embed(ctx context.Context, image []byte) (face.Embedding, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.EmbedFn != nil {
		return e.EmbedFn(ctx, image)
	}
	if err, ok := e.Errs[string(image)]; ok {
		return nil, err
	}
	if emb, ok := e.Faces[string(image)]; ok {
		return emb, nil
	}
	return nil, face.ErrNoFace
}

// Calls returns the number of Embed invocations.
func (e *EmbedderStub) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

var _ assets.Store = (*AssetStoreStub)(nil)
var _ events.Publisher = (*PublisherStub)(nil)
var _ face.Provider = (*EmbedderStub)(nil)
