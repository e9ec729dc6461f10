// Package face holds the embedding contract and the distance based match rule.
package face

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrNoFace is returned by providers when the image contains no detectable face.
var ErrNoFace = errors.New("no face found in image")

// ErrDimensionMismatch is returned when two embeddings live in different spaces.
var ErrDimensionMismatch = errors.New("embedding dimensions differ")

// Embedding is a fixed length face descriptor.
type Embedding []float64

// Provider computes at most one face embedding for an image.
// Implementations return ErrNoFace when nothing was detected and any other error
// for infrastructure failures.
type Provider interface {
	Embed(ctx context.Context, image []byte) (Embedding, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, image []byte) (Embedding, error)

func (f ProviderFunc) Embed(ctx context.Context, image []byte) (Embedding, error) {
	return f(ctx, image)
}

// EuclideanDistance returns the L2 distance between a and b.
func EuclideanDistance(a, b Embedding) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty embedding", ErrDimensionMismatch)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}
