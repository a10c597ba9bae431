// Package embedding provides text encoders that map event descriptors to fixed-length vectors.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyEmbedding is returned when a backend produces no vector.
var ErrEmptyEmbedding = errors.New("encoder returned no embedding")

// Encoder maps text to a vector of Dimensions() float32 values.
// Implementations must be deterministic for a given input within one process.
type Encoder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}
