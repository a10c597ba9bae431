package embedding

import (
	"context"
	"math"
)

// HashEncoder is a deterministic feature-hashing encoder. Each lowercase word adds 1 to
// bucket FNV-1a(word) mod dimensions and the counts are L2-normalized.
// Text without words encodes to the zero vector.
type HashEncoder struct {
	dimensions int
}

// NewHashEncoder returns a hash encoder of the given dimension (384 when non-positive).
func NewHashEncoder(dimensions int) *HashEncoder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEncoder{dimensions: dimensions}
}

// Embed returns the normalized bucket counts for text.
func (e *HashEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	for _, w := range Words(text) {
		emb[int(HashWord(w)%uint32(e.dimensions))]++
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range emb {
			emb[i] = float32(float64(emb[i]) * norm)
		}
	}
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEncoder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for HashEncoder.
func (e *HashEncoder) Close() error {
	return nil
}
