package vector

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const float32Size = 4

var (
	// ErrCorruptVector reports a stored vector whose byte length does not match the expected dimension.
	ErrCorruptVector = errors.New("corrupt vector")
	// ErrDimensionMismatch reports a vector whose length differs from the index or encoder dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Encode packs v as contiguous little-endian float32 values.
func Encode(v []float32) []byte {
	out := make([]byte, len(v)*float32Size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*float32Size:], math.Float32bits(f))
	}
	return out
}

// Decode unpacks blob into a vector of exactly dimensions values.
// A blob that is not dimensions*4 bytes long is rejected with ErrCorruptVector; it is never truncated or padded.
func Decode(blob []byte, dimensions int) ([]float32, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if len(blob) != dimensions*float32Size {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrCorruptVector, len(blob), dimensions*float32Size)
	}
	out := make([]float32, dimensions)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*float32Size:]))
	}
	return out, nil
}
