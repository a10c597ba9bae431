//go:build !cgo
// +build !cgo

package embedding

import (
	"context"

	"github.com/hyperjump/vidsense/internal/onnxrt"
)

// ONNXEncoder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEncoder struct{}

// NewONNXEncoder returns an error when built without CGO (ONNX not available).
func NewONNXEncoder(_, _, _ string, _, _ int) (*ONNXEncoder, error) {
	return nil, onnxrt.ErrUnavailable
}

// Embed is unreachable without CGO.
func (e *ONNXEncoder) Embed(context.Context, string) ([]float32, error) {
	return nil, onnxrt.ErrUnavailable
}

// Dimensions returns 0 without CGO.
func (e *ONNXEncoder) Dimensions() int { return 0 }

// Close is a no-op without CGO.
func (e *ONNXEncoder) Close() error { return nil }
