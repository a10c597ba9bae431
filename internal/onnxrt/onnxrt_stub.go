//go:build !cgo
// +build !cgo

package onnxrt

import "errors"

// ErrUnavailable is returned when the binary was built without CGO.
var ErrUnavailable = errors.New("ONNX runtime requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// Init always fails without CGO.
func Init(_ string) error {
	return ErrUnavailable
}

// Available reports whether this build can run ONNX models.
func Available() bool { return false }
