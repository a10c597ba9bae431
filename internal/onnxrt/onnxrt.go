//go:build cgo
// +build cgo

// Package onnxrt initializes the process-wide ONNX Runtime environment shared by the encoder and detector.
package onnxrt

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	initOnce sync.Once
	initErr  error
)

// Init loads the onnxruntime shared library once per process. libraryPath may be empty to use the default.
// Later calls return the result of the first one.
func Init(libraryPath string) error {
	initOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	})
	return initErr
}

// Available reports whether this build can run ONNX models.
func Available() bool { return true }
