//go:build cgo
// +build cgo

package detect

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/vidsense/internal/media"
	"github.com/hyperjump/vidsense/internal/onnxrt"
)

// ONNXOptions configures an ONNXDetector.
type ONNXOptions struct {
	ModelPath           string
	LibraryPath         string
	InputName           string
	OutputName          string
	Width               int
	Height              int
	Anchors             int
	Labels              []string
	ConfidenceThreshold float64
	IOUThreshold        float64
}

// ONNXDetector runs a YOLO-style detector with ONNX Runtime. It requires CGO and the onnxruntime shared library.
type ONNXDetector struct {
	opts         ONNXOptions
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	mu           sync.Mutex
}

// NewONNXDetector loads the model and binds input [1,3,H,W] and output [1,4+classes,anchors] tensors.
func NewONNXDetector(opts ONNXOptions) (*ONNXDetector, error) {
	if err := onnxrt.Init(opts.LibraryPath); err != nil {
		return nil, err
	}
	if len(opts.Labels) == 0 {
		opts.Labels = COCOLabels
	}
	if opts.Width <= 0 || opts.Height <= 0 || opts.Anchors <= 0 {
		return nil, fmt.Errorf("invalid detector geometry %dx%d with %d anchors", opts.Width, opts.Height, opts.Anchors)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(opts.Height), int64(opts.Width)))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+len(opts.Labels)), int64(opts.Anchors)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{opts.InputName},
		[]string{opts.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXDetector{
		opts:         opts,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Detect runs the model on frame, which must already be scaled to the detector input size.
func (d *ONNXDetector) Detect(ctx context.Context, frame *media.Frame) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Width != d.opts.Width || frame.Height != d.opts.Height {
		return nil, fmt.Errorf("frame is %dx%d, detector expects %dx%d", frame.Width, frame.Height, d.opts.Width, d.opts.Height)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	frameToCHW(frame, d.inputTensor.GetData())
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	return decodeYOLO(d.outputTensor.GetData(), d.opts.Labels, d.opts.Anchors, d.opts.ConfidenceThreshold, d.opts.IOUThreshold), nil
}

// Close destroys the session and tensors.
func (d *ONNXDetector) Close() error {
	var err error
	if d.session != nil {
		err = d.session.Destroy()
		d.session = nil
	}
	if d.inputTensor != nil {
		_ = d.inputTensor.Destroy()
		d.inputTensor = nil
	}
	if d.outputTensor != nil {
		_ = d.outputTensor.Destroy()
		d.outputTensor = nil
	}
	return err
}
