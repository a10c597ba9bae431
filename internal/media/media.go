// Package media decodes video and audio from media files for the extraction pipeline.
package media

import (
	"context"
	"errors"
	"math"
)

// ErrNoVideoStream is returned when frames are requested from a file without a video stream.
var ErrNoVideoStream = errors.New("no video stream")

// Info describes a probed media file.
type Info struct {
	// FPS is the source frame rate; 0 when the container does not report one.
	FPS      float64
	Duration float64
	Width    int
	Height   int
	HasVideo bool
	HasAudio bool
}

// Frame is one decoded, sampled video frame as packed RGB24 pixels.
type Frame struct {
	// Ordinal is the index of the frame among sampled frames, starting at 0.
	Ordinal      int
	Width        int
	Height       int
	SourceWidth  int
	SourceHeight int
	Pix          []byte
}

// Audio is a mono PCM16 signal.
type Audio struct {
	SampleRate int
	Samples    []int16
}

// Duration returns the signal length in seconds.
func (a *Audio) Duration() float64 {
	if a == nil || a.SampleRate <= 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

// Decoder opens media files and yields their frames and audio.
type Decoder interface {
	Probe(ctx context.Context, path string) (*Info, error)
	// Frames decodes every stride-th frame of path in order and calls fn for each.
	// Returning an error from fn stops decoding and is returned as is.
	Frames(ctx context.Context, path string, stride int, fn func(*Frame) error) error
	// Audio extracts a mono signal resampled to sampleRate.
	Audio(ctx context.Context, path string, sampleRate int) (*Audio, error)
}

// Stride returns the sampling interval for one frame per second of source: round(fps), at least 1.
func Stride(fps float64) int {
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 {
		return 1
	}
	s := int(math.Round(fps))
	if s < 1 {
		return 1
	}
	return s
}

// FrameTimestamp returns the source time in seconds of frame index frame at fps.
func FrameTimestamp(frame int, fps float64) float64 {
	return float64(frame) / fps
}

// ValidFPS reports whether fps is usable for timestamp arithmetic.
func ValidFPS(fps float64) bool {
	return fps > 0 && !math.IsNaN(fps) && !math.IsInf(fps, 0)
}
