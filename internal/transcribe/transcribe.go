// Package transcribe provides speech transcribers that turn audio into timestamped text segments.
package transcribe

import (
	"context"
	"math"

	"github.com/hyperjump/vidsense/internal/media"
)

// Segment is one transcribed span of speech. End is nil when the backend did not report one.
type Segment struct {
	Text  string
	Start float64
	End   *float64
}

// Complete reports whether the segment has a finite start and an end at or after it.
func (s Segment) Complete() bool {
	if s.End == nil {
		return false
	}
	if math.IsNaN(s.Start) || math.IsInf(s.Start, 0) || math.IsNaN(*s.End) || math.IsInf(*s.End, 0) {
		return false
	}
	return *s.End >= s.Start
}

// Transcriber converts a mono audio signal into segments. An empty result is valid.
type Transcriber interface {
	Transcribe(ctx context.Context, audio *media.Audio) ([]Segment, error)
}
