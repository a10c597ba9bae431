// Package pipeline turns media files into timestamped video and audio events in the event store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/vidsense/internal/config"
	"github.com/hyperjump/vidsense/internal/detect"
	"github.com/hyperjump/vidsense/internal/media"
	"github.com/hyperjump/vidsense/internal/models"
	"github.com/hyperjump/vidsense/internal/storage"
	"github.com/hyperjump/vidsense/internal/transcribe"
)

var (
	// ErrStoreUnavailable aborts a run when the event store cannot be reached.
	ErrStoreUnavailable = errors.New("event store unavailable")
	// ErrAdapterTimeout is returned when a detector or transcriber call exceeds the configured bound.
	ErrAdapterTimeout = errors.New("adapter call timed out")
)

// EventIndexer receives events after they are persisted, for keyword search.
type EventIndexer interface {
	IndexVideoEvents(ctx context.Context, events []*models.VideoEvent) error
	IndexAudioEvents(ctx context.Context, events []*models.AudioEvent) error
}

// Pipeline extracts events from media files one at a time.
type Pipeline struct {
	decoder     media.Decoder
	detector    detect.Detector
	transcriber transcribe.Transcriber
	events      storage.EventStore
	cfg         config.ExtractionConfig
	keyword     EventIndexer
	logger      *zap.Logger // optional; when set, logs state transitions and skipped work
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a logger for per-file state and warnings.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithKeywordIndex indexes every flushed batch of events into idx. Indexing failures are logged only.
func WithKeywordIndex(idx EventIndexer) Option {
	return func(p *Pipeline) { p.keyword = idx }
}

// New creates a pipeline. cfg supplies the fps fallback, audio sample rate, media directory and adapter timeout.
func New(
	decoder media.Decoder,
	detector detect.Detector,
	transcriber transcribe.Transcriber,
	events storage.EventStore,
	cfg config.ExtractionConfig,
	opts ...Option,
) *Pipeline {
	if !media.ValidFPS(cfg.DefaultFPS) {
		cfg.DefaultFPS = 30
	}
	if cfg.AudioSampleRate <= 0 {
		cfg.AudioSampleRate = 16000
	}
	p := &Pipeline{
		decoder:     decoder,
		detector:    detector,
		transcriber: transcriber,
		events:      events,
		cfg:         cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes every media file in the configured media directory.
func (p *Pipeline) Run(ctx context.Context) (*models.RunReport, error) {
	paths, err := media.ListMediaFiles(p.cfg.MediaDir, p.cfg.Extensions)
	if err != nil {
		return nil, err
	}
	return p.RunPaths(ctx, paths)
}

// RunPaths processes paths sequentially. A failed file is recorded and the run continues;
// an unreachable event store or a cancelled context stops the run.
func (p *Pipeline) RunPaths(ctx context.Context, paths []string) (*models.RunReport, error) {
	report := &models.RunReport{RunID: uuid.New().String()}
	p.debug("extraction run started", zap.String("run_id", report.RunID), zap.Int("files", len(paths)))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := p.events.Ping(ctx); err != nil {
			return report, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		fileName := filepath.Base(path)
		if p.cfg.SkipProcessed {
			has, err := p.events.HasEvents(ctx, fileName)
			if err != nil {
				return report, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			if has {
				p.debug("skipping processed file", zap.String("run_id", report.RunID), zap.String("file", fileName))
				report.Add(&models.FileReport{FileName: fileName, Path: path, Status: models.FileSkipped})
				continue
			}
		}

		fr, err := p.processFile(ctx, report.RunID, path)
		report.Add(fr)
		if err != nil {
			if p.logger != nil {
				p.logger.Error("file extraction failed", zap.String("run_id", report.RunID), zap.String("file", fileName), zap.Error(err))
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
		}
	}

	if p.logger != nil {
		p.logger.Info("extraction run finished",
			zap.String("run_id", report.RunID),
			zap.Int("processed", report.Processed),
			zap.Int("failed", report.Failed),
			zap.Int("skipped", report.Skipped),
			zap.Int("video_events", report.VideoEvents),
			zap.Int("audio_events", report.AudioEvents),
		)
	}
	return report, nil
}

// ProcessFile extracts the video and audio events of one file. On error the returned report
// has status failed and nothing from the failing stage has been written.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*models.FileReport, error) {
	return p.processFile(ctx, uuid.New().String(), path)
}

type state string

const (
	statePending         state = "pending"
	stateDecoding        state = "decoding"
	stateDetecting       state = "detecting"
	statePersistingVideo state = "persisting_video_events"
	stateTranscribing    state = "transcribing_audio"
	statePersistingAudio state = "persisting_audio_events"
	stateDone            state = "done"
	stateFailed          state = "failed"
)

func (p *Pipeline) processFile(ctx context.Context, runID, path string) (*models.FileReport, error) {
	fileName := filepath.Base(path)
	report := &models.FileReport{FileName: fileName, Path: path, Status: models.FileFailed}
	start := time.Now()
	defer func() { report.Elapsed = time.Since(start) }()

	logState := func(s state) {
		p.debug("extraction state", zap.String("run_id", runID), zap.String("file", fileName), zap.String("state", string(s)))
	}
	fail := func(err error) (*models.FileReport, error) {
		logState(stateFailed)
		report.Error = err.Error()
		return report, err
	}

	logState(statePending)
	logState(stateDecoding)
	info, err := p.decoder.Probe(ctx, path)
	if err != nil {
		return fail(fmt.Errorf("probe %s: %w", fileName, err))
	}
	fps := info.FPS
	if !media.ValidFPS(fps) {
		fps = p.cfg.DefaultFPS
		report.FPSFallback = true
		if p.logger != nil {
			p.logger.Warn("frame rate unavailable, using default",
				zap.String("file", fileName), zap.Float64("reported_fps", info.FPS), zap.Float64("fps", fps))
		}
	}
	report.FPS = fps
	report.Stride = media.Stride(fps)

	if info.HasVideo {
		logState(stateDetecting)
		videoEvents, err := p.detectFrames(ctx, runID, path, fileName, fps, report)
		if err != nil && !errors.Is(err, media.ErrNoVideoStream) {
			return fail(fmt.Errorf("decode %s: %w", fileName, err))
		}
		logState(statePersistingVideo)
		if err := p.events.InsertVideoEvents(ctx, videoEvents); err != nil {
			return fail(fmt.Errorf("persist video events for %s: %w", fileName, err))
		}
		report.VideoEvents = len(videoEvents)
		if p.keyword != nil && len(videoEvents) > 0 {
			if err := p.keyword.IndexVideoEvents(ctx, videoEvents); err != nil && p.logger != nil {
				p.logger.Warn("keyword indexing failed", zap.String("file", fileName), zap.Error(err))
			}
		}
	}

	if info.HasAudio {
		logState(stateTranscribing)
		audio, err := p.decoder.Audio(ctx, path, p.cfg.AudioSampleRate)
		if err != nil {
			return fail(fmt.Errorf("extract audio from %s: %w", fileName, err))
		}
		segments, err := callWithTimeout(ctx, p.adapterTimeout(), func(ctx context.Context) ([]transcribe.Segment, error) {
			return p.transcriber.Transcribe(ctx, audio)
		})
		switch {
		case err != nil && ctx.Err() != nil:
			return fail(ctx.Err())
		case err != nil:
			report.AudioSkipped = true
			if p.logger != nil {
				p.logger.Warn("transcription failed, skipping audio events",
					zap.String("run_id", runID), zap.String("file", fileName), zap.Error(err))
			}
		default:
			audioEvents := p.audioEvents(fileName, segments, report)
			logState(statePersistingAudio)
			if err := p.events.InsertAudioEvents(ctx, audioEvents); err != nil {
				return fail(fmt.Errorf("persist audio events for %s: %w", fileName, err))
			}
			report.AudioEvents = len(audioEvents)
			if p.keyword != nil && len(audioEvents) > 0 {
				if err := p.keyword.IndexAudioEvents(ctx, audioEvents); err != nil && p.logger != nil {
					p.logger.Warn("keyword indexing failed", zap.String("file", fileName), zap.Error(err))
				}
			}
		}
	}

	report.Status = models.FileDone
	logState(stateDone)
	return report, nil
}

// detectFrames runs the detector on every sampled frame and buffers the resulting events.
// Detector failures skip the frame; decode failures discard the whole buffer.
func (p *Pipeline) detectFrames(ctx context.Context, runID, path, fileName string, fps float64, report *models.FileReport) ([]*models.VideoEvent, error) {
	stride := report.Stride
	var buf []*models.VideoEvent
	err := p.decoder.Frames(ctx, path, stride, func(frame *media.Frame) error {
		report.SampledFrames++
		frameIndex := frame.Ordinal * stride
		timestamp := media.FrameTimestamp(frameIndex, fps)

		detections, err := callWithTimeout(ctx, p.adapterTimeout(), func(ctx context.Context) ([]detect.Detection, error) {
			return p.detector.Detect(ctx, frame)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			report.SkippedFrames++
			if p.logger != nil {
				p.logger.Warn("detector failed, skipping frame",
					zap.String("run_id", runID), zap.String("file", fileName), zap.Int("frame", frameIndex), zap.Error(err))
			}
			return nil
		}

		for _, d := range detections {
			label := strings.TrimSpace(d.Label)
			if label == "" || math.IsNaN(d.Confidence) || math.IsInf(d.Confidence, 0) {
				report.Malformed++
				continue
			}
			ts := timestamp
			buf = append(buf, &models.VideoEvent{
				FileName:   fileName,
				ObjectName: label,
				Frame:      frameIndex,
				Timestamp:  &ts,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// audioEvents maps complete segments to events; segments without a valid end are dropped.
func (p *Pipeline) audioEvents(fileName string, segments []transcribe.Segment, report *models.FileReport) []*models.AudioEvent {
	out := make([]*models.AudioEvent, 0, len(segments))
	for _, s := range segments {
		if !s.Complete() {
			report.DroppedSegs++
			continue
		}
		out = append(out, &models.AudioEvent{
			FileName:   fileName,
			Transcript: strings.TrimSpace(s.Text),
			Start:      s.Start,
			End:        *s.End,
		})
	}
	if report.DroppedSegs > 0 && p.logger != nil {
		p.logger.Warn("dropped partial transcript segments", zap.String("file", fileName), zap.Int("dropped", report.DroppedSegs))
	}
	return out
}

func (p *Pipeline) adapterTimeout() time.Duration {
	return time.Duration(p.cfg.AdapterTimeoutSecs) * time.Second
}

func (p *Pipeline) debug(msg string, fields ...zap.Field) {
	if p.logger != nil {
		p.logger.Debug(msg, fields...)
	}
}

// callWithTimeout runs fn with a deadline when timeout is positive. The call is abandoned, not
// interrupted, if fn ignores its context.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w after %s", ErrAdapterTimeout, timeout)
	}
}
