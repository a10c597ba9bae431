package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// FFmpegDecoder decodes media by running the ffprobe and ffmpeg executables.
type FFmpegDecoder struct {
	ffmpegPath  string
	ffprobePath string
	width       int
	height      int
	logger      *zap.Logger
}

// FFmpegOption configures an FFmpegDecoder.
type FFmpegOption func(*FFmpegDecoder)

// WithBinaries overrides the ffmpeg and ffprobe executables. Empty values keep the defaults.
func WithBinaries(ffmpegPath, ffprobePath string) FFmpegOption {
	return func(d *FFmpegDecoder) {
		if ffmpegPath != "" {
			d.ffmpegPath = ffmpegPath
		}
		if ffprobePath != "" {
			d.ffprobePath = ffprobePath
		}
	}
}

// WithFrameSize scales decoded frames to width x height. Zero keeps the source size.
func WithFrameSize(width, height int) FFmpegOption {
	return func(d *FFmpegDecoder) {
		d.width = width
		d.height = height
	}
}

// WithLogger sets the logger for decoder diagnostics.
func WithLogger(l *zap.Logger) FFmpegOption {
	return func(d *FFmpegDecoder) {
		d.logger = l
	}
}

// NewFFmpegDecoder creates a decoder using ffmpeg and ffprobe from PATH unless overridden.
func NewFFmpegDecoder(opts ...FFmpegOption) *FFmpegDecoder {
	d := &FFmpegDecoder{ffmpegPath: "ffmpeg", ffprobePath: "ffprobe"}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

// Probe reads stream information with ffprobe.
func (d *FFmpegDecoder) Probe(ctx context.Context, path string) (*Info, error) {
	cmd := exec.CommandContext(ctx, d.ffprobePath, "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseProbe(output)
}

func parseProbe(output []byte) (*Info, error) {
	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &Info{}
	if probe.Format.Duration != "" {
		if v, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.Duration = v
		}
	}
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if info.HasVideo {
				continue
			}
			info.HasVideo = true
			info.Width = stream.Width
			info.Height = stream.Height
			info.FPS = parseFrameRate(stream.RFrameRate)
			if info.FPS == 0 {
				info.FPS = parseFrameRate(stream.AvgFrameRate)
			}
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}

// parseFrameRate parses ffprobe's "num/den" rate; anything unparsable or non-positive is 0.
func parseFrameRate(rate string) float64 {
	parts := strings.Split(rate, "/")
	if len(parts) != 2 {
		if v, err := strconv.ParseFloat(rate, 64); err == nil && ValidFPS(v) {
			return v
		}
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den <= 0 {
		return 0
	}
	if fps := num / den; ValidFPS(fps) {
		return fps
	}
	return 0
}

// Frames decodes every stride-th frame as RGB24 and passes it to fn.
func (d *FFmpegDecoder) Frames(ctx context.Context, path string, stride int, fn func(*Frame) error) error {
	if stride < 1 {
		stride = 1
	}
	info, err := d.Probe(ctx, path)
	if err != nil {
		return err
	}
	if !info.HasVideo || info.Width <= 0 || info.Height <= 0 {
		return ErrNoVideoStream
	}
	width, height := info.Width, info.Height
	if d.width > 0 && d.height > 0 {
		width, height = d.width, d.height
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	filter := fmt.Sprintf("select=not(mod(n\\,%d)),scale=%d:%d", stride, width, height)
	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-v", "error", "-i", path,
		"-vf", filter, "-vsync", "0",
		"-f", "rawvideo", "-pix_fmt", "rgb24", "pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	frameSize := width * height * 3
	for ordinal := 0; ; ordinal++ {
		buf := make([]byte, frameSize)
		_, err := io.ReadFull(stdout, buf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			cancel()
			_ = cmd.Wait()
			return fmt.Errorf("read frame %d: %w", ordinal, err)
		}
		frame := &Frame{
			Ordinal:      ordinal,
			Width:        width,
			Height:       height,
			SourceWidth:  info.Width,
			SourceHeight: info.Height,
			Pix:          buf,
		}
		if err := fn(frame); err != nil {
			cancel()
			_ = cmd.Wait()
			return err
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg decode failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if d.logger != nil {
		d.logger.Debug("decoded frames", zap.String("path", path), zap.Int("stride", stride))
	}
	return nil
}

// Audio extracts a mono s16le signal at sampleRate.
func (d *FFmpegDecoder) Audio(ctx context.Context, path string, sampleRate int) (*Audio, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-v", "error", "-i", path,
		"-vn", "-ac", "1", "-ar", strconv.Itoa(sampleRate),
		"-f", "s16le", "pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg audio extraction failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return &Audio{SampleRate: sampleRate, Samples: decodePCM16(output)}, nil
}

func decodePCM16(raw []byte) []int16 {
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples
}
