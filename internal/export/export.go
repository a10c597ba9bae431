// Package export writes stored events to an .xlsx workbook.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hyperjump/vidsense/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	// VideoSheet and AudioSheet name the workbook sheets.
	VideoSheet = "video_events"
	AudioSheet = "audio_events"

	pageSize = 1000
)

var (
	videoHeader = []interface{}{"file_name", "object_name", "frame", "timestamp"}
	audioHeader = []interface{}{"file_name", "transcript", "start", "end"}
)

// EventSource lists stored events page by page.
type EventSource interface {
	ListVideoEvents(ctx context.Context, fileName string, offset, limit int) ([]*models.VideoEvent, error)
	ListAudioEvents(ctx context.Context, fileName string, offset, limit int) ([]*models.AudioEvent, error)
}

// Summary counts the rows written per sheet.
type Summary struct {
	VideoRows int `json:"video_rows"`
	AudioRows int `json:"audio_rows"`
}

// Write streams every event of fileName (all files when empty) from src into a workbook written to w.
func Write(ctx context.Context, src EventSource, fileName string, w io.Writer) (*Summary, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", VideoSheet); err != nil {
		return nil, fmt.Errorf("failed to name video sheet: %w", err)
	}
	if _, err := f.NewSheet(AudioSheet); err != nil {
		return nil, fmt.Errorf("failed to add audio sheet: %w", err)
	}

	sum := &Summary{}
	var err error
	if sum.VideoRows, err = writeVideo(ctx, f, src, fileName); err != nil {
		return nil, err
	}
	if sum.AudioRows, err = writeAudio(ctx, f, src, fileName); err != nil {
		return nil, err
	}
	if _, err := f.WriteTo(w); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return sum, nil
}

// WriteFile is Write to a file at path, creating parent directories.
func WriteFile(ctx context.Context, src EventSource, fileName, path string) (*Summary, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	sum, err := Write(ctx, src, fileName, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close export file: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return sum, nil
}

func writeVideo(ctx context.Context, f *excelize.File, src EventSource, fileName string) (int, error) {
	sw, err := f.NewStreamWriter(VideoSheet)
	if err != nil {
		return 0, fmt.Errorf("failed to open video sheet: %w", err)
	}
	if err := sw.SetRow("A1", videoHeader); err != nil {
		return 0, err
	}
	rows := 0
	for offset := 0; ; offset += pageSize {
		page, err := src.ListVideoEvents(ctx, fileName, offset, pageSize)
		if err != nil {
			return 0, fmt.Errorf("failed to list video events: %w", err)
		}
		for _, e := range page {
			var ts interface{} = ""
			if e.Timestamp != nil {
				ts = *e.Timestamp
			}
			rows++
			cell, _ := excelize.CoordinatesToCellName(1, rows+1)
			if err := sw.SetRow(cell, []interface{}{e.FileName, e.ObjectName, e.Frame, ts}); err != nil {
				return 0, fmt.Errorf("failed to write video row %d: %w", rows, err)
			}
		}
		if len(page) < pageSize {
			break
		}
	}
	if err := sw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush video sheet: %w", err)
	}
	return rows, nil
}

func writeAudio(ctx context.Context, f *excelize.File, src EventSource, fileName string) (int, error) {
	sw, err := f.NewStreamWriter(AudioSheet)
	if err != nil {
		return 0, fmt.Errorf("failed to open audio sheet: %w", err)
	}
	if err := sw.SetRow("A1", audioHeader); err != nil {
		return 0, err
	}
	rows := 0
	for offset := 0; ; offset += pageSize {
		page, err := src.ListAudioEvents(ctx, fileName, offset, pageSize)
		if err != nil {
			return 0, fmt.Errorf("failed to list audio events: %w", err)
		}
		for _, e := range page {
			rows++
			cell, _ := excelize.CoordinatesToCellName(1, rows+1)
			if err := sw.SetRow(cell, []interface{}{e.FileName, e.Transcript, e.Start, e.End}); err != nil {
				return 0, fmt.Errorf("failed to write audio row %d: %w", rows, err)
			}
		}
		if len(page) < pageSize {
			break
		}
	}
	if err := sw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush audio sheet: %w", err)
	}
	return rows, nil
}
