package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/vidsense/internal/models"
	"github.com/hyperjump/vidsense/internal/storage"
	"github.com/xuri/excelize/v2"
)

func floatPtr(f float64) *float64 { return &f }

func seededStore(t *testing.T) *storage.SQLiteEventStore {
	t.Helper()
	store, err := storage.NewSQLiteEventStore(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("NewSQLiteEventStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	video := []*models.VideoEvent{
		{FileName: "a.mp4", ObjectName: "person", Frame: 0, Timestamp: floatPtr(0)},
		{FileName: "a.mp4", ObjectName: "car", Frame: 30, Timestamp: floatPtr(1)},
		{FileName: "b.mp4", ObjectName: "dog", Frame: 15, Timestamp: nil},
	}
	audio := []*models.AudioEvent{
		{FileName: "a.mp4", Transcript: "hello there", Start: 0, End: 2.5},
	}
	if err := store.InsertVideoEvents(ctx, video); err != nil {
		t.Fatalf("InsertVideoEvents: %v", err)
	}
	if err := store.InsertAudioEvents(ctx, audio); err != nil {
		t.Fatalf("InsertAudioEvents: %v", err)
	}
	return store
}

func readRows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows(%s): %v", sheet, err)
	}
	return rows
}

func TestWrite(t *testing.T) {
	store := seededStore(t)

	var buf bytes.Buffer
	sum, err := Write(context.Background(), store, "", &buf)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if sum.VideoRows != 3 || sum.AudioRows != 1 {
		t.Errorf("summary = %+v, want 3 video and 1 audio", sum)
	}

	video := readRows(t, buf.Bytes(), VideoSheet)
	if len(video) != 4 {
		t.Fatalf("video sheet rows = %d, want header + 3", len(video))
	}
	if video[0][0] != "file_name" || video[0][3] != "timestamp" {
		t.Errorf("video header = %v", video[0])
	}
	if video[2][1] != "car" || video[2][2] != "30" || video[2][3] != "1" {
		t.Errorf("second video row = %v", video[2])
	}
	// A NULL timestamp exports as an empty cell.
	if len(video[3]) > 3 && video[3][3] != "" {
		t.Errorf("NULL timestamp exported as %q", video[3][3])
	}

	audio := readRows(t, buf.Bytes(), AudioSheet)
	if len(audio) != 2 {
		t.Fatalf("audio sheet rows = %d, want header + 1", len(audio))
	}
	if audio[1][1] != "hello there" || audio[1][3] != "2.5" {
		t.Errorf("audio row = %v", audio[1])
	}
}

func TestWrite_FileFilter(t *testing.T) {
	store := seededStore(t)

	var buf bytes.Buffer
	sum, err := Write(context.Background(), store, "b.mp4", &buf)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if sum.VideoRows != 1 || sum.AudioRows != 0 {
		t.Errorf("summary = %+v, want 1 video and 0 audio", sum)
	}
	audio := readRows(t, buf.Bytes(), AudioSheet)
	if len(audio) != 1 {
		t.Errorf("audio sheet should hold only the header, got %d rows", len(audio))
	}
}

func TestWriteFile(t *testing.T) {
	store := seededStore(t)
	path := filepath.Join(t.TempDir(), "out", "events.xlsx")

	if _, err := WriteFile(context.Background(), store, "", path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if rows := readRows(t, data, VideoSheet); len(rows) != 4 {
		t.Errorf("video sheet rows = %d, want 4", len(rows))
	}
}

type failingSource struct{}

func (failingSource) ListVideoEvents(context.Context, string, int, int) ([]*models.VideoEvent, error) {
	return nil, errors.New("database is locked")
}

func (failingSource) ListAudioEvents(context.Context, string, int, int) ([]*models.AudioEvent, error) {
	return nil, nil
}

func TestWriteFile_SourceErrorRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.xlsx")
	if _, err := WriteFile(context.Background(), failingSource{}, "", path); err == nil {
		t.Fatal("expected error from failing source")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("partial export should be removed, stat err = %v", err)
	}
}
