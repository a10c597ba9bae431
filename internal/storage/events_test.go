package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/vidsense/internal/models"
)

func newTestEventStore(t *testing.T) *SQLiteEventStore {
	t.Helper()
	store, err := NewSQLiteEventStore(filepath.Join(t.TempDir(), "nested", "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func ts(v float64) *float64 { return &v }

func TestSQLiteEventStore_VideoEvents(t *testing.T) {
	store := newTestEventStore(t)
	ctx := context.Background()

	events := []*models.VideoEvent{
		{FileName: "v.mp4", ObjectName: "person", Frame: 0, Timestamp: ts(0)},
		{FileName: "v.mp4", ObjectName: "car", Frame: 0, Timestamp: ts(0)},
		{FileName: "v.mp4", ObjectName: "person", Frame: 30, Timestamp: ts(1)},
		{FileName: "w.mp4", ObjectName: "dog", Frame: 5, Timestamp: nil},
	}
	if err := store.InsertVideoEvents(ctx, events); err != nil {
		t.Fatal(err)
	}

	n, err := store.CountVideoEvents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("CountVideoEvents=%d, want 4", n)
	}

	got, err := store.ListVideoEvents(ctx, "v.mp4", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events for v.mp4, got %d", len(got))
	}
	if got[2].Frame != 30 || got[2].Timestamp == nil || *got[2].Timestamp != 1 {
		t.Errorf("third event = %+v", got[2])
	}

	all, _ := store.ListVideoEvents(ctx, "", 0, 0)
	if len(all) != 4 || all[3].Timestamp != nil {
		t.Errorf("expected NULL timestamp to read back as nil, got %+v", all[3])
	}

	page, _ := store.ListVideoEvents(ctx, "", 1, 2)
	if len(page) != 2 || page[0].ObjectName != "car" {
		t.Errorf("page = %+v", page)
	}
}

func TestSQLiteEventStore_AudioEvents(t *testing.T) {
	store := newTestEventStore(t)
	ctx := context.Background()

	events := []*models.AudioEvent{
		{FileName: "a.mp4", Transcript: "hello", Start: 0, End: 1.5},
		{FileName: "a.mp4", Transcript: "world", Start: 1.5, End: 3},
	}
	if err := store.InsertAudioEvents(ctx, events); err != nil {
		t.Fatal(err)
	}
	got, err := store.ListAudioEvents(ctx, "a.mp4", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].Transcript != "world" || got[1].End != 3 {
		t.Errorf("got %+v", got)
	}
	n, _ := store.CountAudioEvents(ctx)
	if n != 2 {
		t.Errorf("CountAudioEvents=%d", n)
	}
}

func TestSQLiteEventStore_EmptyInsertIsNoop(t *testing.T) {
	store := newTestEventStore(t)
	ctx := context.Background()
	if err := store.InsertVideoEvents(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertAudioEvents(ctx, []*models.AudioEvent{}); err != nil {
		t.Fatal(err)
	}
	n, _ := store.CountVideoEvents(ctx)
	if n != 0 {
		t.Errorf("expected no rows, got %d", n)
	}
}

func TestSQLiteEventStore_Descriptors(t *testing.T) {
	store := newTestEventStore(t)
	ctx := context.Background()

	_ = store.InsertVideoEvents(ctx, []*models.VideoEvent{
		{FileName: "b.mp4", ObjectName: "person", Frame: 0, Timestamp: ts(0)},
		{FileName: "a.mp4", ObjectName: "person", Frame: 0, Timestamp: ts(0)},
		{FileName: "b.mp4", ObjectName: "person", Frame: 30, Timestamp: ts(1)},
	})
	_ = store.InsertAudioEvents(ctx, []*models.AudioEvent{
		{FileName: "a.mp4", Transcript: "hi", Start: 0, End: 1},
	})

	video, err := store.Descriptors(ctx, models.ModalityVideo)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"b.mp4", "a.mp4", "b.mp4"}
	if len(video) != len(want) {
		t.Fatalf("expected %d descriptors (no dedup), got %d", len(want), len(video))
	}
	for i, d := range video {
		if d.FileName != want[i] || d.Text != "person" {
			t.Errorf("descriptor %d = %+v", i, d)
		}
	}

	audio, _ := store.Descriptors(ctx, models.ModalityAudio)
	if len(audio) != 1 || audio[0].Text != "hi" {
		t.Errorf("audio descriptors = %+v", audio)
	}

	if _, err := store.Descriptors(ctx, models.Modality("text")); !errors.Is(err, ErrUnknownModality) {
		t.Errorf("expected ErrUnknownModality, got %v", err)
	}
}

func TestSQLiteEventStore_HasEventsAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	ctx := context.Background()

	store, err := NewSQLiteEventStore(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.InsertAudioEvents(ctx, []*models.AudioEvent{{FileName: "x.mp4", Transcript: "t", Start: 0, End: 1}})
	ok, err := store.HasEvents(ctx, "x.mp4")
	if err != nil || !ok {
		t.Errorf("HasEvents(x.mp4)=%v, %v", ok, err)
	}
	ok, _ = store.HasEvents(ctx, "y.mp4")
	if ok {
		t.Error("HasEvents(y.mp4) should be false")
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	store, err = NewSQLiteEventStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	n, _ := store.CountAudioEvents(ctx)
	if n != 1 {
		t.Errorf("reopened store lost rows: count=%d", n)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestSQLiteEventStore_PingAfterClose(t *testing.T) {
	store, err := NewSQLiteEventStore(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Close()
	if err := store.Ping(context.Background()); err == nil {
		t.Error("expected Ping to fail on closed store")
	}
}
