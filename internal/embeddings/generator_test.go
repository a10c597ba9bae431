package embeddings

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/vidsense/internal/embedding"
	"github.com/hyperjump/vidsense/internal/models"
	"github.com/hyperjump/vidsense/internal/storage"
)

type stores struct {
	events  *storage.SQLiteEventStore
	vectors *storage.SQLiteVectorStore
}

func newStores(t *testing.T) stores {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vidsense.db")
	events, err := storage.NewSQLiteEventStore(path)
	if err != nil {
		t.Fatal(err)
	}
	vectors, err := storage.NewSQLiteVectorStore(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = vectors.Close()
		_ = events.Close()
	})
	return stores{events: events, vectors: vectors}
}

// countingEncoder wraps an encoder and fails on the failAt-th call (1-based) when set.
type countingEncoder struct {
	embedding.Encoder
	calls  int
	failAt int
}

func (c *countingEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.failAt > 0 && c.calls == c.failAt {
		return nil, errors.New("encoder fault")
	}
	return c.Encoder.Embed(ctx, text)
}

func seedAudio(t *testing.T, s stores, transcripts ...string) {
	t.Helper()
	events := make([]*models.AudioEvent, len(transcripts))
	for i, tr := range transcripts {
		events[i] = &models.AudioEvent{FileName: tr + ".mp4", Transcript: tr, Start: float64(i), End: float64(i + 1)}
	}
	if err := s.events.InsertAudioEvents(context.Background(), events); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateAndRetrieve_RanksSharedWords(t *testing.T) {
	s := newStores(t)
	seedAudio(t, s, "hello world", "goodbye", "hello there")
	g := NewGenerator(s.events, embedding.NewHashEncoder(64), s.vectors, WithLogger(zap.NewNop()))
	ctx := context.Background()

	n, err := g.GenerateModality(ctx, models.ModalityAudio)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("generated %d records, want 3", n)
	}

	matches, err := g.Retrieve(ctx, "hello", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].FileName != "hello world.mp4" || matches[1].FileName != "hello there.mp4" {
		t.Errorf("matches = %s, %s", matches[0].FileName, matches[1].FileName)
	}
	for _, m := range matches {
		if math.Abs(m.Score-1/math.Sqrt(2)) > 1e-6 {
			t.Errorf("%s score = %v", m.FileName, m.Score)
		}
	}

	all, _ := g.Retrieve(ctx, "hello", 10)
	if len(all) != 3 || all[2].FileName != "goodbye.mp4" || all[2].Score != 0 {
		t.Errorf("goodbye should rank last with score 0: %+v", all[len(all)-1])
	}
}

func TestRetrieve_ZeroTopK(t *testing.T) {
	s := newStores(t)
	seedAudio(t, s, "hello world")
	enc := &countingEncoder{Encoder: embedding.NewHashEncoder(16)}
	g := NewGenerator(s.events, enc, s.vectors)
	ctx := context.Background()
	if _, err := g.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	calls := enc.calls

	for _, k := range []int{0, -1} {
		matches, err := g.Retrieve(ctx, "hello", k)
		if err != nil {
			t.Fatal(err)
		}
		if matches == nil || len(matches) != 0 {
			t.Errorf("k=%d: expected empty non-nil result, got %v", k, matches)
		}
	}
	if enc.calls != calls {
		t.Errorf("encoder should not be called for top_k <= 0")
	}
}

func TestRetrieve_MinKAndOrdering(t *testing.T) {
	s := newStores(t)
	seedAudio(t, s, "red car", "red dog", "car", "a")
	g := NewGenerator(s.events, embedding.NewHashEncoder(64), s.vectors)
	ctx := context.Background()
	if _, err := g.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	for _, k := range []int{1, 3, 4, 10} {
		matches, err := g.Retrieve(ctx, "red car", k)
		if err != nil {
			t.Fatal(err)
		}
		want := k
		if want > 4 {
			want = 4
		}
		if len(matches) != want {
			t.Errorf("k=%d: got %d matches, want %d", k, len(matches), want)
		}
		for i := 1; i < len(matches); i++ {
			if matches[i].Score > matches[i-1].Score {
				t.Errorf("k=%d: scores not non-increasing at %d", k, i)
			}
		}
	}

	first, _ := g.Retrieve(ctx, "red car", 4)
	second, _ := g.Retrieve(ctx, "red car", 4)
	for i := range first {
		if first[i].FileName != second[i].FileName || first[i].Score != second[i].Score {
			t.Errorf("retrieval not idempotent at %d", i)
		}
	}
	if first[0].FileName != "red car.mp4" || math.Abs(first[0].Score-1) > 1e-6 {
		t.Errorf("exact match should rank first with score 1: %+v", first[0])
	}
}

func TestGenerate_NoDedupAndVideoFirst(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	_ = s.events.InsertVideoEvents(ctx, []*models.VideoEvent{
		{FileName: "v.mp4", ObjectName: "person", Frame: 0},
		{FileName: "v.mp4", ObjectName: "person", Frame: 30},
	})
	seedAudio(t, s, "hello")
	g := NewGenerator(s.events, embedding.NewHashEncoder(32), s.vectors)

	report, err := g.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Counts[models.ModalityVideo] != 2 || report.Counts[models.ModalityAudio] != 1 {
		t.Errorf("counts = %v", report.Counts)
	}
	var order []models.Modality
	_ = s.vectors.ScanEmbeddings(ctx, "", func(r *models.RawEmbedding) error {
		order = append(order, r.Modality)
		return nil
	})
	want := []models.Modality{models.ModalityVideo, models.ModalityVideo, models.ModalityAudio}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("record %d modality = %s, want %s", i, order[i], want[i])
		}
	}

	video, _, err := g.RetrieveModality(ctx, "hello", 5, models.ModalityVideo)
	if err != nil {
		t.Fatal(err)
	}
	if len(video) != 2 {
		t.Errorf("modality filter returned %d matches", len(video))
	}
	for _, m := range video {
		if m.Modality != models.ModalityVideo {
			t.Errorf("unexpected modality %s", m.Modality)
		}
	}
}

func TestGenerate_EncoderFailureWritesNothing(t *testing.T) {
	s := newStores(t)
	seedAudio(t, s, "one", "two", "three")
	enc := &countingEncoder{Encoder: embedding.NewHashEncoder(8), failAt: 2}
	g := NewGenerator(s.events, enc, s.vectors)
	ctx := context.Background()

	if _, err := g.GenerateModality(ctx, models.ModalityAudio); err == nil {
		t.Fatal("expected encoder error to propagate")
	}
	n, _ := s.vectors.CountEmbeddings(ctx, "")
	if n != 0 {
		t.Errorf("expected no records after failure, got %d", n)
	}
}

func TestRetrieve_SkipsCorruptVectors(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	err := s.vectors.InsertEmbeddings(ctx, []*models.EmbeddingRecord{
		{Modality: models.ModalityAudio, FileName: "good.mp4", Vector: []float32{1, 0, 0, 0}},
		{Modality: models.ModalityAudio, FileName: "short.mp4", Vector: []float32{1, 0}},
		{Modality: models.ModalityAudio, FileName: "zero.mp4", Vector: []float32{0, 0, 0, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	g := NewGenerator(s.events, fixedEncoder{vec: []float32{1, 0, 0, 0}}, s.vectors)
	matches, skipped, err := g.RetrieveModality(ctx, "anything", 5, "")
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	for _, m := range matches {
		if m.FileName == "short.mp4" {
			t.Error("corrupt vector must not be returned")
		}
	}
	if matches[1].FileName != "zero.mp4" || matches[1].Score != 0 {
		t.Errorf("zero vector should score 0: %+v", matches[1])
	}
}

func TestReset(t *testing.T) {
	s := newStores(t)
	seedAudio(t, s, "hello")
	g := NewGenerator(s.events, embedding.NewHashEncoder(8), s.vectors)
	ctx := context.Background()
	_, _ = g.Generate(ctx)
	_, _ = g.Generate(ctx)
	n, _ := s.vectors.CountEmbeddings(ctx, "")
	if n != 2 {
		t.Errorf("generation appends: count = %d, want 2", n)
	}
	if err := g.Reset(ctx, ""); err != nil {
		t.Fatal(err)
	}
	_, _ = g.Generate(ctx)
	n, _ = s.vectors.CountEmbeddings(ctx, "")
	if n != 1 {
		t.Errorf("after reset count = %d, want 1", n)
	}
}

type fixedEncoder struct {
	vec []float32
}

func (f fixedEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	out := make([]float32, len(f.vec))
	copy(out, f.vec)
	return out, nil
}

func (f fixedEncoder) Dimensions() int { return len(f.vec) }
func (f fixedEncoder) Close() error    { return nil }
