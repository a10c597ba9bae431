package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/vidsense/internal/embedding"
	"github.com/hyperjump/vidsense/internal/keyword"
	"github.com/hyperjump/vidsense/internal/models"
	"github.com/hyperjump/vidsense/internal/vector"
)

func BenchmarkIndexSearch(b *testing.B) {
	idx, _ := vector.NewIndex(384)
	for i := 0; i < 1000; i++ {
		v := make([]float32, 384)
		v[0] = float32(i) / 1000
		v[i%384] += 1
		_ = idx.Add(vector.Entry{Modality: models.ModalityVideo, FileName: fmt.Sprintf("clip%d.mp4", i%50), Vector: v})
	}
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(query, 10)
	}
}

func BenchmarkCodecRoundTrip(b *testing.B) {
	v := make([]float32, 384)
	for i := range v {
		v[i] = float32(i) / 384
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = vector.Decode(vector.Encode(v), 384)
	}
}

func BenchmarkHashEncoder_Embed(b *testing.B) {
	e := embedding.NewHashEncoder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "a person walking a dog across the street")
	}
}

func BenchmarkKeywordSearch(b *testing.B) {
	idx, err := keyword.NewEventIndex("")
	if err != nil {
		b.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()
	labels := []string{"person", "car", "dog", "bicycle", "traffic light"}
	events := make([]*models.VideoEvent, 0, 2000)
	for i := 0; i < 2000; i++ {
		events = append(events, &models.VideoEvent{FileName: fmt.Sprintf("clip%d.mp4", i%40), ObjectName: labels[i%len(labels)], Frame: i * 30})
	}
	if err := idx.IndexVideoEvents(ctx, events); err != nil {
		b.Fatal(err)
	}
	q := &models.KeywordQuery{Term: "traffic light", Limit: 10}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, q, nil)
	}
}
