package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/hyperjump/vidsense/internal/config"
)

func TestHashEncoder_Deterministic(t *testing.T) {
	e := NewHashEncoder(64)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "hello world")
	b, _ := e.Embed(ctx, "Hello, WORLD!")
	if len(a) != 64 {
		t.Fatalf("len=%d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("case and punctuation should not change the vector at %d", i)
		}
	}
}

func TestHashEncoder_Buckets(t *testing.T) {
	e := NewHashEncoder(64)
	v, _ := e.Embed(context.Background(), "hello world")
	// FNV-1a mod 64: hello -> 43, world -> 19
	want := float32(1 / math.Sqrt(2))
	if math.Abs(float64(v[43]-want)) > 1e-6 || math.Abs(float64(v[19]-want)) > 1e-6 {
		t.Errorf("v[43]=%v v[19]=%v, want %v", v[43], v[19], want)
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1) > 1e-6 {
		t.Errorf("norm^2=%v", norm)
	}
}

func TestHashEncoder_EmptyIsZero(t *testing.T) {
	e := NewHashEncoder(8)
	for _, text := range []string{"", "   ", "?!"} {
		v, err := e.Embed(context.Background(), text)
		if err != nil {
			t.Fatal(err)
		}
		for i, x := range v {
			if x != 0 {
				t.Errorf("%q: v[%d]=%v, want zero vector", text, i, x)
			}
		}
	}
}

func TestNewEncoder(t *testing.T) {
	enc, err := NewEncoder(config.EncoderConfig{Type: config.EncoderHash, Dimensions: 32, CacheSize: 10}, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := enc.(*HashEncoder); !ok {
		t.Errorf("hash encoder should not be cached, got %T", enc)
	}
	if enc.Dimensions() != 32 {
		t.Errorf("Dimensions=%d", enc.Dimensions())
	}

	if _, err := NewEncoder(config.EncoderConfig{Type: "bogus"}, ""); err == nil {
		t.Error("expected error for unknown encoder type")
	}

	t.Setenv("VIDSENSE_TEST_MISSING_KEY", "")
	if _, err := NewEncoder(config.EncoderConfig{Type: config.EncoderOpenAI, APIKeyEnv: "VIDSENSE_TEST_MISSING_KEY", Dimensions: 8}, ""); err == nil {
		t.Error("expected error when API key is missing")
	}

	t.Setenv("VIDSENSE_TEST_KEY", "sk-test")
	enc, err = NewEncoder(config.EncoderConfig{Type: config.EncoderOpenAI, APIKeyEnv: "VIDSENSE_TEST_KEY", Model: "m", Dimensions: 8, CacheSize: 4}, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := enc.(*CachedEncoder); !ok {
		t.Errorf("expected cached encoder, got %T", enc)
	}
}
