package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "./data/db/vidsense.db"
watch:
  directories: ["./dev/sample"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "vidsense.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("watch directories: got %d", len(cfg.Watch.Directories))
	}
	wantWatch := filepath.Join(dir, "dev", "sample")
	if cfg.Watch.Directories[0] != wantWatch {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directories[0], wantWatch)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Storage.VectorDatabasePath != cfg.Storage.DatabasePath {
		t.Errorf("vector database should share the event database by default: %s vs %s",
			cfg.Storage.VectorDatabasePath, cfg.Storage.DatabasePath)
	}
	if cfg.Extraction.DefaultFPS != 30 {
		t.Errorf("default fps: got %v", cfg.Extraction.DefaultFPS)
	}
	if cfg.Extraction.AudioSampleRate != 16000 {
		t.Errorf("default sample rate: got %d", cfg.Extraction.AudioSampleRate)
	}
	if len(cfg.Extraction.Extensions) != 1 || cfg.Extraction.Extensions[0] != ".mp4" {
		t.Errorf("extensions: got %v", cfg.Extraction.Extensions)
	}
	if cfg.Extraction.AdapterTimeoutSecs != 0 {
		t.Errorf("adapter timeout should default to unbounded, got %d", cfg.Extraction.AdapterTimeoutSecs)
	}
	if cfg.Detector.Type != DetectorONNX || cfg.Detector.ConfidenceThreshold != 0.25 || cfg.Detector.IOUThreshold != 0.45 {
		t.Errorf("detector defaults: %+v", cfg.Detector)
	}
	if cfg.Transcriber.Type != TranscriberOpenAI || cfg.Transcriber.Model != "whisper-1" {
		t.Errorf("transcriber defaults: %+v", cfg.Transcriber)
	}
	if cfg.Encoder.Type != EncoderONNX || cfg.Encoder.Dimensions != 384 || cfg.Encoder.CacheSize != 10000 {
		t.Errorf("encoder defaults: %+v", cfg.Encoder)
	}
	if cfg.Retrieval.DefaultTopK != 5 || cfg.Retrieval.MaxTopK != 100 {
		t.Errorf("retrieval defaults: %+v", cfg.Retrieval)
	}
	if len(cfg.Watch.Extensions) != 1 || cfg.Watch.Extensions[0] != ".mp4" {
		t.Errorf("watch extensions should follow extraction extensions: got %v", cfg.Watch.Extensions)
	}
}

func TestApplyDefaults_HashEncoderHasNoModelPath(t *testing.T) {
	cfg := &Config{Encoder: EncoderConfig{Type: EncoderHash, Dimensions: 64}}
	ApplyDefaults(cfg)
	if cfg.Encoder.ModelPath != "" {
		t.Errorf("hash encoder should not get a model path, got %s", cfg.Encoder.ModelPath)
	}
	if cfg.Encoder.Dimensions != 64 {
		t.Errorf("explicit dimensions overwritten: %d", cfg.Encoder.Dimensions)
	}
}

func TestLoad_OptionalPathsStayEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./events.db"
detector:
  type: scene
encoder:
  type: hash
extraction:
  media_dir: "./media"
  adapter_timeout_secs: 5
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Detector.ModelPath != "" || cfg.Encoder.ModelPath != "" || cfg.ONNXLibraryPath != "" {
		t.Errorf("unset optional paths should stay empty: %q %q %q",
			cfg.Detector.ModelPath, cfg.Encoder.ModelPath, cfg.ONNXLibraryPath)
	}
	if cfg.Storage.VectorDatabasePath != filepath.Join(dir, "events.db") {
		t.Errorf("vector_database_path = %s", cfg.Storage.VectorDatabasePath)
	}
	if cfg.Extraction.MediaDir != filepath.Join(dir, "media") {
		t.Errorf("media_dir = %s", cfg.Extraction.MediaDir)
	}
	if cfg.Extraction.AdapterTimeoutSecs != 5 {
		t.Errorf("adapter_timeout_secs = %d", cfg.Extraction.AdapterTimeoutSecs)
	}
	if cfg.Extraction.FFmpegPath != "ffmpeg" {
		t.Errorf("ffmpeg path should stay a bare command name, got %s", cfg.Extraction.FFmpegPath)
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("true_returns_true", func(t *testing.T) {
		v := true
		w := &WatchConfig{Recursive: &v}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
