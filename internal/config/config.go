// Package config provides configuration loading and structs for the vidsense server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Adapter type names.
const (
	DetectorONNX  = "onnx"
	DetectorScene = "scene"

	TranscriberOpenAI      = "openai"
	TranscriberPlaceholder = "placeholder"

	EncoderONNX   = "onnx"
	EncoderOpenAI = "openai"
	EncoderHash   = "hash"
)

// Config holds all configuration for the application.
type Config struct {
	Debug           bool              `yaml:"debug"`
	ONNXLibraryPath string            `yaml:"onnx_library_path"`
	Server          ServerConfig      `yaml:"server"`
	Storage         StorageConfig     `yaml:"storage"`
	Extraction      ExtractionConfig  `yaml:"extraction"`
	Detector        DetectorConfig    `yaml:"detector"`
	Transcriber     TranscriberConfig `yaml:"transcriber"`
	Encoder         EncoderConfig     `yaml:"encoder"`
	Retrieval       RetrievalConfig   `yaml:"retrieval"`
	Watch           WatchConfig       `yaml:"watch"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	DebounceMS  int      `yaml:"debounce_ms"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the event log, vector log and keyword index.
// The vector log shares the event database file unless VectorDatabasePath is set.
type StorageConfig struct {
	DatabasePath       string `yaml:"database_path"`
	VectorDatabasePath string `yaml:"vector_database_path"`
	BleveIndexPath     string `yaml:"bleve_index_path"`
}

// ExtractionConfig holds media decoding and pipeline settings.
type ExtractionConfig struct {
	MediaDir        string   `yaml:"media_dir"`
	Extensions      []string `yaml:"extensions"`
	DefaultFPS      float64  `yaml:"default_fps"`
	AudioSampleRate int      `yaml:"audio_sample_rate"`
	FrameWidth      int      `yaml:"frame_width"`
	FrameHeight     int      `yaml:"frame_height"`
	// AdapterTimeoutSecs bounds each detector or transcriber call; 0 means no bound.
	AdapterTimeoutSecs int    `yaml:"adapter_timeout_secs"`
	SkipProcessed      bool   `yaml:"skip_processed"`
	FFmpegPath         string `yaml:"ffmpeg_path"`
	FFprobePath        string `yaml:"ffprobe_path"`
}

// DetectorConfig selects and configures the object detector.
type DetectorConfig struct {
	Type                string   `yaml:"type"`
	ModelPath           string   `yaml:"model_path"`
	Labels              []string `yaml:"labels"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`
	IOUThreshold        float64  `yaml:"iou_threshold"`
	InputName           string   `yaml:"input_name"`
	OutputName          string   `yaml:"output_name"`
	Anchors             int      `yaml:"anchors"`
}

// TranscriberConfig selects and configures the speech transcriber.
type TranscriberConfig struct {
	Type      string `yaml:"type"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Language  string `yaml:"language"`
}

// EncoderConfig selects and configures the text encoder.
type EncoderConfig struct {
	Type       string `yaml:"type"`
	ModelPath  string `yaml:"model_path"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	OutputName string `yaml:"output_name"`
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
}

// RetrievalConfig holds retrieval limits.
type RetrievalConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorDatabasePath = expandPath(cfg.Storage.VectorDatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Extraction.MediaDir = expandPath(cfg.Extraction.MediaDir, configDir)
	cfg.Detector.ModelPath = expandOptional(cfg.Detector.ModelPath, configDir)
	cfg.Encoder.ModelPath = expandOptional(cfg.Encoder.ModelPath, configDir)
	cfg.ONNXLibraryPath = expandOptional(cfg.ONNXLibraryPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

func expandOptional(path string, configDir string) string {
	if path == "" {
		return ""
	}
	return expandPath(path, configDir)
}
