package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/vidsense/internal/cli"
	"github.com/hyperjump/vidsense/internal/models"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"a dog on a beach", "-top-k", "3"},
			expected: []string{"-top-k", "3", "a dog on a beach"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-top-k", "3", "a dog on a beach"},
			expected: []string{"-top-k", "3", "a dog on a beach"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"a dog on a beach"},
			expected: []string{"a dog on a beach"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"red", "car", "-modality", "video"},
			expected: []string{"-modality", "video", "red", "car"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"person"}, "person"},
		{"multiple words", []string{"person", "walking"}, "person walking"},
		{"single quoted phrase", []string{"person walking"}, "person walking"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestConfigPathFromArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		defaultPath string
		want        string
	}{
		{"no config flag", []string{"-top-k", "5", "query"}, "/default.yaml", "/default.yaml"},
		{"-config present", []string{"-config", "/custom.yaml", "query"}, "/default.yaml", "/custom.yaml"},
		{"--config present", []string{"--config", "/other.yaml"}, "/default.yaml", "/other.yaml"},
		{"config at end", []string{"query", "-config", "/end.yaml"}, "/default.yaml", "/end.yaml"},
		{"config with equals", []string{"--config=/eq.yaml", "query"}, "/default.yaml", "/eq.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := configPathFromArgs(tt.args, tt.defaultPath)
			if got != tt.want {
				t.Errorf("configPathFromArgs() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultTopKFromConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
retrieval:
  default_top_k: 12
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if got := defaultTopKFromConfig(configPath); got != 12 {
		t.Errorf("defaultTopKFromConfig() = %d, want 12", got)
	}
	if got := defaultTopKFromConfig(filepath.Join(dir, "nonexistent.yaml")); got != 5 {
		t.Errorf("defaultTopKFromConfig(nonexistent) = %d, want 5", got)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "./events.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "./events.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.VectorDatabasePath != cfg.Storage.DatabasePath {
		t.Errorf("vector database = %s, want it to share %s", cfg.Storage.VectorDatabasePath, cfg.Storage.DatabasePath)
	}
}

func TestExpandMediaPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp4", "a.mp4", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	single := filepath.Join(dir, "notes.txt")

	paths, err := expandMediaPaths([]string{dir, single}, []string{".mp4"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.mp4"), filepath.Join(dir, "b.mp4"), single}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("expandMediaPaths() = %v, want %v", paths, want)
	}

	if _, err := expandMediaPaths([]string{filepath.Join(dir, "missing.mp4")}, []string{".mp4"}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestKeywordSearchURL(t *testing.T) {
	q := &models.KeywordQuery{Term: "red car", Limit: 5, Fuzzy: true, Modality: "video", FileName: "clip.mp4"}
	raw := keywordSearchURL("http://localhost:8080", q)
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if u.Path != "/api/v1/search" {
		t.Errorf("path = %s", u.Path)
	}
	params := u.Query()
	if params.Get("term") != "red car" || params.Get("limit") != "5" || params.Get("fuzzy") != "true" ||
		params.Get("modality") != "video" || params.Get("file") != "clip.mp4" {
		t.Errorf("unexpected params: %v", params)
	}

	raw = keywordSearchURL("http://localhost:8080", &models.KeywordQuery{Term: "dog"})
	u, _ = url.Parse(raw)
	if len(u.Query()) != 1 {
		t.Errorf("only term should be set, got %v", u.Query())
	}
}

func TestRetrieveViaHTTP(t *testing.T) {
	var got map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/retrieve" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&models.RetrieveResponse{
			Query:   "dog",
			TopK:    2,
			Matches: []*models.Match{{Modality: models.ModalityVideo, FileName: "a.mp4", Score: 0.8, Rank: 1}},
		})
	}))
	defer ts.Close()

	resp, err := retrieveViaHTTP(ts.URL, &models.RetrieveQuery{Query: "dog", TopK: 2, Modality: "video"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Matches) != 1 || resp.Matches[0].FileName != "a.mp4" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if got["query"] != "dog" || got["top_k"] != float64(2) || got["modality"] != "video" {
		t.Errorf("unexpected request body: %v", got)
	}
}

func TestClientErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"keyword search not enabled"}`, http.StatusNotImplemented)
	}))
	defer ts.Close()

	_, err := keywordSearchViaHTTP(ts.URL, &models.KeywordQuery{Term: "dog"})
	if err == nil || !strings.Contains(err.Error(), "501") {
		t.Errorf("expected 501 error, got %v", err)
	}
	if err := watchAddViaHTTP(ts.URL, "/tmp"); err == nil {
		t.Error("expected error for non-201 add")
	}
}

func TestWatchListViaHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"directories": []string{"/a", "/b"}})
	}))
	defer ts.Close()

	dirs, err := watchListViaHTTP(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(dirs, []string{"/a", "/b"}) {
		t.Errorf("dirs = %v", dirs)
	}
}

func TestWriteStatus_text(t *testing.T) {
	disk := int64(2048)
	docs := uint64(7)
	status := &statusResponse{
		VideoEvents:      6,
		AudioEvents:      1,
		Embeddings:       map[models.Modality]int64{models.ModalityVideo: 6},
		KeywordDocuments: &docs,
		DiskUsageBytes:   &disk,
		Config:           map[string]interface{}{"encoder": "hash", "detector": "scene"},
	}
	var buf bytes.Buffer
	if err := writeStatus(&buf, status, cli.OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"video_events:       6", "video_embeddings:   6", "audio_embeddings:   0", "keyword_documents:  7", "disk_usage_bytes:   2048", "detector:"} {
		if !strings.Contains(out, sub) {
			t.Errorf("status output missing %q:\n%s", sub, out)
		}
	}
	if strings.Index(out, "detector:") > strings.Index(out, "encoder:") {
		t.Errorf("config keys should be sorted:\n%s", out)
	}
}
