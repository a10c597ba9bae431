package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/vidsense/internal/config"
	"github.com/hyperjump/vidsense/internal/media"
	"github.com/hyperjump/vidsense/internal/models"
	"github.com/hyperjump/vidsense/internal/pipeline"
	"github.com/hyperjump/vidsense/internal/storage"
	"go.uber.org/zap"
)

const (
	defaultEventPage = 100
	maxEventPage     = 1000
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type extractRequest struct {
	// Path is a media file or a directory of media files. Empty means the configured media directory.
	Path string `json:"path"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var paths []string
	if req.Path != "" {
		abs, err := filepath.Abs(req.Path)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid path")
			return
		}
		info, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				s.respondError(w, http.StatusNotFound, "path not found")
				return
			}
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if info.IsDir() {
			paths, err = media.ListMediaFiles(abs, s.config.Extraction.Extensions)
			if err != nil {
				s.respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
		} else {
			paths = []string{abs}
		}
	}

	s.logger.Debug("extract request", zap.String("path", req.Path))
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	var (
		report *models.RunReport
		err    error
	)
	if req.Path == "" {
		report, err = s.pipeline.Run(r.Context())
	} else {
		report, err = s.pipeline.RunPaths(r.Context(), paths)
	}
	if err != nil {
		s.logger.Error("extraction failed", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrStoreUnavailable) {
			status = http.StatusServiceUnavailable
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

type embeddingsRequest struct {
	Reset    bool   `json:"reset"`
	Modality string `json:"modality,omitempty"`
}

func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req embeddingsRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	var modality models.Modality
	if req.Modality != "" {
		m, err := models.ParseModality(req.Modality)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		modality = m
	}

	s.logger.Debug("embeddings request", zap.Bool("reset", req.Reset), zap.String("modality", req.Modality))
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	ctx := r.Context()
	if req.Reset {
		if err := s.generator.Reset(ctx, modality); err != nil {
			s.logger.Error("embeddings reset failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	var report *models.GenerateReport
	if modality == "" {
		rep, err := s.generator.Generate(ctx)
		if err != nil {
			s.logger.Error("embedding generation failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		report = rep
	} else {
		n, err := s.generator.GenerateModality(ctx, modality)
		if err != nil {
			s.logger.Error("embedding generation failed", zap.String("modality", string(modality)), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		report = &models.GenerateReport{Counts: map[models.Modality]int{modality: n}}
	}
	s.respondJSON(w, http.StatusCreated, report)
}

type retrieveRequest struct {
	Query    string `json:"query"`
	TopK     *int   `json:"top_k,omitempty"`
	Modality string `json:"modality,omitempty"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q := models.RetrieveQuery{Query: req.Query, TopK: s.config.Retrieval.DefaultTopK, Modality: req.Modality}
	if req.TopK != nil {
		q.TopK = *req.TopK
	}
	if err := q.Validate(s.config.Retrieval.MaxTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("retrieve request", zap.String("query", q.Query), zap.Int("top_k", q.TopK), zap.String("modality", q.Modality))

	start := time.Now()
	matches, skipped, err := s.generator.RetrieveModality(r.Context(), q.Query, q.TopK, models.Modality(q.Modality))
	if err != nil {
		s.logger.Error("retrieve failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, &models.RetrieveResponse{
		Query:     q.Query,
		TopK:      q.TopK,
		Matches:   matches,
		Skipped:   skipped,
		QueryTime: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	modality, err := models.ParseModality(chi.URLParam(r, "modality"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	query := r.URL.Query()
	file := query.Get("file")
	offset, err := intParam(query.Get("offset"), 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := intParam(query.Get("limit"), defaultEventPage)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit > maxEventPage {
		limit = maxEventPage
	}

	ctx := r.Context()
	resp := map[string]interface{}{
		"modality": modality,
		"file":     file,
		"offset":   offset,
		"limit":    limit,
	}
	switch modality {
	case models.ModalityVideo:
		events, err := s.events.ListVideoEvents(ctx, file, offset, limit)
		if err != nil {
			s.logger.Error("list video events failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if events == nil {
			events = []*models.VideoEvent{}
		}
		resp["events"] = events
		resp["count"] = len(events)
	case models.ModalityAudio:
		events, err := s.events.ListAudioEvents(ctx, file, offset, limit)
		if err != nil {
			s.logger.Error("list audio events failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if events == nil {
			events = []*models.AudioEvent{}
		}
		resp["events"] = events
		resp["count"] = len(events)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleKeywordSearch(w http.ResponseWriter, r *http.Request) {
	if s.keyword == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword search not enabled")
		return
	}
	query := r.URL.Query()
	limit, err := intParam(query.Get("limit"), 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	q := &models.KeywordQuery{
		Term:     query.Get("term"),
		Limit:    limit,
		Fuzzy:    query.Get("fuzzy") == "true" || query.Get("fuzzy") == "1",
		Modality: query.Get("modality"),
		FileName: query.Get("file"),
	}
	if err := q.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("keyword search request", zap.String("term", q.Term), zap.Int("limit", q.Limit), zap.Bool("fuzzy", q.Fuzzy))

	start := time.Now()
	hits, err := s.keyword.Search(r.Context(), q, nil)
	if err != nil {
		s.logger.Error("keyword search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, &models.KeywordResponse{
		Term:      q.Term,
		Hits:      hits,
		Total:     len(hits),
		QueryTime: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoCount, err := s.events.CountVideoEvents(ctx)
	if err != nil {
		s.logger.Error("status: count video events failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	audioCount, err := s.events.CountAudioEvents(ctx)
	if err != nil {
		s.logger.Error("status: count audio events failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	embeddingCounts := make(map[models.Modality]int64, len(models.Modalities))
	for _, m := range models.Modalities {
		n, err := s.vectors.CountEmbeddings(ctx, m)
		if err != nil {
			s.logger.Error("status: count embeddings failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		embeddingCounts[m] = n
	}
	resp := map[string]interface{}{
		"video_events": videoCount,
		"audio_events": audioCount,
		"embeddings":   embeddingCounts,
	}
	if s.keyword != nil {
		if n, err := s.keyword.DocCount(); err == nil {
			resp["keyword_documents"] = n
		}
	}

	cfg := s.config
	resp["config"] = map[string]interface{}{
		"detector":             cfg.Detector.Type,
		"transcriber":          cfg.Transcriber.Type,
		"encoder":              cfg.Encoder.Type,
		"embedding_dimensions": cfg.Encoder.Dimensions,
		"default_fps":          cfg.Extraction.DefaultFPS,
		"media_dir":            cfg.Extraction.MediaDir,
		"database_path":        cfg.Storage.DatabasePath,
		"vector_database_path": cfg.Storage.VectorDatabasePath,
		"bleve_index_path":     cfg.Storage.BleveIndexPath,
	}
	diskPaths := []string{cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath}
	if cfg.Storage.VectorDatabasePath != cfg.Storage.DatabasePath {
		diskPaths = append(diskPaths, cfg.Storage.VectorDatabasePath)
	}
	if diskBytes, err := storage.DiskUsageBytes(diskPaths...); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	dirs := s.watch.Directories()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": dirs})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatchDirectories writes the current watch roots back to the config file, if there is one.
func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.config == nil {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
