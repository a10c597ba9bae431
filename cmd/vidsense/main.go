// Package main is the vidsense CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/vidsense/internal/cli"
	"github.com/hyperjump/vidsense/internal/config"
	"github.com/hyperjump/vidsense/internal/detect"
	"github.com/hyperjump/vidsense/internal/embedding"
	"github.com/hyperjump/vidsense/internal/embeddings"
	"github.com/hyperjump/vidsense/internal/export"
	"github.com/hyperjump/vidsense/internal/keyword"
	"github.com/hyperjump/vidsense/internal/media"
	"github.com/hyperjump/vidsense/internal/models"
	"github.com/hyperjump/vidsense/internal/pipeline"
	"github.com/hyperjump/vidsense/internal/server"
	"github.com/hyperjump/vidsense/internal/storage"
	"github.com/hyperjump/vidsense/internal/transcribe"
	"github.com/hyperjump/vidsense/internal/watcher"
	"github.com/hyperjump/vidsense/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/vidsense/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "extract":
		runExtract()
	case "embed":
		runEmbed()
	case "retrieve":
		runRetrieve()
	case "search":
		runSearch()
	case "events":
		runEvents()
	case "export":
		runExport()
	case "reindex":
		runReindex()
	case "watch":
		runWatch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("vidsense version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and creates the logger shared by every direct-mode command.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger, bool) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger, debugMode
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (directory changes, per-frame detections, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, debugMode := setup(*configPath, *debug)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode, componentSet{extraction: true, encoder: true, keyword: true})
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var srv *server.Server
	watchOpts := []watcher.Option{
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS) * time.Millisecond),
	}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(ctx context.Context, path string) {
			srv.RunExclusive(func() {
				report, err := components.Pipeline.RunPaths(ctx, []string{path})
				if err != nil {
					logger.Warn("watch extraction failed", zap.String("path", path), zap.Error(err))
					return
				}
				logger.Info("watch extraction finished",
					zap.String("path", path),
					zap.String("run_id", report.RunID),
					zap.Int("video_events", report.VideoEvents),
					zap.Int("audio_events", report.AudioEvents),
				)
			})
		},
		watchOpts...,
	)

	srv = server.NewServer(
		components.Pipeline,
		components.Generator,
		components.Events,
		components.Vectors,
		components.Keyword,
		cfg,
		logger,
		watchSvc,
		resolvedConfigPath,
	)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM so long jobs stop between files.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// expandMediaPaths turns CLI arguments into media files: directories are listed with the
// configured extensions, files are taken as given.
func expandMediaPaths(args []string, extensions []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, abs)
			continue
		}
		files, err := media.ListMediaFiles(abs, extensions)
		if err != nil {
			return nil, err
		}
		paths = append(paths, files...)
	}
	return paths, nil
}

func runExtract() {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	cfg, _, logger, debugMode := setup(*configPath, *debug)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, debugMode, componentSet{extraction: true, keyword: true})
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx, stop := signalContext()
	defer stop()

	var report *models.RunReport
	if fs.NArg() == 0 {
		report, err = components.Pipeline.Run(ctx)
	} else {
		paths, expandErr := expandMediaPaths(fs.Args(), cfg.Extraction.Extensions)
		if expandErr != nil {
			fail("Invalid path: %v", expandErr)
		}
		report, err = components.Pipeline.RunPaths(ctx, paths)
	}
	if report != nil {
		if writeErr := cli.WriteRunReport(os.Stdout, report, cli.ParseOutputFormat(*outputFormat)); writeErr != nil {
			fail("Output failed: %v", writeErr)
		}
	}
	if err != nil {
		fail("Extraction failed: %v", err)
	}
}

func runEmbed() {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	reset := fs.Bool("reset", false, "clear stored embeddings of the selected modalities before generating")
	modality := fs.String("modality", "", "video or audio (default: both)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	modalities := models.Modalities
	if *modality != "" {
		m, err := models.ParseModality(*modality)
		if err != nil {
			fail("%v", err)
		}
		modalities = []models.Modality{m}
	}

	cfg, _, logger, debugMode := setup(*configPath, *debug)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, debugMode, componentSet{encoder: true})
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx, stop := signalContext()
	defer stop()

	report := &models.GenerateReport{Counts: make(map[models.Modality]int, len(modalities))}
	for _, m := range modalities {
		if *reset {
			if err := components.Generator.Reset(ctx, m); err != nil {
				fail("Reset %s embeddings failed: %v", m, err)
			}
		}
		n, err := components.Generator.GenerateModality(ctx, m)
		if err != nil {
			fail("Generate %s embeddings failed: %v", m, err)
		}
		report.Counts[m] = n
	}
	if err := cli.WriteGenerateReport(os.Stdout, report, cli.ParseOutputFormat(*outputFormat)); err != nil {
		fail("Output failed: %v", err)
	}
}

func printRetrieveUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: vidsense retrieve [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  vidsense retrieve a person walking a dog
  vidsense retrieve --modality audio --top-k 10 "good morning"
  vidsense retrieve --server "" --output json car   # read the stores directly
`)
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// configPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func configPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(a, "-config=") || strings.HasPrefix(a, "--config=") {
			return a[strings.Index(a, "=")+1:]
		}
	}
	return defaultPath
}

// defaultTopKFromConfig loads config at path and returns its default top-k, or 5 when it cannot be loaded.
func defaultTopKFromConfig(path string) int {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return 5
	}
	return cfg.Retrieval.DefaultTopK
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "vidsense retrieve dog -top-k 3"
// would otherwise leave -top-k unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runRetrieve() {
	retrieveArgs := argsReorder(os.Args[2:])
	configPathArg := configPathFromArgs(retrieveArgs, defaultConfigPath)

	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the stores directly)")
	topK := fs.Int("top-k", defaultTopKFromConfig(configPathArg), "number of matches")
	modality := fs.String("modality", "", "video or audio (default: both)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printRetrieveUsage(fs) }
	_ = fs.Parse(retrieveArgs)

	queryStr := buildQuery(fs.Args())
	if queryStr == "" {
		printRetrieveUsage(fs)
		os.Exit(1)
	}
	q := &models.RetrieveQuery{Query: queryStr, TopK: *topK, Modality: *modality}
	format := cli.ParseOutputFormat(*outputFormat)

	if *serverURL != "" {
		response, err := retrieveViaHTTP(*serverURL, q)
		if err != nil {
			fail("Retrieve failed: %v", err)
		}
		if err := cli.WriteRetrieveResults(os.Stdout, response, format); err != nil {
			fail("Output failed: %v", err)
		}
		return
	}

	cfg, _, logger, debugMode := setup(*configPath, false)
	defer logger.Sync()
	if err := q.Validate(cfg.Retrieval.MaxTopK); err != nil {
		fail("%v", err)
	}

	components, err := initializeComponents(cfg, logger, debugMode, componentSet{encoder: true})
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	start := time.Now()
	matches, skipped, err := components.Generator.RetrieveModality(context.Background(), q.Query, q.TopK, models.Modality(q.Modality))
	if err != nil {
		fail("Retrieve failed: %v", err)
	}
	response := &models.RetrieveResponse{
		Query:     q.Query,
		TopK:      q.TopK,
		Matches:   matches,
		Skipped:   skipped,
		QueryTime: time.Since(start).Milliseconds(),
	}
	if err := cli.WriteRetrieveResults(os.Stdout, response, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runSearch() {
	searchArgs := argsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = open the keyword index directly when the server is not running)")
	limit := fs.Int("limit", 10, "number of hits")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	modality := fs.String("modality", "", "video or audio (default: both)")
	file := fs.String("file", "", "only events of this media file name")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgs)

	term := buildQuery(fs.Args())
	if term == "" {
		fmt.Println("Usage: vidsense search [flags] <term>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	q := &models.KeywordQuery{Term: term, Limit: *limit, Fuzzy: *fuzzy, Modality: *modality, FileName: *file}
	if err := q.Validate(); err != nil {
		fail("%v", err)
	}
	format := cli.ParseOutputFormat(*outputFormat)

	var response *models.KeywordResponse
	if *serverURL != "" {
		// The server holds the keyword index open; go through it instead of fighting for the lock.
		var err error
		response, err = keywordSearchViaHTTP(*serverURL, q)
		if err != nil {
			fail("Search failed: %v", err)
		}
	} else {
		cfg, _, logger, debugMode := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, debugMode, componentSet{keyword: true})
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		start := time.Now()
		hits, err := components.Keyword.Search(context.Background(), q, nil)
		if err != nil {
			fail("Search failed: %v", err)
		}
		response = &models.KeywordResponse{Term: q.Term, Hits: hits, Total: len(hits), QueryTime: time.Since(start).Milliseconds()}
	}
	if err := cli.WriteKeywordResults(os.Stdout, response, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runEvents() {
	eventArgs := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	file := fs.String("file", "", "only events of this media file name")
	offset := fs.Int("offset", 0, "number of events to skip")
	limit := fs.Int("limit", 100, "maximum number of events")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(eventArgs)

	if fs.NArg() < 1 {
		fmt.Println("Usage: vidsense events [flags] <video|audio>")
		os.Exit(1)
	}
	modality, err := models.ParseModality(fs.Arg(0))
	if err != nil {
		fail("%v", err)
	}

	cfg, _, logger, debugMode := setup(*configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, debugMode, componentSet{})
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	format := cli.ParseOutputFormat(*outputFormat)
	switch modality {
	case models.ModalityVideo:
		events, err := components.Events.ListVideoEvents(ctx, *file, *offset, *limit)
		if err != nil {
			fail("List video events failed: %v", err)
		}
		err = cli.WriteVideoEvents(os.Stdout, events, format)
		if err != nil {
			fail("Output failed: %v", err)
		}
	case models.ModalityAudio:
		events, err := components.Events.ListAudioEvents(ctx, *file, *offset, *limit)
		if err != nil {
			fail("List audio events failed: %v", err)
		}
		err = cli.WriteAudioEvents(os.Stdout, events, format)
		if err != nil {
			fail("Output failed: %v", err)
		}
	}
}

func runExport() {
	exportArgs := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	file := fs.String("file", "", "only events of this media file name")
	_ = fs.Parse(exportArgs)

	if fs.NArg() < 1 {
		fmt.Println("Usage: vidsense export [flags] <out.xlsx>")
		os.Exit(1)
	}
	out := fs.Arg(0)

	cfg, _, logger, debugMode := setup(*configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, debugMode, componentSet{})
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	summary, err := export.WriteFile(context.Background(), components.Events, *file, out)
	if err != nil {
		fail("Export failed: %v", err)
	}
	fmt.Printf("Exported %d video and %d audio events to %s\n", summary.VideoRows, summary.AudioRows, out)
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger, debugMode := setup(*configPath, *debug)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, debugMode, componentSet{keyword: true})
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx, stop := signalContext()
	defer stop()
	n, err := components.Keyword.Reindex(ctx, components.Events)
	if err != nil {
		fail("Reindex failed: %v", err)
	}
	fmt.Printf("Indexed %d event(s) into %s\n", n, cfg.Storage.BleveIndexPath)
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: vidsense watch <add|remove|list> [path]")
		fmt.Println("  vidsense watch add <path>     Add directory to watch")
		fmt.Println("  vidsense watch remove <path>  Remove directory from watch")
		fmt.Println("  vidsense watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(argsReorder(os.Args[3:]))
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: vidsense watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if err := watchAddViaHTTP(*serverURL, path); err != nil {
			fail("Add failed: %v", err)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: vidsense watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if err := watchRemoveViaHTTP(*serverURL, path); err != nil {
			fail("Remove failed: %v", err)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		dirs, err := watchListViaHTTP(*serverURL)
		if err != nil {
			fail("List failed: %v", err)
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
	default:
		fail("Unknown watch subcommand: %s", sub)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the stores directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status *statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fail("Status failed: %v", err)
		}
		status = res
	} else {
		cfg, _, logger, debugMode := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, debugMode, componentSet{})
		if err != nil {
			fail("Failed to initialize: %v", err)
		}
		defer components.Close()
		status, err = directStatus(context.Background(), cfg, components)
		if err != nil {
			fail("Status failed: %v", err)
		}
	}
	if err := writeStatus(os.Stdout, status, cli.ParseOutputFormat(*outputFormat)); err != nil {
		fail("Output failed: %v", err)
	}
}

func directStatus(ctx context.Context, cfg *config.Config, c *Components) (*statusResponse, error) {
	videoCount, err := c.Events.CountVideoEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("count video events: %w", err)
	}
	audioCount, err := c.Events.CountAudioEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("count audio events: %w", err)
	}
	status := &statusResponse{
		VideoEvents: videoCount,
		AudioEvents: audioCount,
		Embeddings:  make(map[models.Modality]int64, len(models.Modalities)),
		Config: map[string]interface{}{
			"detector":             cfg.Detector.Type,
			"transcriber":          cfg.Transcriber.Type,
			"encoder":              cfg.Encoder.Type,
			"embedding_dimensions": cfg.Encoder.Dimensions,
			"media_dir":            cfg.Extraction.MediaDir,
			"database_path":        cfg.Storage.DatabasePath,
			"vector_database_path": cfg.Storage.VectorDatabasePath,
			"bleve_index_path":     cfg.Storage.BleveIndexPath,
		},
	}
	for _, m := range models.Modalities {
		n, err := c.Vectors.CountEmbeddings(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("count %s embeddings: %w", m, err)
		}
		status.Embeddings[m] = n
	}
	diskPaths := []string{cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath}
	if cfg.Storage.VectorDatabasePath != cfg.Storage.DatabasePath {
		diskPaths = append(diskPaths, cfg.Storage.VectorDatabasePath)
	}
	if diskBytes, err := storage.DiskUsageBytes(diskPaths...); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

// componentSet selects which optional services a command needs.
// The event and vector stores are always opened.
type componentSet struct {
	extraction bool
	encoder    bool
	keyword    bool
}

// Components holds initialized services.
type Components struct {
	Events      *storage.SQLiteEventStore
	Vectors     *storage.SQLiteVectorStore
	Encoder     embedding.Encoder
	Detector    detect.Detector
	Transcriber transcribe.Transcriber
	Keyword     *keyword.EventIndex
	Pipeline    *pipeline.Pipeline
	Generator   *embeddings.Generator
}

func (c *Components) Close() {
	if c.Keyword != nil {
		_ = c.Keyword.Close()
	}
	if c.Encoder != nil {
		_ = c.Encoder.Close()
	}
	if c.Detector != nil {
		_ = c.Detector.Close()
	}
	if c.Vectors != nil {
		_ = c.Vectors.Close()
	}
	if c.Events != nil {
		_ = c.Events.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool, set componentSet) (*Components, error) {
	c := &Components{}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	var err error
	c.Events, err = storage.NewSQLiteEventStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event store: %w", err)
	}
	c.Vectors, err = storage.NewSQLiteVectorStore(cfg.Storage.VectorDatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	if set.keyword {
		c.Keyword, err = keyword.NewEventIndex(cfg.Storage.BleveIndexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
		}
	}

	if set.encoder {
		c.Encoder, err = embedding.NewEncoder(cfg.Encoder, cfg.ONNXLibraryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize encoder: %w", err)
		}
		genOpts := []embeddings.Option{}
		if debug {
			genOpts = append(genOpts, embeddings.WithLogger(logger))
		}
		c.Generator = embeddings.NewGenerator(c.Events, c.Encoder, c.Vectors, genOpts...)
		logger.Info("encoder initialized",
			zap.String("type", cfg.Encoder.Type),
			zap.Int("dimensions", c.Encoder.Dimensions()))
	}

	if set.extraction {
		c.Detector, err = detect.New(cfg.Detector, cfg.ONNXLibraryPath, cfg.Extraction.FrameWidth, cfg.Extraction.FrameHeight)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize detector: %w", err)
		}
		c.Transcriber, err = transcribe.New(cfg.Transcriber)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize transcriber: %w", err)
		}
		decoderOpts := []media.FFmpegOption{
			media.WithBinaries(cfg.Extraction.FFmpegPath, cfg.Extraction.FFprobePath),
			media.WithFrameSize(cfg.Extraction.FrameWidth, cfg.Extraction.FrameHeight),
		}
		pipeOpts := []pipeline.Option{pipeline.WithLogger(logger)}
		if debug {
			decoderOpts = append(decoderOpts, media.WithLogger(logger))
		}
		if c.Keyword != nil {
			pipeOpts = append(pipeOpts, pipeline.WithKeywordIndex(c.Keyword))
		}
		c.Pipeline = pipeline.New(
			media.NewFFmpegDecoder(decoderOpts...),
			c.Detector,
			c.Transcriber,
			c.Events,
			cfg.Extraction,
			pipeOpts...,
		)
		logger.Info("extraction pipeline initialized",
			zap.String("detector", cfg.Detector.Type),
			zap.String("transcriber", cfg.Transcriber.Type),
			zap.String("media_dir", cfg.Extraction.MediaDir))
	}

	ok = true
	return c, nil
}

func printUsage() {
	fmt.Println(`vidsense - Local video and audio event extraction with semantic retrieval

Usage:
  vidsense server [flags]                 Start the HTTP server and directory watcher
  vidsense extract [flags] [path...]      Extract events (default: the configured media directory)
  vidsense embed [flags]                  Generate embeddings for stored events
  vidsense retrieve [flags] <query>       Similarity retrieval over embeddings
  vidsense search [flags] <term>          Keyword search over event descriptors
  vidsense events [flags] <video|audio>   List stored events
  vidsense export [flags] <out.xlsx>      Export events to a spreadsheet
  vidsense reindex [flags]                Rebuild the keyword index from the event store
  vidsense status [flags]                 Show store and index status
  vidsense watch <add|remove|list>        Manage watched directories
  vidsense version                        Show version
  vidsense help                           Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/vidsense/config.yaml)
  --debug            Enable debug logging (server, extract, embed, reindex)
  --output string    Output format: text or json (default: text)

Embed Flags:
  --reset            Clear stored embeddings before generating
  --modality string  video or audio (default: both)

Retrieve Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to read the stores directly.
  --top-k int        Number of matches (default from config)
  --modality string  video or audio (default: both)

Search Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" when the server is not running.
  --limit int        Number of hits (default: 10)
  --fuzzy            Enable typo tolerance
  --modality string  video or audio (default: both)
  --file string      Only events of this media file name

Events/Export Flags:
  --file string      Only events of this media file name
  --offset int       Events to skip (events only)
  --limit int        Maximum events (events only, default: 100)

Examples:
  vidsense server
  vidsense extract ~/Movies/clip.mp4
  vidsense embed --reset
  vidsense retrieve a dog running on the beach
  vidsense search --fuzzy persn
  vidsense events video --file clip.mp4
  vidsense export events.xlsx
  vidsense watch add ~/Movies`)
}
