package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/vidsense/data/db/vidsense.db"
	}
	if cfg.Storage.VectorDatabasePath == "" {
		cfg.Storage.VectorDatabasePath = cfg.Storage.DatabasePath
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/vidsense/data/indices/bleve"
	}

	if cfg.Extraction.MediaDir == "" {
		cfg.Extraction.MediaDir = "/usr/local/var/vidsense/data/media"
	}
	if cfg.Extraction.Extensions == nil {
		cfg.Extraction.Extensions = []string{".mp4"}
	}
	if cfg.Extraction.DefaultFPS <= 0 {
		cfg.Extraction.DefaultFPS = 30
	}
	if cfg.Extraction.AudioSampleRate == 0 {
		cfg.Extraction.AudioSampleRate = 16000
	}
	if cfg.Extraction.FrameWidth == 0 {
		cfg.Extraction.FrameWidth = 640
	}
	if cfg.Extraction.FrameHeight == 0 {
		cfg.Extraction.FrameHeight = 640
	}
	if cfg.Extraction.FFmpegPath == "" {
		cfg.Extraction.FFmpegPath = "ffmpeg"
	}
	if cfg.Extraction.FFprobePath == "" {
		cfg.Extraction.FFprobePath = "ffprobe"
	}

	if cfg.Detector.Type == "" {
		cfg.Detector.Type = DetectorONNX
	}
	if cfg.Detector.Type == DetectorONNX && cfg.Detector.ModelPath == "" {
		cfg.Detector.ModelPath = "/usr/local/var/vidsense/data/models/yolov8n.onnx"
	}
	if cfg.Detector.ConfidenceThreshold == 0 {
		cfg.Detector.ConfidenceThreshold = 0.25
	}
	if cfg.Detector.IOUThreshold == 0 {
		cfg.Detector.IOUThreshold = 0.45
	}
	if cfg.Detector.InputName == "" {
		cfg.Detector.InputName = "images"
	}
	if cfg.Detector.OutputName == "" {
		cfg.Detector.OutputName = "output0"
	}
	if cfg.Detector.Anchors == 0 {
		cfg.Detector.Anchors = 8400
	}

	if cfg.Transcriber.Type == "" {
		cfg.Transcriber.Type = TranscriberOpenAI
	}
	if cfg.Transcriber.Model == "" {
		cfg.Transcriber.Model = "whisper-1"
	}
	if cfg.Transcriber.APIKeyEnv == "" {
		cfg.Transcriber.APIKeyEnv = "OPENAI_API_KEY"
	}

	if cfg.Encoder.Type == "" {
		cfg.Encoder.Type = EncoderONNX
	}
	if cfg.Encoder.Type == EncoderONNX && cfg.Encoder.ModelPath == "" {
		cfg.Encoder.ModelPath = "/usr/local/var/vidsense/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Encoder.Type == EncoderOpenAI && cfg.Encoder.Model == "" {
		cfg.Encoder.Model = "text-embedding-3-small"
	}
	if cfg.Encoder.Dimensions == 0 {
		cfg.Encoder.Dimensions = 384
	}
	if cfg.Encoder.MaxTokens == 0 {
		cfg.Encoder.MaxTokens = 256
	}
	if cfg.Encoder.CacheSize == 0 {
		cfg.Encoder.CacheSize = 10000
	}
	if cfg.Encoder.OutputName == "" {
		cfg.Encoder.OutputName = "output"
	}
	if cfg.Encoder.APIKeyEnv == "" {
		cfg.Encoder.APIKeyEnv = "OPENAI_API_KEY"
	}

	if cfg.Retrieval.DefaultTopK == 0 {
		cfg.Retrieval.DefaultTopK = 5
	}
	if cfg.Retrieval.MaxTopK == 0 {
		cfg.Retrieval.MaxTopK = 100
	}

	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = cfg.Extraction.Extensions
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 2000
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
