package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds optional Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// RenderConfig controls page rasterization.
type RenderConfig struct {
	// DPI used when a page has to be rendered instead of extracted.
	// 288 = 72 * 4, the same default the desktop viewer uses.
	DPI int
}

// ExtractConfig controls embedded-image extraction.
type ExtractConfig struct {
	// AutoRotate compensates for page-level rotation on extracted
	// images (the raw embedded asset is always unrotated).
	AutoRotate bool
	// JPEGQuality is used when a rotated image is re-encoded as JPEG.
	JPEGQuality int
}

// WorkerConfig defines worker process behavior.
type WorkerConfig struct {
	// Binary overrides the executable spawned as the worker process.
	// Empty means re-exec the current binary.
	Binary string
	// CallTimeout bounds a single request/response round trip to the
	// worker process. Zero disables the deadline.
	CallTimeout time.Duration
	// Disabled turns the whole PDF backend off (kill switch).
	Disabled bool
}

// Config is the top-level configuration.
type Config struct {
	Logging     LoggingConfig
	Axiom       AxiomConfig
	Render      RenderConfig
	Extract     ExtractConfig
	Worker      WorkerConfig
	MetricsAddr string
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", ""),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pdfarchive",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Render = RenderConfig{
		DPI: parseInt(getEnv("PDF_RENDER_DPI", "288"), 288),
	}

	cfg.Extract = ExtractConfig{
		AutoRotate:  parseBool(getEnv("PDF_AUTO_ROTATE", "true")),
		JPEGQuality: parseInt(getEnv("PDF_JPEG_QUALITY", "95"), 95),
	}

	cfg.Worker = WorkerConfig{
		Binary:      getEnv("PDF_WORKER_BINARY", ""),
		CallTimeout: parseDuration(getEnv("PDF_WORKER_CALL_TIMEOUT", "0"), 0),
		Disabled:    os.Getenv("PDF_MULTI_DISABLE") != "",
	}

	cfg.MetricsAddr = getEnv("METRICS_ADDR", "")

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
