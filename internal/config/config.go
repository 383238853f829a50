// Package config holds process configuration for BookBrain.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration values.
type Config struct {
	// Server
	Host string
	Port int

	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Ebook directories (comma-separated in env)
	EbookDirs string

	// File storage
	DataDir   string
	CoversDir string
	IndexDir  string

	// OCR
	OCREnabled           bool
	OCRLanguage          string
	OCRMaxPages          int
	ScannedTextThreshold float64

	// Embedding
	EmbedProvider  string
	EmbedModel     string
	EmbedDimension int
	OllamaHost     string
	OpenAIAPIKey   string

	// Processing
	MaxWorkers    int
	MaxTextLength int
	BatchSize     int

	// Supported formats (lowercase extensions with dot)
	SupportedFormats []string

	// Classifier taxonomy override (optional YAML file)
	TaxonomyFile string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Embedding provider names.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Load reads configuration from environment variables with defaults.
func Load() Config {
	dataDir := getEnv("BOOKBRAIN_DATA_DIR", "./data")
	return Config{
		Host: getEnv("BOOKBRAIN_HOST", "0.0.0.0"),
		Port: getEnvInt("BOOKBRAIN_PORT", 8000),

		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "bookbrain"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "library"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		EbookDirs: getEnv("BOOKBRAIN_EBOOK_DIRS", ""),

		DataDir:   dataDir,
		CoversDir: getEnv("BOOKBRAIN_COVERS_DIR", filepath.Join(dataDir, "covers")),
		IndexDir:  getEnv("BOOKBRAIN_INDEX_DIR", filepath.Join(dataDir, "index")),

		OCREnabled:           getEnv("BOOKBRAIN_OCR_ENABLED", "true") == "true",
		OCRLanguage:          getEnv("BOOKBRAIN_OCR_LANGUAGE", "eng"),
		OCRMaxPages:          getEnvInt("BOOKBRAIN_OCR_MAX_PAGES", 10),
		ScannedTextThreshold: getEnvFloat("BOOKBRAIN_SCANNED_TEXT_THRESHOLD", 0.1),

		EmbedProvider:  getEnv("BOOKBRAIN_EMBED_PROVIDER", ProviderOllama),
		EmbedModel:     getEnv("BOOKBRAIN_EMBED_MODEL", "all-minilm:l6-v2"),
		EmbedDimension: getEnvInt("BOOKBRAIN_EMBED_DIMENSION", 384),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),

		MaxWorkers:    getEnvInt("BOOKBRAIN_MAX_WORKERS", 4),
		MaxTextLength: getEnvInt("BOOKBRAIN_MAX_TEXT_LENGTH", 50000),
		BatchSize:     getEnvInt("BOOKBRAIN_BATCH_SIZE", 32),

		SupportedFormats: splitList(getEnv("BOOKBRAIN_SUPPORTED_FORMATS", ".pdf,.epub")),

		TaxonomyFile: getEnv("BOOKBRAIN_TAXONOMY_FILE", ""),

		LogFile:  getEnv("BOOKBRAIN_LOG_FILE", filepath.Join(dataDir, "bookbrain.log")),
		LogLevel: parseLogLevel(getEnv("BOOKBRAIN_LOG_LEVEL", "INFO")),
	}
}

// EbookDirectories parses the comma-separated ebook directory list.
func (c Config) EbookDirectories() []string {
	return splitList(c.EbookDirs)
}

// EnsureDirectories creates the data, covers and index directories.
func (c Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.CoversDir, c.IndexDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
