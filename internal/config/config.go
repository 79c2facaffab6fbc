// Package config loads Beethoven settings from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Analysis LLM providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderOllama     = "ollama"
	ProviderAnthropic  = "anthropic"
	ProviderBedrock    = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// HTTP server
	ServerPort string
	ServerURL  string

	// Transcription (OpenRouter chat completions with input_audio)
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	STTModel          string
	TranscribeTimeout time.Duration

	// Analysis backend (langchaingo)
	LLMProvider     string
	LLMModel        string
	OpenAIAPIKey    string
	OllamaHost      string
	AnthropicAPIKey string
	AWSRegion       string
	AnalyzeTimeout  time.Duration

	// Audio normalization
	FFmpegPath         string
	NormalizeTimeout   time.Duration
	NormalizeMaxOutput int64

	// Object storage for audio_path (S3-compatible, e.g. Supabase Storage)
	StorageEndpoint  string
	StorageBucket    string
	StorageRegion    string
	StorageAccessKey string
	StorageSecretKey string

	// Prompt seed file
	PromptsFile string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "beethoven"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "main"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		ServerPort: getEnv("BEETHOVEN_SERVER_PORT", "8080"),
		ServerURL:  getEnv("BEETHOVEN_SERVER_URL", "http://localhost:8080"),

		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		STTModel:          getEnv("STT_MODEL", "google/gemini-2.0-flash-exp:free"),
		TranscribeTimeout: getDuration("TRANSCRIBE_TIMEOUT", 5*time.Minute),

		LLMProvider:     getEnv("LLM_PROVIDER", ProviderOpenRouter),
		LLMModel:        getEnv("LLM_MODEL", "google/gemini-2.0-flash-exp:free"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		AnalyzeTimeout:  getDuration("ANALYZE_TIMEOUT", 2*time.Minute),

		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		NormalizeTimeout:   getDuration("NORMALIZE_TIMEOUT", 10*time.Minute),
		NormalizeMaxOutput: getInt64("NORMALIZE_MAX_OUTPUT_BYTES", 256<<20),

		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", ""),
		StorageBucket:    getEnv("STORAGE_BUCKET", "recordings"),
		StorageRegion:    getEnv("STORAGE_REGION", "us-east-1"),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", ""),

		PromptsFile: getEnv("PROMPTS_FILE", "prompts.yaml"),

		LogFile:  getEnv("BEETHOVEN_LOG_FILE", "/tmp/beethoven.log"),
		LogLevel: parseLogLevel(getEnv("BEETHOVEN_LOG_LEVEL", "INFO")),
	}
}

// StorageEnabled reports whether object storage is configured.
func (c Config) StorageEnabled() bool {
	return c.StorageEndpoint != "" && c.StorageBucket != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getDuration accepts Go durations ("90s") or bare seconds ("90").
func getDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	slog.Warn("invalid duration, using default", "key", key, "value", val, "default", defaultVal)
	return defaultVal
}

func getInt64(key string, defaultVal int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil || n <= 0 {
		slog.Warn("invalid integer, using default", "key", key, "value", val, "default", defaultVal)
		return defaultVal
	}
	return n
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
