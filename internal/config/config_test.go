package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"TRANSCRIBE_TIMEOUT", "ANALYZE_TIMEOUT", "LLM_PROVIDER", "STORAGE_ENDPOINT", "BEETHOVEN_LOG_LEVEL", "OPENROUTER_BASE_URL", "NORMALIZE_MAX_OUTPUT_BYTES"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.TranscribeTimeout)
	assert.Equal(t, 2*time.Minute, cfg.AnalyzeTimeout)
	assert.Equal(t, "openrouter", cfg.LLMProvider)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouterBaseURL)
	assert.Equal(t, int64(256<<20), cfg.NormalizeMaxOutput)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.StorageEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRANSCRIBE_TIMEOUT", "90s")
	t.Setenv("ANALYZE_TIMEOUT", "30")
	t.Setenv("NORMALIZE_MAX_OUTPUT_BYTES", "1024")
	t.Setenv("STORAGE_ENDPOINT", "https://example.supabase.co/storage/v1/s3")
	t.Setenv("BEETHOVEN_LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, 90*time.Second, cfg.TranscribeTimeout)
	assert.Equal(t, 30*time.Second, cfg.AnalyzeTimeout)
	assert.Equal(t, int64(1024), cfg.NormalizeMaxOutput)
	assert.True(t, cfg.StorageEnabled())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ANALYZE_TIMEOUT", "soon")
	t.Setenv("NORMALIZE_MAX_OUTPUT_BYTES", "-5")

	cfg := Load()

	assert.Equal(t, 2*time.Minute, cfg.AnalyzeTimeout)
	assert.Equal(t, int64(256<<20), cfg.NormalizeMaxOutput)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters("beethoven-test", &stderr, &file, slog.LevelInfo)

	logger.Info("stage finished", "recording_id", "r1")
	logger.Debug("hidden")

	assert.Contains(t, stderr.String(), "stage finished")
	assert.NotContains(t, stderr.String(), "hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &entry))
	assert.Equal(t, "stage finished", entry["msg"])
	assert.Equal(t, "r1", entry["recording_id"])
	assert.Equal(t, "beethoven-test", entry["service"])
}

func TestSetupLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beethoven.log")

	logger, cleanup := SetupLogger("beethoven-test", path, slog.LevelInfo)
	logger.Info("hello")
	require.NoError(t, cleanup())

	assert.FileExists(t, path)
}
