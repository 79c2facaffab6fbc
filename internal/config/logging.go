package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger logs text to stderr and JSON to logFile, tagging every record
// with the service name. If the file cannot be opened it logs to stderr only.
// The returned func closes the file.
func SetupLogger(service, logFile string, level slog.Level) (*slog.Logger, func() error) {
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).With("service", service)
		logger.Error("failed to open log file, using stderr only", "file", logFile, "error", err)
		return logger, func() error { return nil }
	}
	return SetupLoggerWithWriters(service, os.Stderr, file, level), file.Close
}

// SetupLoggerWithWriters fans out to a text handler on console and a JSON
// handler on file. Debug level adds source locations to the JSON side.
func SetupLoggerWithWriters(service string, console, file io.Writer, level slog.Level) *slog.Logger {
	handler := slogmulti.Fanout(
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}),
	)
	return slog.New(handler).With("service", service)
}
