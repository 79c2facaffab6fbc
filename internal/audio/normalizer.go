// Package audio transcodes uploaded recordings into the compact mono OGG
// stream the transcription provider accepts.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Format is the container subtype produced by Normalize.
const Format = "ogg"

// Defaults for NewNormalizer.
const (
	DefaultTimeout   = 10 * time.Minute
	DefaultMaxOutput = 256 << 20
	maxStderrBytes   = 64 << 10
)

// ErrOutputTooLarge is returned when ffmpeg produces more than the configured maximum.
var ErrOutputTooLarge = errors.New("normalized audio exceeds size limit")

// ProcessError describes a failed ffmpeg invocation.
type ProcessError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("ffmpeg exit code %d", e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + lastLine(e.Stderr)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// commandResult is what one process execution produced.
type commandResult struct {
	Stdout   []byte
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, stdin io.Reader, maxStdout int64, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin io.Reader, maxStdout int64, name string, args ...string) (commandResult, error) {
	c := exec.CommandContext(ctx, name, args...)

	stdout := &limitedBuffer{max: maxStdout}
	stderr := &limitedBuffer{max: maxStderrBytes, truncate: true}
	c.Stdin = stdin
	c.Stdout = stdout
	c.Stderr = stderr

	// SIGTERM first so ffmpeg can flush, SIGKILL after WaitDelay.
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return c.Process.Signal(syscall.SIGTERM)
	}
	c.WaitDelay = 5 * time.Second

	start := time.Now()
	err := c.Run()

	result := commandResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.String(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if c.ProcessState != nil {
		result.ExitCode = c.ProcessState.ExitCode()
	}
	if stdout.overflow {
		return result, ErrOutputTooLarge
	}
	return result, err
}

// limitedBuffer collects writes up to max bytes. Past the limit it either
// fails the write or silently drops the excess.
type limitedBuffer struct {
	bytes.Buffer
	max      int64
	truncate bool
	overflow bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	remaining := b.max - int64(b.Len())
	if int64(len(p)) <= remaining {
		return b.Buffer.Write(p)
	}
	if b.truncate {
		if remaining > 0 {
			b.Buffer.Write(p[:remaining])
		}
		return len(p), nil
	}
	b.overflow = true
	return 0, ErrOutputTooLarge
}

// Options configures a Normalizer.
type Options struct {
	FFmpegPath string
	Timeout    time.Duration
	MaxOutput  int64
	Logger     *slog.Logger
}

// Normalizer converts arbitrary audio to mono, 32 kbps OGG via ffmpeg.
type Normalizer struct {
	ffmpegPath string
	timeout    time.Duration
	maxOutput  int64
	runner     commandRunner
	logger     *slog.Logger
}

// NewNormalizer creates a Normalizer. Zero-valued options fall back to defaults.
func NewNormalizer(opts Options) *Normalizer {
	return newNormalizer(opts, execRunner{})
}

func newNormalizer(opts Options, runner commandRunner) *Normalizer {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxOutput <= 0 {
		opts.MaxOutput = DefaultMaxOutput
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Normalizer{
		ffmpegPath: opts.FFmpegPath,
		timeout:    opts.Timeout,
		maxOutput:  opts.MaxOutput,
		runner:     runner,
		logger:     opts.Logger,
	}
}

// Args returns the ffmpeg arguments: stdin in, mono 32k OGG on stdout.
func Args() []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ac", "1",
		"-b:a", "32k",
		"-map", "0:a",
		"-f", Format,
		"pipe:1",
	}
}

// Format reports the container subtype of normalized output.
func (n *Normalizer) Format() string {
	return Format
}

// Normalize pipes raw through ffmpeg and returns the full transcoded stream.
// It waits for the process to exit before returning.
func (n *Normalizer) Normalize(ctx context.Context, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("normalize: empty input")
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	args := Args()
	res, err := n.runner.Run(ctx, bytes.NewReader(raw), n.maxOutput, n.ffmpegPath, args...)
	if err != nil {
		perr := &ProcessError{
			Command:  n.ffmpegPath + " " + strings.Join(args, " "),
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			Err:      err,
		}
		if ctx.Err() != nil {
			perr.Err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		n.logger.Warn("ffmpeg failed",
			"exit_code", res.ExitCode,
			"stderr", truncate(res.Stderr, 500),
			"error", err)
		return nil, perr
	}
	if len(res.Stdout) == 0 {
		return nil, &ProcessError{
			Command:  n.ffmpegPath,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			Err:      errors.New("no audio output"),
		}
	}

	n.logger.Debug("audio normalized",
		"input_bytes", len(raw),
		"output_bytes", len(res.Stdout),
		"duration_ms", res.Duration.Milliseconds())
	return res.Stdout, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
