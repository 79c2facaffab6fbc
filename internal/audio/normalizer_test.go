package audio

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records the invocation and returns a canned result.
type fakeRunner struct {
	stdin  []byte
	name   string
	args   []string
	max    int64
	result commandResult
	err    error
	block  bool
}

func (f *fakeRunner) Run(ctx context.Context, stdin io.Reader, maxStdout int64, name string, args ...string) (commandResult, error) {
	data, _ := io.ReadAll(stdin)
	f.stdin = data
	f.name = name
	f.args = args
	f.max = maxStdout
	if f.block {
		<-ctx.Done()
		return commandResult{ExitCode: -1}, ctx.Err()
	}
	return f.result, f.err
}

func TestNormalizeSuccess(t *testing.T) {
	runner := &fakeRunner{result: commandResult{Stdout: []byte("OggS..."), ExitCode: 0}}
	n := newNormalizer(Options{FFmpegPath: "/usr/bin/ffmpeg", MaxOutput: 1024}, runner)

	out, err := n.Normalize(context.Background(), []byte("RIFF raw wav"))
	require.NoError(t, err)

	assert.Equal(t, []byte("OggS..."), out)
	assert.Equal(t, []byte("RIFF raw wav"), runner.stdin)
	assert.Equal(t, "/usr/bin/ffmpeg", runner.name)
	assert.Equal(t, int64(1024), runner.max)
	assert.Subset(t, runner.args, []string{"-i", "pipe:0", "-ac", "1", "-b:a", "32k", "-map", "0:a", "-f", "ogg", "pipe:1"})
	assert.Equal(t, "ogg", n.Format())
}

func TestNormalizeNonZeroExit(t *testing.T) {
	runner := &fakeRunner{
		result: commandResult{ExitCode: 1, Stderr: "pipe:0: Invalid data found when processing input"},
		err:    errors.New("exit status 1"),
	}
	n := newNormalizer(Options{}, runner)

	out, err := n.Normalize(context.Background(), []byte("not audio"))
	require.Error(t, err)
	assert.Nil(t, out)

	var perr *ProcessError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.ExitCode)
	assert.Contains(t, perr.Stderr, "Invalid data")
	assert.Contains(t, err.Error(), "Invalid data found")
}

func TestNormalizeOutputTooLarge(t *testing.T) {
	runner := &fakeRunner{
		result: commandResult{ExitCode: -1},
		err:    ErrOutputTooLarge,
	}
	n := newNormalizer(Options{MaxOutput: 10}, runner)

	_, err := n.Normalize(context.Background(), []byte("raw"))
	assert.ErrorIs(t, err, ErrOutputTooLarge)
}

func TestNormalizeEmptyInput(t *testing.T) {
	runner := &fakeRunner{}
	n := newNormalizer(Options{}, runner)

	_, err := n.Normalize(context.Background(), nil)
	assert.Error(t, err)
	assert.Empty(t, runner.name, "ffmpeg must not run on empty input")
}

func TestNormalizeEmptyOutput(t *testing.T) {
	runner := &fakeRunner{result: commandResult{ExitCode: 0}}
	n := newNormalizer(Options{}, runner)

	_, err := n.Normalize(context.Background(), []byte("raw"))
	var perr *ProcessError
	assert.ErrorAs(t, err, &perr)
}

func TestNormalizeTimeout(t *testing.T) {
	runner := &fakeRunner{block: true}
	n := newNormalizer(Options{Timeout: 20 * time.Millisecond}, runner)

	_, err := n.Normalize(context.Background(), []byte("raw"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimitedBuffer(t *testing.T) {
	t.Run("fails past limit", func(t *testing.T) {
		b := &limitedBuffer{max: 4}
		_, err := b.Write([]byte("abc"))
		require.NoError(t, err)
		_, err = b.Write([]byte("de"))
		assert.ErrorIs(t, err, ErrOutputTooLarge)
		assert.True(t, b.overflow)
		assert.Equal(t, "abc", b.String())
	})

	t.Run("truncates silently", func(t *testing.T) {
		b := &limitedBuffer{max: 4, truncate: true}
		n, err := b.Write([]byte("abcdef"))
		require.NoError(t, err)
		assert.Equal(t, 6, n)
		assert.Equal(t, "abcd", b.String())
	})
}
