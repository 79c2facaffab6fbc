// Package analysis turns a transcript into a qualitative assessment with a
// 1..10 score.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds one analysis request.
	DefaultTimeout = 2 * time.Minute

	// DefaultScore is used when the response carries no parseable score line.
	DefaultScore = 5

	MinScore = 1
	MaxScore = 10

	scorePrefix = "SCORE:"

	transcriptHeader = "\n\nТранскрипция:\n"

	// scoreInstruction asks the model to end with a single SCORE:X line.
	scoreInstruction = "\n\nВАЖНО: В самом конце ответа на отдельной строке напиши только число — " +
		"итоговую оценку от 1 до 10. Формат последней строки: SCORE:X (где X — число от 1 до 10)."
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result is a parsed analysis.
type Result struct {
	Analysis string
	Score    int
	// ScoreFound is false when DefaultScore was substituted.
	ScoreFound bool
}

// Analyzer calls a Generator and parses its response.
type Analyzer struct {
	gen     Generator
	timeout time.Duration
	logger  *slog.Logger
}

// NewAnalyzer creates an Analyzer. A zero timeout means DefaultTimeout.
func NewAnalyzer(gen Generator, timeout time.Duration, logger *slog.Logger) *Analyzer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{gen: gen, timeout: timeout, logger: logger}
}

// BuildPrompt joins the role prompt, the transcript and the scoring instruction.
func BuildPrompt(prompt, transcript string) string {
	return prompt + transcriptHeader + transcript + scoreInstruction
}

// Analyze asks the model to assess transcript using prompt.
// A missing or malformed score is not an error.
func (a *Analyzer) Analyze(ctx context.Context, transcript, prompt string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	response, err := a.gen.Generate(ctx, BuildPrompt(prompt, transcript))
	if err != nil {
		return Result{}, fmt.Errorf("analyze: %w", err)
	}

	res := Parse(response)
	if !res.ScoreFound {
		a.logger.Warn("analysis response has no usable score line, using default",
			"default_score", DefaultScore,
			"response_len", len(response))
	}
	return res, nil
}

// Parse splits a model response into analysis text and score.
func Parse(response string) Result {
	score, found := ExtractScore(response)
	return Result{
		Analysis:   StripScoreLines(response),
		Score:      score,
		ScoreFound: found,
	}
}

// ExtractScore finds the last line starting with SCORE: and parses it.
// Only that line is considered: if it does not parse, the default applies
// even when an earlier SCORE: line would. Values are clamped to [1,10].
func ExtractScore(response string) (int, bool) {
	lines := strings.Split(strings.TrimSpace(response), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, scorePrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, scorePrefix)))
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return DefaultScore, false
		}
		// On ErrRange n holds the sign-appropriate bound, which clamps correctly.
		return clamp(n), true
	}
	return DefaultScore, false
}

// StripScoreLines removes every SCORE: line and trims the result.
func StripScoreLines(response string) string {
	lines := strings.Split(strings.TrimSpace(response), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), scorePrefix) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func clamp(n int) int {
	return max(MinScore, min(MaxScore, n))
}
