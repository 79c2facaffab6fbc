// Package service drives recordings through normalization, transcription and
// analysis, and exposes the operations the HTTP API and CLI build on.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/raphaelgruber/beethoven-go/internal/analysis"
	"github.com/raphaelgruber/beethoven-go/internal/llm"
	"github.com/raphaelgruber/beethoven-go/internal/metrics"
	"github.com/raphaelgruber/beethoven-go/internal/models"
)

// storeTimeout bounds each store read or write made by a run.
const storeTimeout = 15 * time.Second

// RecordingStore is the persistence the pipeline needs.
type RecordingStore interface {
	GetRecording(ctx context.Context, id string) (*models.Recording, error)
	UpdateRecording(ctx context.Context, id string, update models.RecordingUpdate) error
}

// Normalizer transcodes raw audio for the transcription provider.
type Normalizer interface {
	Normalize(ctx context.Context, raw []byte) ([]byte, error)
	Format() string
}

// Transcriber converts normalized audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// Analyzer assesses a transcript with a role prompt.
type Analyzer interface {
	Analyze(ctx context.Context, transcript, prompt string) (analysis.Result, error)
}

// PromptResolver returns the current analysis prompt for a role.
type PromptResolver interface {
	Resolve(ctx context.Context, role models.EmployeeRole) (string, error)
}

// PipelineDeps are the collaborators of a Pipeline.
type PipelineDeps struct {
	Store       RecordingStore
	Normalizer  Normalizer
	Transcriber Transcriber
	Analyzer    Analyzer
	Prompts     PromptResolver
	Metrics     *metrics.Collector
	Logger      *slog.Logger
}

// Pipeline processes recordings in detached goroutines. Failures never reach
// the caller of Start; they end up as status=error on the recording.
type Pipeline struct {
	store       RecordingStore
	normalizer  Normalizer
	transcriber Transcriber
	analyzer    Analyzer
	prompts     PromptResolver
	metrics     *metrics.Collector
	logger      *slog.Logger

	wg sync.WaitGroup
}

// NewPipeline creates a Pipeline.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector()
	}
	return &Pipeline{
		store:       deps.Store,
		normalizer:  deps.Normalizer,
		transcriber: deps.Transcriber,
		analyzer:    deps.Analyzer,
		prompts:     deps.Prompts,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// run is the state of one recording moving through the pipeline.
type run struct {
	id      string
	role    models.EmployeeRole
	status  models.RecordingStatus
	started time.Time
}

// Start launches processing of a pending recording and returns immediately.
func (p *Pipeline) Start(recordingID string, audio []byte, role models.EmployeeRole) {
	p.wg.Add(1)
	p.metrics.RecordRunStart()

	go func() {
		defer p.wg.Done()
		r := &run{id: recordingID, role: role, started: time.Now()}

		defer func() {
			if rec := recover(); rec != nil {
				p.logger.Error("pipeline goroutine panicked", "recording_id", recordingID, "panic", rec)
				p.fail(r, StageInternal, fmt.Errorf("internal panic: %v", rec))
			}
		}()

		_ = p.execute(context.Background(), r, audio)
	}()
}

// Run processes a recording synchronously. It returns nil when the
// recording reached done, the StageError when it was marked error (a failed
// store read included), or ErrRecordingNotFound / ErrNotPending when nothing
// was written.
func (p *Pipeline) Run(ctx context.Context, recordingID string, audio []byte, role models.EmployeeRole) error {
	p.metrics.RecordRunStart()
	return p.execute(ctx, &run{id: recordingID, role: role, started: time.Now()}, audio)
}

// Wait blocks until every run started so far has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// WaitTimeout is Wait with an upper bound. Returns false on timeout.
func (p *Pipeline) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

func (p *Pipeline) execute(ctx context.Context, r *run, audio []byte) error {
	log := p.logger.With("recording_id", r.id, "role", r.role)

	rec, err := p.load(ctx, r.id)
	if errors.Is(err, ErrRecordingNotFound) {
		log.Warn("pipeline aborted, recording not found")
		p.metrics.RecordRunEnd(metrics.OutcomeAborted)
		return err
	}
	if err != nil {
		// The row exists as far as the caller knows; without a readable
		// status it is still pending, so it must end in error.
		r.status = models.StatusPending
		return p.fail(r, StagePersist, err)
	}
	if rec.Status != models.StatusPending {
		log.Warn("pipeline aborted, recording is not pending", "status", rec.Status)
		p.metrics.RecordRunEnd(metrics.OutcomeAborted)
		return fmt.Errorf("%w: %s is %s", ErrNotPending, r.id, rec.Status)
	}
	r.status = models.StatusPending

	if len(audio) == 0 {
		return p.fail(r, StageValidate, validationError("empty audio"))
	}

	log.Info("pipeline started", "audio_bytes", len(audio))

	// pending -> transcribing
	if err := p.advance(ctx, r, models.RecordingUpdate{}); err != nil {
		return p.fail(r, StagePersist, err)
	}

	start := time.Now()
	normalized, err := p.normalizer.Normalize(ctx, audio)
	if err != nil {
		p.metrics.RecordFailure(metrics.OpNormalize, time.Since(start))
		return p.fail(r, StageNormalize, err)
	}
	p.metrics.RecordTiming(metrics.OpNormalize, time.Since(start))
	log.Info("audio normalized", "input_bytes", len(audio), "output_bytes", len(normalized))

	start = time.Now()
	transcript, err := p.transcriber.Transcribe(ctx, normalized, p.normalizer.Format())
	if err != nil {
		p.metrics.RecordFailure(metrics.OpTranscribe, time.Since(start))
		return p.fail(r, StageTranscribe, err)
	}
	log.Info("transcription complete", "transcript_len", len(transcript), "duration_ms", time.Since(start).Milliseconds())

	// transcribing -> analyzing, transcript persisted with the transition
	if err := p.advance(ctx, r, models.RecordingUpdate{Transcription: &transcript}); err != nil {
		return p.fail(r, StagePersist, err)
	}

	prompt, err := p.prompts.Resolve(ctx, r.role)
	if err != nil {
		return p.fail(r, StagePrompt, err)
	}

	start = time.Now()
	result, err := p.analyzer.Analyze(ctx, transcript, prompt)
	if err != nil {
		p.metrics.RecordFailure(metrics.OpLLMGenerate, time.Since(start))
		return p.fail(r, StageAnalyze, err)
	}
	if result.Score < analysis.MinScore || result.Score > analysis.MaxScore {
		return p.fail(r, StageAnalyze, fmt.Errorf("score %d out of range", result.Score))
	}

	// analyzing -> done
	score := result.Score
	if err := p.advance(ctx, r, models.RecordingUpdate{Analysis: &result.Analysis, Score: &score}); err != nil {
		return p.fail(r, StagePersist, err)
	}

	p.metrics.RecordRunEnd(metrics.OutcomeDone)
	log.Info("recording processed",
		"score", score,
		"score_found", result.ScoreFound,
		"duration_ms", time.Since(r.started).Milliseconds())
	return nil
}

func (p *Pipeline) load(ctx context.Context, id string) (*models.Recording, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	start := time.Now()
	rec, err := p.store.GetRecording(ctx, id)
	p.metrics.RecordTiming(metrics.OpDBQuery, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("load recording: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordingNotFound, id)
	}
	return rec, nil
}

// advance moves r to the next forward status, writing update in the same call.
func (p *Pipeline) advance(ctx context.Context, r *run, update models.RecordingUpdate) error {
	next, ok := r.status.Next()
	if !ok || !r.status.CanTransition(next) {
		return fmt.Errorf("no forward transition from %s", r.status)
	}
	update.Status = &next
	if err := p.write(ctx, r.id, update); err != nil {
		return err
	}
	p.logger.Debug("status changed", "recording_id", r.id, "from", r.status, "to", next)
	r.status = next
	return nil
}

func (p *Pipeline) write(ctx context.Context, id string, update models.RecordingUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	start := time.Now()
	err := p.store.UpdateRecording(ctx, id, update)
	p.metrics.RecordTiming(metrics.OpDBQuery, time.Since(start))
	if err != nil {
		return fmt.Errorf("update recording: %w", err)
	}
	return nil
}

// fail marks the recording as error and returns the StageError. Fields
// written by earlier stages are kept.
func (p *Pipeline) fail(r *run, stage Stage, err error) error {
	stageErr := &StageError{Stage: stage, Status: r.status, Err: err}

	level := slog.LevelWarn
	if llm.IsFatal(err) || stage == StageInternal || stage == StagePersist {
		level = slog.LevelError
	}
	p.logger.Log(context.Background(), level, "recording failed",
		"recording_id", r.id,
		"stage", stage,
		"status", r.status,
		"duration_ms", time.Since(r.started).Milliseconds(),
		"error", err)

	if r.status == "" || !r.status.CanTransition(models.StatusError) {
		p.metrics.RecordRunEnd(metrics.OutcomeAborted)
		return stageErr
	}

	// The run context may be what failed, so the terminal write gets its own.
	status := models.StatusError
	if werr := p.write(context.Background(), r.id, models.RecordingUpdate{Status: &status}); werr != nil {
		p.logger.Error("failed to persist error status", "recording_id", r.id, "error", werr)
	} else {
		r.status = models.StatusError
	}
	p.metrics.RecordRunEnd(metrics.OutcomeFailed)
	return stageErr
}

// IsStageFailure reports whether err came from a pipeline stage that marked
// the recording as error.
func IsStageFailure(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}
