package service

import (
	"errors"
	"fmt"

	"github.com/raphaelgruber/beethoven-go/internal/models"
)

// Sentinel errors returned by the recording service and pipeline.
var (
	// ErrValidation indicates malformed ingestion input.
	ErrValidation = errors.New("validation failed")

	// ErrRecordingNotFound indicates no recording exists with the given ID.
	ErrRecordingNotFound = errors.New("recording not found")

	// ErrNotPending indicates a run was requested for a recording that has
	// already been picked up or finished.
	ErrNotPending = errors.New("recording is not pending")

	// ErrAudioUnavailable indicates the audio for a recording could not be loaded.
	ErrAudioUnavailable = errors.New("audio unavailable")
)

// Stage names a step of the processing pipeline.
type Stage string

const (
	StageValidate   Stage = "validate"
	StageNormalize  Stage = "normalize"
	StageTranscribe Stage = "transcribe"
	StagePrompt     Stage = "prompt"
	StageAnalyze    Stage = "analyze"
	StagePersist    Stage = "persist"
	StageInternal   Stage = "internal"
)

// StageError is a failure inside one pipeline stage. Status is the
// recording status at the time of failure.
type StageError struct {
	Stage  Stage
	Status models.RecordingStatus
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed (status %s): %v", e.Stage, e.Status, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
