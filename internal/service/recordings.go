package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/beethoven-go/internal/models"
)

// RecordingRepository is the full recording persistence used by the service.
type RecordingRepository interface {
	RecordingStore
	CreateRecording(ctx context.Context, input models.RecordingInput) (*models.Recording, error)
	ListRecordings(ctx context.Context, filter models.RecordingFilter) ([]models.Recording, error)
}

// AudioStore holds raw recording audio addressed by path.
type AudioStore interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	Delete(ctx context.Context, path string) error
}

// Runner starts pipeline runs. *Pipeline implements it.
type Runner interface {
	Start(recordingID string, audio []byte, role models.EmployeeRole)
}

// IngestRequest describes a new recording. Exactly one of AudioPath or
// Audio must be set.
type IngestRequest struct {
	ClientID     string
	EmployeeID   string
	EmployeeRole models.EmployeeRole
	AudioPath    string
	Audio        []byte
	Filename     string
	ContentType  string
}

// StatusView is the public status projection of a recording.
type StatusView struct {
	ID     string                 `json:"id"`
	Status models.RecordingStatus `json:"status"`
}

// RecordingService ingests recordings and answers status queries.
type RecordingService struct {
	repo   RecordingRepository
	audio  AudioStore
	runner Runner
	logger *slog.Logger
}

// NewRecordingService creates a RecordingService. audio may be nil when no
// object storage is configured; then only uploaded bytes are accepted.
func NewRecordingService(repo RecordingRepository, audio AudioStore, runner Runner, logger *slog.Logger) *RecordingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordingService{repo: repo, audio: audio, runner: runner, logger: logger}
}

// Ingest validates req, makes the audio available, creates the pending
// recording and starts processing in the background. The returned record
// is the pending row; processing outcome is observed via Status.
func (s *RecordingService) Ingest(ctx context.Context, req IngestRequest) (*models.Recording, error) {
	if err := validateIngest(req, s.audio != nil); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	audio := req.Audio
	var audioPath *string
	uploaded := false

	switch {
	case len(req.Audio) > 0 && s.audio != nil:
		p := uploadPath(id, req.Filename)
		if err := s.audio.Upload(ctx, p, req.Audio, req.ContentType); err != nil {
			return nil, fmt.Errorf("%w: upload: %w", ErrAudioUnavailable, err)
		}
		audioPath = &p
		uploaded = true
	case req.AudioPath != "":
		data, err := s.audio.Fetch(ctx, req.AudioPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAudioUnavailable, err)
		}
		audio = data
		p := req.AudioPath
		audioPath = &p
	}

	rec, err := s.repo.CreateRecording(ctx, models.RecordingInput{
		ID:           id,
		ClientID:     req.ClientID,
		EmployeeID:   req.EmployeeID,
		EmployeeRole: req.EmployeeRole,
		AudioPath:    audioPath,
	})
	if err != nil {
		if uploaded {
			s.removeUpload(*audioPath)
		}
		return nil, fmt.Errorf("create recording: %w", err)
	}

	s.logger.Info("recording ingested",
		"recording_id", id,
		"client_id", req.ClientID,
		"employee_id", req.EmployeeID,
		"role", req.EmployeeRole,
		"audio_bytes", len(audio))

	s.runner.Start(id, audio, req.EmployeeRole)
	return rec, nil
}

func validateIngest(req IngestRequest, hasStore bool) error {
	var problems []string
	if strings.TrimSpace(req.ClientID) == "" {
		problems = append(problems, "client_id is required")
	}
	if strings.TrimSpace(req.EmployeeID) == "" {
		problems = append(problems, "employee_id is required")
	}
	if !req.EmployeeRole.Valid() {
		problems = append(problems, fmt.Sprintf("employee_role must be %q or %q", models.RoleTeacher, models.RoleSalesManager))
	}
	hasBytes := len(req.Audio) > 0
	hasPath := strings.TrimSpace(req.AudioPath) != ""
	switch {
	case hasBytes && hasPath:
		problems = append(problems, "provide either audio or audio_path, not both")
	case !hasBytes && !hasPath:
		problems = append(problems, "audio or audio_path is required")
	case hasPath && !hasStore:
		problems = append(problems, "audio_path requires object storage to be configured")
	}
	if len(problems) > 0 {
		return validationError("%s", strings.Join(problems, "; "))
	}
	return nil
}

func uploadPath(id, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return "uploads/" + id + ext
}

// removeUpload deletes an object uploaded for a recording that was never created.
func (s *RecordingService) removeUpload(objectPath string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.audio.Delete(ctx, objectPath); err != nil {
		s.logger.Warn("orphaned upload left in storage", "path", objectPath, "error", err)
	}
}

// Get returns the full recording.
func (s *RecordingService) Get(ctx context.Context, id string) (*models.Recording, error) {
	rec, err := s.repo.GetRecording(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordingNotFound, id)
	}
	return rec, nil
}

// Status returns the current status of a recording.
func (s *RecordingService) Status(ctx context.Context, id string) (*StatusView, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StatusView{ID: id, Status: rec.Status}, nil
}

// List returns recordings newest first.
func (s *RecordingService) List(ctx context.Context, filter models.RecordingFilter) ([]models.Recording, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, validationError("unknown status %q", *filter.Status)
	}
	recs, err := s.repo.ListRecordings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	return recs, nil
}

// RecoverInterrupted handles recordings left behind by a previous process.
// Runs that were mid-flight cannot be resumed and are marked error. Pending
// recordings whose audio is in object storage are started again.
func (s *RecordingService) RecoverInterrupted(ctx context.Context) error {
	var restarted, failed int

	for _, st := range []models.RecordingStatus{models.StatusTranscribing, models.StatusAnalyzing} {
		status := st
		recs, err := s.repo.ListRecordings(ctx, models.RecordingFilter{Status: &status, Limit: 1000})
		if err != nil {
			return fmt.Errorf("list %s recordings: %w", st, err)
		}
		for _, rec := range recs {
			errStatus := models.StatusError
			if err := s.repo.UpdateRecording(ctx, rec.Key(), models.RecordingUpdate{Status: &errStatus}); err != nil {
				s.logger.Warn("failed to mark interrupted recording", "recording_id", rec.Key(), "error", err)
				continue
			}
			failed++
		}
	}

	if s.audio != nil {
		pending := models.StatusPending
		recs, err := s.repo.ListRecordings(ctx, models.RecordingFilter{Status: &pending, Limit: 1000})
		if err != nil {
			return fmt.Errorf("list pending recordings: %w", err)
		}
		for _, rec := range recs {
			if rec.AudioPath == nil {
				continue
			}
			data, err := s.audio.Fetch(ctx, *rec.AudioPath)
			if err != nil {
				s.logger.Warn("cannot restart pending recording", "recording_id", rec.Key(), "error", err)
				continue
			}
			s.runner.Start(rec.Key(), data, rec.EmployeeRole)
			restarted++
		}
	}

	if restarted > 0 || failed > 0 {
		s.logger.Info("recovered interrupted recordings", "restarted", restarted, "marked_error", failed)
	} else {
		s.logger.Info("no interrupted recordings to recover")
	}
	return nil
}

// IsNotFound reports whether err means the recording does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordingNotFound)
}
