package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/raphaelgruber/beethoven-go/internal/models"
)

// memStore is an in-memory RecordingRepository and SettingsRepository that
// records every status written per recording.
type memStore struct {
	mu         sync.Mutex
	recordings map[string]*models.Recording
	history    map[string][]models.RecordingStatus
	settings   map[string]string

	// failWriteStatus makes UpdateRecording fail when this status is written.
	failWriteStatus models.RecordingStatus
	getErr          error
	createErr       error
}

func newMemStore() *memStore {
	return &memStore{
		recordings: map[string]*models.Recording{},
		history:    map[string][]models.RecordingStatus{},
		settings:   map[string]string{},
	}
}

func (m *memStore) addPending(id string, role models.EmployeeRole) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordings[id] = &models.Recording{
		ID:           models.NewRecordingID(id),
		ClientID:     "client-1",
		EmployeeID:   "employee-1",
		EmployeeRole: role,
		Status:       models.StatusPending,
		CreatedAt:    time.Now(),
	}
	m.history[id] = []models.RecordingStatus{models.StatusPending}
}

func (m *memStore) CreateRecording(_ context.Context, in models.RecordingInput) (*models.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, ok := m.recordings[in.ID]; ok {
		return nil, errors.New("already exists")
	}
	rec := &models.Recording{
		ID:           models.NewRecordingID(in.ID),
		ClientID:     in.ClientID,
		EmployeeID:   in.EmployeeID,
		EmployeeRole: in.EmployeeRole,
		AudioPath:    in.AudioPath,
		Status:       models.StatusPending,
		CreatedAt:    time.Now(),
	}
	m.recordings[in.ID] = rec
	m.history[in.ID] = []models.RecordingStatus{models.StatusPending}
	cp := *rec
	return &cp, nil
}

func (m *memStore) GetRecording(_ context.Context, id string) (*models.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.recordings[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) UpdateRecording(_ context.Context, id string, u models.RecordingUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recordings[id]
	if !ok {
		return fmt.Errorf("update %s: not found", id)
	}
	if u.Status != nil && *u.Status == m.failWriteStatus {
		return errors.New("write failed")
	}
	if u.Transcription != nil {
		rec.Transcription = u.Transcription
	}
	if u.Analysis != nil {
		rec.Analysis = u.Analysis
	}
	if u.Score != nil {
		rec.Score = u.Score
	}
	if u.Status != nil {
		rec.Status = *u.Status
		m.history[id] = append(m.history[id], *u.Status)
	}
	return nil
}

func (m *memStore) ListRecordings(_ context.Context, f models.RecordingFilter) ([]models.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Recording
	for _, rec := range m.recordings {
		if f.Status != nil && rec.Status != *f.Status {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (m *memStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.settings[key]
	return v, ok, nil
}

func (m *memStore) SetSetting(_ context.Context, key, value string) (*models.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return &models.Setting{Key: key, Value: value, UpdatedAt: time.Now()}, nil
}

func (m *memStore) ListSettings(context.Context) ([]models.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Setting, 0, len(m.settings))
	for k, v := range m.settings {
		out = append(out, models.Setting{Key: k, Value: v})
	}
	return out, nil
}

func (m *memStore) get(id string) models.Recording {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.recordings[id]
}

func (m *memStore) statuses(id string) []models.RecordingStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.RecordingStatus(nil), m.history[id]...)
}

type fakeNormalizer struct {
	out    []byte
	err    error
	panics bool
	calls  int
}

func (f *fakeNormalizer) Normalize(_ context.Context, raw []byte) ([]byte, error) {
	f.calls++
	if f.panics {
		panic("ffmpeg wrapper exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.out != nil {
		return f.out, nil
	}
	return append([]byte("ogg:"), raw...), nil
}

func (f *fakeNormalizer) Format() string { return "ogg" }

type fakeTranscriber struct {
	text   string
	err    error
	calls  int
	format string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, format string) (string, error) {
	f.calls++
	f.format = format
	return f.text, f.err
}

// fakeGenerator implements analysis.Generator.
type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) Generate(context.Context, string) (string, error) {
	f.calls++
	return f.response, f.err
}

// fakeAudioStore is an in-memory AudioStore.
type fakeAudioStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (f *fakeAudioStore) Fetch(_ context.Context, p string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[p]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (f *fakeAudioStore) Upload(_ context.Context, p string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.objects[p] = data
	return nil
}

func (f *fakeAudioStore) Delete(_ context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, p)
	return nil
}

// recordingRunner captures Start calls without running anything.
type recordingRunner struct {
	mu    sync.Mutex
	calls []startCall
}

type startCall struct {
	id    string
	audio []byte
	role  models.EmployeeRole
}

func (r *recordingRunner) Start(id string, audio []byte, role models.EmployeeRole) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, startCall{id: id, audio: audio, role: role})
}
