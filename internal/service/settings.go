package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/raphaelgruber/beethoven-go/internal/models"
)

// ErrSettingNotFound indicates the requested setting key does not exist.
var ErrSettingNotFound = errors.New("setting not found")

// SettingsRepository persists operator-editable settings.
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) (*models.Setting, error)
	ListSettings(ctx context.Context) ([]models.Setting, error)
}

// SettingsService reads and edits settings such as the analysis prompts.
type SettingsService struct {
	repo SettingsRepository
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(repo SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// List returns all settings.
func (s *SettingsService) List(ctx context.Context) ([]models.Setting, error) {
	return s.repo.ListSettings(ctx)
}

// Get returns one setting.
func (s *SettingsService) Get(ctx context.Context, key string) (*models.Setting, error) {
	value, found, err := s.repo.GetSetting(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get setting: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	return &models.Setting{Key: key, Value: value}, nil
}

// Set creates or replaces a setting. The next pipeline run sees the new value.
func (s *SettingsService) Set(ctx context.Context, key, value string) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, validationError("setting key is required")
	}
	setting, err := s.repo.SetSetting(ctx, key, value)
	if err != nil {
		return nil, fmt.Errorf("set setting: %w", err)
	}
	return setting, nil
}
