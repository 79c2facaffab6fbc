package prompt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is the on-disk format of the default prompts file.
//
//	settings:
//	  prompt_teacher: |
//	    ...
//	  prompt_sales: |
//	    ...
type SeedFile struct {
	Settings map[string]string `yaml:"settings"`
}

// SettingsSeeder creates settings that do not exist yet.
type SettingsSeeder interface {
	SeedSettings(ctx context.Context, defaults map[string]string) (int, error)
}

// ParseSeed decodes a prompts file.
func ParseSeed(data []byte) (map[string]string, error) {
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}
	if f.Settings == nil {
		return map[string]string{}, nil
	}
	return f.Settings, nil
}

// SeedFromFile loads path and seeds its settings. A missing file is not an error.
func SeedFromFile(ctx context.Context, path string, seeder SettingsSeeder, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("no prompts file, skipping seed", "path", path)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read prompts file: %w", err)
	}

	defaults, err := ParseSeed(data)
	if err != nil {
		return 0, err
	}

	for _, key := range []string{KeyTeacher, KeySales} {
		if _, ok := defaults[key]; !ok {
			logger.Warn("prompts file has no entry for role prompt", "key", key, "path", path)
		}
	}

	created, err := seeder.SeedSettings(ctx, defaults)
	if err != nil {
		return created, fmt.Errorf("seed settings: %w", err)
	}
	return created, nil
}
