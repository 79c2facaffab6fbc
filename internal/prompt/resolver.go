// Package prompt resolves the analysis prompt that applies to an employee role.
package prompt

import (
	"context"
	"errors"
	"fmt"

	"github.com/raphaelgruber/beethoven-go/internal/models"
)

// Setting keys holding the analysis prompts.
const (
	KeyTeacher = "prompt_teacher"
	KeySales   = "prompt_sales"
)

// ErrConfigMissing indicates the prompt setting for a role is absent.
var ErrConfigMissing = errors.New("prompt setting missing")

// SettingsReader reads one setting. found is false when the key is absent.
type SettingsReader interface {
	GetSetting(ctx context.Context, key string) (value string, found bool, err error)
}

// KeyForRole maps a role to its prompt key. Any role other than teacher
// uses the sales prompt.
func KeyForRole(role models.EmployeeRole) string {
	if role == models.RoleTeacher {
		return KeyTeacher
	}
	return KeySales
}

// Resolver fetches prompts from the settings store. It never caches, so
// operator edits apply to the next run.
type Resolver struct {
	settings SettingsReader
}

// NewResolver creates a Resolver backed by settings.
func NewResolver(settings SettingsReader) *Resolver {
	return &Resolver{settings: settings}
}

// Resolve returns the current prompt text for role.
// An empty stored value is returned as-is.
func (r *Resolver) Resolve(ctx context.Context, role models.EmployeeRole) (string, error) {
	key := KeyForRole(role)
	value, found, err := r.settings.GetSetting(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	if !found {
		return "", fmt.Errorf("%w: %s", ErrConfigMissing, key)
	}
	return value, nil
}
