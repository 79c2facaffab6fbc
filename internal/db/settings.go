package db

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/raphaelgruber/beethoven-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// GetSetting returns the value stored under key.
// found is false when the key is absent.
func (c *Client) GetSetting(ctx context.Context, key string) (string, bool, error) {
	results, err := surrealdb.Query[[]models.Setting](ctx, c.db, `
		SELECT * FROM type::record("setting", $key)
	`, map[string]any{"key": key})
	if err != nil {
		return "", false, fmt.Errorf("get setting: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return "", false, nil
	}
	return (*results)[0].Result[0].Value, true, nil
}

// SetSetting creates or replaces a setting.
func (c *Client) SetSetting(ctx context.Context, key, value string) (*models.Setting, error) {
	results, err := surrealdb.Query[[]models.Setting](ctx, c.db, `
		UPSERT type::record("setting", $key) SET
			key = $key,
			value = $value,
			updated_at = time::now()
		RETURN AFTER
	`, map[string]any{"key": key, "value": value})
	if err != nil {
		return nil, fmt.Errorf("set setting: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("set setting: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// ListSettings returns all settings ordered by key.
func (c *Client) ListSettings(ctx context.Context) ([]models.Setting, error) {
	results, err := surrealdb.Query[[]models.Setting](ctx, c.db, `
		SELECT * FROM setting ORDER BY key
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []models.Setting{}, nil
	}
	return (*results)[0].Result, nil
}

// SeedSettings creates the given settings unless the key already exists.
// Existing values are never overwritten. Returns the number of keys created.
func (c *Client) SeedSettings(ctx context.Context, defaults map[string]string) (int, error) {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	created := 0
	for _, key := range keys {
		_, err := surrealdb.Query[any](ctx, c.db, `
			CREATE type::record("setting", $key) SET
				key = $key,
				value = $value,
				updated_at = time::now()
		`, map[string]any{"key": key, "value": defaults[key]})
		if err != nil {
			err = wrapQueryError(err)
			if errors.Is(err, ErrEntityAlreadyExists) {
				continue
			}
			return created, fmt.Errorf("seed setting %s: %w", key, err)
		}
		created++
	}

	c.logger.Info("seeded settings", "created", created, "total", len(defaults))
	return created, nil
}
