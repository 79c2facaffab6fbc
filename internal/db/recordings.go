package db

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/raphaelgruber/beethoven-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateRecording inserts a new recording in the pending state.
// Returns ErrEntityAlreadyExists if the ID is taken.
func (c *Client) CreateRecording(ctx context.Context, input models.RecordingInput) (*models.Recording, error) {
	sql := `
		CREATE type::record("recording", $id) SET
			client_id = $client_id,
			employee_id = $employee_id,
			employee_role = $employee_role,
			audio_path = $audio_path,
			status = "pending",
			created_at = time::now()
		RETURN AFTER
	`

	vars := map[string]any{
		"id":            input.ID,
		"client_id":     input.ClientID,
		"employee_id":   input.EmployeeID,
		"employee_role": string(input.EmployeeRole),
		"audio_path":    input.AudioPath,
	}
	// NONE rather than NULL keeps option<string> happy.
	if input.AudioPath == nil {
		sql = strings.Replace(sql, "audio_path = $audio_path,", "", 1)
		delete(vars, "audio_path")
	}

	results, err := surrealdb.Query[[]models.Recording](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create recording: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// GetRecording retrieves a recording by ID.
// Returns nil if not found.
func (c *Client) GetRecording(ctx context.Context, id string) (*models.Recording, error) {
	results, err := surrealdb.Query[[]models.Recording](ctx, c.db, `
		SELECT * FROM type::record("recording", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// UpdateRecording applies a partial update by ID. Only non-nil fields are
// written. Returns ErrNotFound if no such recording exists.
func (c *Client) UpdateRecording(ctx context.Context, id string, update models.RecordingUpdate) error {
	fields := update.Fields()
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys)+1)
	vars := map[string]any{"id": id}
	for _, k := range keys {
		sets = append(sets, fmt.Sprintf("%s = $%s", k, k))
		vars[k] = fields[k]
	}
	sets = append(sets, "updated_at = time::now()")

	sql := fmt.Sprintf(`UPDATE type::record("recording", $id) SET %s RETURN AFTER`, strings.Join(sets, ", "))

	results, err := surrealdb.Query[[]models.Recording](ctx, c.db, sql, vars)
	if err != nil {
		return fmt.Errorf("update recording: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return fmt.Errorf("update recording %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListRecordings returns recordings newest first.
func (c *Client) ListRecordings(ctx context.Context, filter models.RecordingFilter) ([]models.Recording, error) {
	var conditions []string
	vars := map[string]any{}

	if filter.Status != nil {
		conditions = append(conditions, "status = $status")
		vars["status"] = string(*filter.Status)
	}
	if filter.EmployeeID != nil {
		conditions = append(conditions, "employee_id = $employee_id")
		vars["employee_id"] = *filter.EmployeeID
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	vars["limit"] = limit

	sql := "SELECT * FROM recording"
	if len(conditions) > 0 {
		sql += " WHERE " + strings.Join(conditions, " AND ")
	}
	sql += " ORDER BY created_at DESC LIMIT $limit"

	results, err := surrealdb.Query[[]models.Recording](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []models.Recording{}, nil
	}
	return (*results)[0].Result, nil
}
