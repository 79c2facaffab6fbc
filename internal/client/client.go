// Package client provides an HTTP client for the Beethoven server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Client talks to the Beethoven REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client.
// If baseURL is empty, uses BEETHOVEN_SERVER_URL or defaults to localhost:8080.
// Timeout can be configured via BEETHOVEN_CLIENT_TIMEOUT (default 5m, uploads can be large).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("BEETHOVEN_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	timeout := 5 * time.Minute
	if t := os.Getenv("BEETHOVEN_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// =============================================================================
// TYPES (matching the REST API)
// =============================================================================

// Recording is a recording as returned by the server.
type Recording struct {
	ID            string     `json:"id"`
	ClientID      string     `json:"client_id"`
	EmployeeID    string     `json:"employee_id"`
	EmployeeRole  string     `json:"employee_role"`
	AudioPath     *string    `json:"audio_path,omitempty"`
	Transcription *string    `json:"transcription,omitempty"`
	Analysis      *string    `json:"analysis,omitempty"`
	Score         *int       `json:"score,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// StatusView is the {id, status} projection.
type StatusView struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// IsTerminal reports whether processing has finished.
func (s StatusView) IsTerminal() bool {
	return IsTerminalStatus(s.Status)
}

// IsTerminalStatus reports whether status is done or error.
func IsTerminalStatus(status string) bool {
	return status == "done" || status == "error"
}

// Setting is an operator-editable key/value.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OperationStats holds metrics for a single operation type.
type OperationStats struct {
	Count             int64    `json:"count"`
	Failures          int64    `json:"failures"`
	TotalTimeMs       int64    `json:"total_time_ms"`
	AvgTimeMs         float64  `json:"avg_time_ms"`
	MinTimeMs         int64    `json:"min_time_ms"`
	MaxTimeMs         int64    `json:"max_time_ms"`
	TotalInputTokens  *int64   `json:"total_input_tokens,omitempty"`
	TotalOutputTokens *int64   `json:"total_output_tokens,omitempty"`
	AvgInputTokens    *float64 `json:"avg_input_tokens,omitempty"`
	AvgOutputTokens   *float64 `json:"avg_output_tokens,omitempty"`
}

// RunCounts counts pipeline runs by outcome.
type RunCounts struct {
	Started  int64 `json:"started"`
	Done     int64 `json:"done"`
	Failed   int64 `json:"failed"`
	Aborted  int64 `json:"aborted"`
	InFlight int64 `json:"in_flight"`
}

// ServerStats holds in-memory runtime statistics (resets on server restart).
type ServerStats struct {
	UptimeSeconds float64         `json:"uptime_seconds"`
	Runs          RunCounts       `json:"runs"`
	Normalize     *OperationStats `json:"normalize,omitempty"`
	Transcribe    *OperationStats `json:"transcribe,omitempty"`
	LLMGenerate   *OperationStats `json:"llm_generate,omitempty"`
	DBQuery       *OperationStats `json:"db_query,omitempty"`
}

// =============================================================================
// RECORDING OPERATIONS
// =============================================================================

// SubmitInput describes a new recording.
type SubmitInput struct {
	ClientID     string `json:"client_id"`
	EmployeeID   string `json:"employee_id"`
	EmployeeRole string `json:"employee_role"`
}

// SubmitFile uploads a local audio file and returns the pending recording.
func (c *Client) SubmitFile(ctx context.Context, filePath string, input SubmitInput) (*Recording, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{
		"client_id":     input.ClientID,
		"employee_id":   input.EmployeeID,
		"employee_role": input.EmployeeRole,
	} {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	part, err := mw.CreateFormFile("audio", filepath.Base(filePath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var rec Recording
	if err := c.do(ctx, http.MethodPost, "/api/recordings", &body, mw.FormDataContentType(), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SubmitPath creates a recording whose audio already lives in object storage.
func (c *Client) SubmitPath(ctx context.Context, audioPath string, input SubmitInput) (*Recording, error) {
	payload := struct {
		SubmitInput
		AudioPath string `json:"audio_path"`
	}{input, audioPath}

	var rec Recording
	if err := c.doJSON(ctx, http.MethodPost, "/api/recordings", payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetRecording returns the full recording.
func (c *Client) GetRecording(ctx context.Context, id string) (*Recording, error) {
	var rec Recording
	if err := c.do(ctx, http.MethodGet, "/api/recordings/"+url.PathEscape(id), nil, "", &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetStatus returns the current status of a recording.
func (c *Client) GetStatus(ctx context.Context, id string) (*StatusView, error) {
	var view StatusView
	if err := c.do(ctx, http.MethodGet, "/api/recordings/"+url.PathEscape(id)+"/status", nil, "", &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// ListOptions filters ListRecordings.
type ListOptions struct {
	Status     string
	EmployeeID string
	Limit      int
}

// ListRecordings returns recordings newest first.
func (c *Client) ListRecordings(ctx context.Context, opts ListOptions) ([]Recording, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.EmployeeID != "" {
		q.Set("employee_id", opts.EmployeeID)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := "/api/recordings"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var recs []Recording
	if err := c.do(ctx, http.MethodGet, path, nil, "", &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// =============================================================================
// SETTINGS OPERATIONS
// =============================================================================

// ListSettings returns all settings.
func (c *Client) ListSettings(ctx context.Context) ([]Setting, error) {
	var settings []Setting
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, "", &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// GetSetting returns one setting.
func (c *Client) GetSetting(ctx context.Context, key string) (*Setting, error) {
	var s Setting
	if err := c.do(ctx, http.MethodGet, "/api/settings/"+url.PathEscape(key), nil, "", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SetSetting creates or replaces a setting.
func (c *Client) SetSetting(ctx context.Context, key, value string) (*Setting, error) {
	var s Setting
	body := map[string]string{"value": value}
	if err := c.doJSON(ctx, http.MethodPut, "/api/settings/"+url.PathEscape(key), body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// =============================================================================
// STATS
// =============================================================================

// GetServerStats returns runtime metrics.
func (c *Client) GetServerStats(ctx context.Context) (*ServerStats, error) {
	var stats ServerStats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, "", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) doJSON(ctx context.Context, method, path string, payload, result any) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, method, path, bytes.NewReader(reqBody), "application/json", result)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
