package models

import (
	"encoding/json"
	"fmt"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Table names.
const (
	TableRecording = "recording"
	TableSetting   = "setting"
)

// RecordingStatus is the processing state of a recording.
type RecordingStatus string

const (
	StatusPending      RecordingStatus = "pending"
	StatusTranscribing RecordingStatus = "transcribing"
	StatusAnalyzing    RecordingStatus = "analyzing"
	StatusDone         RecordingStatus = "done"
	StatusError        RecordingStatus = "error"
)

// statusOrder is the forward path. error is reachable from any non-terminal status.
var statusOrder = map[RecordingStatus]RecordingStatus{
	StatusPending:      StatusTranscribing,
	StatusTranscribing: StatusAnalyzing,
	StatusAnalyzing:    StatusDone,
}

// Valid reports whether s is a known status.
func (s RecordingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusTranscribing, StatusAnalyzing, StatusDone, StatusError:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s RecordingStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}

// Next returns the following status on the forward path.
func (s RecordingStatus) Next() (RecordingStatus, bool) {
	next, ok := statusOrder[s]
	return next, ok
}

// CanTransition reports whether a recording may move from s to next.
func (s RecordingStatus) CanTransition(next RecordingStatus) bool {
	if s.IsTerminal() || !s.Valid() {
		return false
	}
	if next == StatusError {
		return true
	}
	return statusOrder[s] == next
}

// EmployeeRole selects which analysis prompt applies to a recording.
type EmployeeRole string

const (
	RoleTeacher      EmployeeRole = "teacher"
	RoleSalesManager EmployeeRole = "sales_manager"
)

// Valid reports whether r is a known role.
func (r EmployeeRole) Valid() bool {
	return r == RoleTeacher || r == RoleSalesManager
}

// Recording is one uploaded lesson or sales call and its processing results.
type Recording struct {
	ID            surrealmodels.RecordID `json:"id"`
	ClientID      string                 `json:"client_id"`
	EmployeeID    string                 `json:"employee_id"`
	EmployeeRole  EmployeeRole           `json:"employee_role"`
	AudioPath     *string                `json:"audio_path,omitempty"`
	Transcription *string                `json:"transcription,omitempty"`
	Analysis      *string                `json:"analysis,omitempty"`
	Score         *int                   `json:"score,omitempty"`
	Status        RecordingStatus        `json:"status"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     *time.Time             `json:"updated_at,omitempty"`
}

// Key returns the string part of the record ID. IDs this service creates
// are UUID strings; a foreign key type is formatted as-is.
func (r *Recording) Key() string {
	if key, err := RecordKey(r.ID); err == nil {
		return key
	}
	return fmt.Sprint(r.ID.ID)
}

// recordingJSON is the API shape of a Recording: the ID is the bare key.
type recordingJSON struct {
	ID string `json:"id"`
	recordingFields
}

type recordingFields struct {
	ClientID      string          `json:"client_id"`
	EmployeeID    string          `json:"employee_id"`
	EmployeeRole  EmployeeRole    `json:"employee_role"`
	AudioPath     *string         `json:"audio_path,omitempty"`
	Transcription *string         `json:"transcription,omitempty"`
	Analysis      *string         `json:"analysis,omitempty"`
	Score         *int            `json:"score,omitempty"`
	Status        RecordingStatus `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty"`
}

// MarshalJSON renders the record ID as its key.
func (r Recording) MarshalJSON() ([]byte, error) {
	key, err := RecordKey(r.ID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(recordingJSON{
		ID: key,
		recordingFields: recordingFields{
			ClientID:      r.ClientID,
			EmployeeID:    r.EmployeeID,
			EmployeeRole:  r.EmployeeRole,
			AudioPath:     r.AudioPath,
			Transcription: r.Transcription,
			Analysis:      r.Analysis,
			Score:         r.Score,
			Status:        r.Status,
			CreatedAt:     r.CreatedAt,
			UpdatedAt:     r.UpdatedAt,
		},
	})
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (r *Recording) UnmarshalJSON(data []byte) error {
	var v recordingJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f := v.recordingFields
	*r = Recording{
		ID:            NewRecordingID(v.ID),
		ClientID:      f.ClientID,
		EmployeeID:    f.EmployeeID,
		EmployeeRole:  f.EmployeeRole,
		AudioPath:     f.AudioPath,
		Transcription: f.Transcription,
		Analysis:      f.Analysis,
		Score:         f.Score,
		Status:        f.Status,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
	return nil
}

// RecordingInput holds the fields needed to create a pending recording.
type RecordingInput struct {
	ID           string
	ClientID     string
	EmployeeID   string
	EmployeeRole EmployeeRole
	AudioPath    *string
}

// RecordingUpdate is a partial update. Nil fields are left untouched.
type RecordingUpdate struct {
	Status        *RecordingStatus
	Transcription *string
	Analysis      *string
	Score         *int
}

// Fields returns the non-nil fields keyed by column name.
func (u RecordingUpdate) Fields() map[string]any {
	fields := map[string]any{}
	if u.Status != nil {
		fields["status"] = string(*u.Status)
	}
	if u.Transcription != nil {
		fields["transcription"] = *u.Transcription
	}
	if u.Analysis != nil {
		fields["analysis"] = *u.Analysis
	}
	if u.Score != nil {
		fields["score"] = *u.Score
	}
	return fields
}

// RecordingFilter narrows a recording listing.
type RecordingFilter struct {
	Status     *RecordingStatus
	EmployeeID *string
	Limit      int
}

// Setting is an operator-editable key/value pair, e.g. an analysis prompt.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
