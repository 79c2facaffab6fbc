// Package models defines data structures for the Beethoven recording pipeline.
package models

import (
	"fmt"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RecordKey returns the string key of a SurrealDB record ID.
// Recording and setting IDs are always strings; anything else is an error.
func RecordKey(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("record %s: key is %T, want string", id.Table, id.ID)
	}
	return s, nil
}

// NewRecordingID builds the SurrealDB record ID for a recording key.
func NewRecordingID(key string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(TableRecording, key)
}
