package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

var (
	// ErrEntityAlreadyExists means a record with the same ID is already stored.
	// SeedSettings relies on it to leave operator-edited settings alone.
	ErrEntityAlreadyExists = errors.New("record already exists")

	ErrTransactionConflict = errors.New("transaction conflict")

	// ErrNotFound means the requested recording or setting does not exist.
	ErrNotFound = errors.New("record not found")
)

// queryErrorKinds maps SurrealDB query error fragments to sentinels.
var queryErrorKinds = []struct {
	fragment string
	sentinel error
}{
	{"already exists", ErrEntityAlreadyExists},
	{"Transaction conflict", ErrTransactionConflict},
}

// wrapQueryError attaches a sentinel to known SurrealDB query errors so
// callers can use errors.Is. Other errors pass through unchanged.
func wrapQueryError(err error) error {
	var queryErr *surrealdb.QueryError
	if !errors.As(err, &queryErr) {
		return err
	}
	for _, k := range queryErrorKinds {
		if strings.Contains(queryErr.Message, k.fragment) {
			return fmt.Errorf("%w: %s", k.sentinel, queryErr.Message)
		}
	}
	return err
}
