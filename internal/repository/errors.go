package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by read paths when no row matches
var ErrNotFound = errors.New("not found")

// ErrForeignRow is wrapped in a WriteError when a batch holds a row whose
// season or season type differs from its ledger entry
var ErrForeignRow = errors.New("row outside source key space")

// WriteError reports a failed batch write. The batch was rolled back and the
// ledger was not updated.
type WriteError struct {
	SourceID string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write of %s rolled back: %v", e.SourceID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
