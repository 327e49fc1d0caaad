package domain

import (
	"errors"
	"fmt"
)

var (
	// Per-record feed problems: the record is skipped and counted as failed.
	ErrMalformedRecord = errors.New("malformed feed record")
	// A lab whose parent section cannot be found is dropped, not failed.
	ErrParentNotFound = errors.New("lab parent section not found")
	// A single catalog write failed; the rest of the batch continues.
	ErrPersistence = errors.New("catalog write failed")
	// The batch commit failed; nothing from the pass took effect.
	ErrCommitFailure = errors.New("catalog commit failed")
	// The upstream feed could not be read; treated as an empty pass.
	ErrFetchFailure = errors.New("feed fetch failed")
	// One email could not be delivered; the alert keeps its cooldown state.
	ErrDispatchFailure = errors.New("notification dispatch failed")

	ErrNotFound    = errors.New("not found")
	ErrAlertExists = errors.New("alert already exists for this course")
	ErrUserExists  = errors.New("user already exists")
)

// InternalError is an unexpected fault in a sync or notify pass, as opposed
// to the domain failures that passes report as counts.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string { return fmt.Sprintf("internal error in %s: %v", e.Op, e.Err) }
func (e *InternalError) Unwrap() error { return e.Err }
