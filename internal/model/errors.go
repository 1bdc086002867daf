package model

import (
	"fmt"
	"time"
)

// ValidationError reports a bad FetchRequest. It is returned before a
// session transitions to Running, so it never leaves partial state behind.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SourceFetchError wraps a failed page fetch so retry logic can inspect the
// HTTP status and the orchestrator can record which source failed.
type SourceFetchError struct {
	Source     Source
	StatusCode int           // zero for transport-level failures
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *SourceFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch: HTTP %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s fetch: %v", e.Source, e.Err)
}

func (e *SourceFetchError) Unwrap() error {
	return e.Err
}

// ClassificationError reports a per-posting backend or parse failure.
// The posting stays unclassified and is retried on the next batch run.
type ClassificationError struct {
	PostingID string
	Err       error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify posting %s: %v", e.PostingID, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// StoreIntegrityError reports a dedup or atomicity violation in the record
// store. It is fatal to the current operation.
type StoreIntegrityError struct {
	Op  string
	Err error
}

func (e *StoreIntegrityError) Error() string {
	return fmt.Sprintf("store integrity (%s): %v", e.Op, e.Err)
}

func (e *StoreIntegrityError) Unwrap() error {
	return e.Err
}
