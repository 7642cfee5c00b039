package rag

import "fmt"

// WriteError reports a failed index write. Ingestion surfaces it so callers
// can distinguish storage failures from extraction or embedding failures.
type WriteError struct {
	// Collection is the collection the write targeted.
	Collection string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("index write to collection %q failed: %v", e.Collection, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *WriteError) Unwrap() error { return e.Err }
