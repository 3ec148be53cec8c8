package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyQuery is returned when a question is blank.
var ErrEmptyQuery = errors.New("query is empty")

// NotFoundError reports a missing corpus source.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("corpus not found: %s: %v", e.Path, e.Err)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// LoadError reports a snapshot that exists but cannot be restored.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load snapshot %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// WriteError reports a snapshot that could not be persisted.
// The index it describes is still usable in memory.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write snapshot %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ProviderError reports a failed embedding or language model request.
type ProviderError struct {
	Provider string
	Op       string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s %s failed after %d attempts: %v", e.Provider, e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
