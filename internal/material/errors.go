package material

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: the material row does not exist.
	ErrNotFound = errors.New("material not found")

	// ErrAlreadyClaimed: another worker already moved the material out
	// of pending. The losing worker skips the job.
	ErrAlreadyClaimed = errors.New("material already claimed for processing")
)

// DownloadError wraps a storage failure. Always treated as transient.
type DownloadError struct {
	Path string
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.Path, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// UpdateError wraps a persistence failure inside the processing
// pipeline. Fatal for the current attempt.
type UpdateError struct {
	MaterialID string
	Field      string
	Err        error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("update material %s (%s): %v", e.MaterialID, e.Field, e.Err)
}

func (e *UpdateError) Unwrap() error { return e.Err }
