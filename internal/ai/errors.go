package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Operation names used in ProviderError.Op.
const (
	OpChat   = "chat"
	OpEmbed  = "embed"
	OpOCR    = "ocr"
	OpHealth = "health"
)

// ProviderError wraps every failure coming out of a Provider so callers
// can classify it without knowing which backend produced it.
// StatusCode is 0 for transport-level failures (dial errors, timeouts).
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline expiry.
func (e *ProviderError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// ServerSide reports whether the failure looks like a backend problem
// (connection failure or 5xx) rather than a bad request.
func (e *ProviderError) ServerSide() bool {
	if e.StatusCode >= 500 {
		return true
	}
	return e.StatusCode == 0 && !e.Timeout()
}

// ClientSide reports a 4xx-class failure: retrying the same input will
// not help.
func (e *ProviderError) ClientSide() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func wrapErr(provider, op string, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, StatusCode: status, Err: err}
}
