package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/eringen/notionpress/notion"
)

// ErrConfiguration reports that the API key or database id is missing.
// Every operation refuses to run until both are set.
var ErrConfiguration = errors.New("content: notion api key and database id are required")

// ErrorKind classifies failures by how callers should react to them.
type ErrorKind int

const (
	// KindConfiguration: the fetcher cannot work at all.
	KindConfiguration ErrorKind = iota + 1
	// KindTransient: the upstream call failed; a later call may succeed.
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is a classified failure of a fetcher operation.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("content: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("content: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrConfiguration) match configuration errors.
func (e *Error) Is(target error) bool {
	return target == ErrConfiguration && e.Kind == KindConfiguration
}

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsConfiguration reports whether err means the fetcher is misconfigured.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, notion.ErrMissingToken)
}

func transient(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsConfiguration(err) {
		return &Error{Kind: KindConfiguration, Op: op, Err: err}
	}
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// retryable decides whether an upstream failure is worth another attempt.
func retryable(err error) bool {
	if IsConfiguration(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *notion.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}
