package content

import "strings"

// Status tells callers whether a value is exactly what upstream returned.
type Status int

const (
	StatusOK Status = iota
	// StatusDegraded: a usable value built with at least one fallback.
	StatusDegraded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDegraded:
		return "degraded"
	default:
		return "failed"
	}
}

// Result carries a value together with how it was obtained.
type Result[T any] struct {
	Value   T
	Status  Status
	Reasons []string
	Err     error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusOK}
}

func Degraded[T any](v T, reasons ...string) Result[T] {
	return Result[T]{Value: v, Status: StatusDegraded, Reasons: reasons}
}

func Failed[T any](err error) Result[T] {
	return Result[T]{Status: StatusFailed, Err: err}
}

func (r Result[T]) IsDegraded() bool { return r.Status == StatusDegraded }

// Unwrap returns the value, or the error for a failed result.
func (r Result[T]) Unwrap() (T, error) {
	if r.Status == StatusFailed {
		var zero T
		return zero, r.Err
	}
	return r.Value, nil
}

// Reason joins the degradation reasons for logs and headers.
func (r Result[T]) Reason() string {
	return strings.Join(r.Reasons, "; ")
}
