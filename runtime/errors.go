package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/pithecene-io/placeback/record"
	"github.com/pithecene-io/placeback/shard"
)

// RunErrorKind classifies run errors for outcome determination.
type RunErrorKind int

const (
	// RunErrorFormat indicates a malformed record or shard content.
	RunErrorFormat RunErrorKind = iota
	// RunErrorResource indicates a missing or undecompressable shard.
	RunErrorResource
	// RunErrorSink indicates an artifact could not be stored.
	RunErrorSink
	// RunErrorCanceled indicates context cancellation.
	RunErrorCanceled
	// RunErrorInternal covers anything else, such as engine misuse.
	RunErrorInternal
)

func (k RunErrorKind) String() string {
	switch k {
	case RunErrorFormat:
		return "format"
	case RunErrorResource:
		return "resource"
	case RunErrorSink:
		return "sink"
	case RunErrorCanceled:
		return "canceled"
	default:
		return "internal"
	}
}

// RunError is a classified replay error.
type RunError struct {
	// Kind is the error classification.
	Kind RunErrorKind
	// Err is the underlying error.
	Err error
}

func (e *RunError) Error() string {
	return e.Err.Error()
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// SinkError reports an artifact that could not be stored.
type SinkError struct {
	// Filename is the artifact name.
	Filename string
	// Err is the underlying writer error.
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("failed to store artifact %s: %v", e.Filename, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Classify wraps err in a RunError. A nil err returns nil and an existing
// RunError is returned as is.
func Classify(err error) *RunError {
	if err == nil {
		return nil
	}
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr
	}

	var sinkErr *SinkError
	switch {
	case errors.As(err, &sinkErr):
		return &RunError{Kind: RunErrorSink, Err: err}
	case record.IsFormatError(err):
		return &RunError{Kind: RunErrorFormat, Err: err}
	case shard.IsResourceError(err):
		return &RunError{Kind: RunErrorResource, Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &RunError{Kind: RunErrorCanceled, Err: err}
	default:
		return &RunError{Kind: RunErrorInternal, Err: err}
	}
}

func isKind(err error, kind RunErrorKind) bool {
	c := Classify(err)
	return c != nil && c.Kind == kind
}

// IsFormatError returns true if the run failed on malformed input.
func IsFormatError(err error) bool { return isKind(err, RunErrorFormat) }

// IsResourceError returns true if the run failed to read a shard.
func IsResourceError(err error) bool { return isKind(err, RunErrorResource) }

// IsSinkError returns true if the run failed to store an artifact.
func IsSinkError(err error) bool { return isKind(err, RunErrorSink) }

// IsCanceledError returns true if the run was canceled.
func IsCanceledError(err error) bool { return isKind(err, RunErrorCanceled) }
