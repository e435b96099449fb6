package shard

import (
	"errors"
	"fmt"
)

// ErrResource is the sentinel matched by every ResourceError via errors.Is.
var ErrResource = errors.New("resource error")

// ResourceError reports a shard that is missing, unreadable or not
// decompressable. It is distinct from record.FormatError, which reports
// bad content inside a readable shard.
type ResourceError struct {
	// Shard is the shard index, or -1 when unknown.
	Shard int
	// Path is the shard file path, if the shard came from a file.
	Path string
	// Op is the failing operation: open, decompress or read.
	Op string
	// Err is the underlying error.
	Err error
}

func (e *ResourceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("shard %d (%s): %s: %v", e.Shard, e.Path, e.Op, e.Err)
	}
	return fmt.Sprintf("shard %d: %s: %v", e.Shard, e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Is makes every ResourceError match ErrResource.
func (e *ResourceError) Is(target error) bool {
	return target == ErrResource
}

// IsResourceError reports whether err is or wraps a ResourceError.
func IsResourceError(err error) bool {
	return errors.Is(err, ErrResource)
}
