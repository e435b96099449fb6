package record

import (
	"errors"
	"fmt"
)

// ErrFormat is the sentinel matched by every FormatError via errors.Is.
var ErrFormat = errors.New("format error")

// maxErrorText bounds the copy of the offending line kept in a FormatError.
const maxErrorText = 120

// FormatError reports a record that does not match the expected layout.
// Shard and Line are filled in by the stream that produced the record;
// Shard is -1 and Line is 0 when the position is unknown.
type FormatError struct {
	// Shard is the shard index the line came from.
	Shard int
	// Line is the 1-based line number within the shard, after the header.
	Line int64
	// Reason describes what is wrong with the line.
	Reason string
	// Text is a truncated copy of the offending line.
	Text string
}

func newFormatError(line []byte, format string, args ...any) *FormatError {
	text := line
	if len(text) > maxErrorText {
		text = text[:maxErrorText]
	}
	return &FormatError{
		Shard:  -1,
		Reason: fmt.Sprintf(format, args...),
		Text:   string(text),
	}
}

func (e *FormatError) Error() string {
	if e.Shard < 0 {
		return fmt.Sprintf("malformed record: %s: %q", e.Reason, e.Text)
	}
	return fmt.Sprintf("malformed record at shard %d line %d: %s: %q", e.Shard, e.Line, e.Reason, e.Text)
}

// Is makes every FormatError match ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// At records the stream position of the error and returns it.
func (e *FormatError) At(shard int, line int64) *FormatError {
	e.Shard = shard
	e.Line = line
	return e
}

// IsFormatError reports whether err is or wraps a FormatError.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrFormat)
}

// Locate attaches a stream position to err when it is a FormatError
// without one. Other errors are returned unchanged.
func Locate(err error, shard int, line int64) error {
	var fe *FormatError
	if errors.As(err, &fe) && fe.Shard < 0 {
		fe.At(shard, line)
	}
	return err
}
