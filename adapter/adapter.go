// Package adapter defines the notification boundary for finished runs.
//
// Adapters publish a run completion event to a downstream system. The CLI
// owns adapter lifecycle; users provide configuration only.
package adapter

import (
	"context"
	"fmt"
	"time"
)

// EventTypeRunCompleted is the event_type of every published event.
const EventTypeRunCompleted = "run_completed"

// RunCompletedEvent is the payload published when a run finishes.
type RunCompletedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"`
	RunID           string `json:"run_id"`
	Mode            string `json:"mode"`
	Dataset         string `json:"dataset"`
	Outcome         string `json:"outcome"`
	Accepted        int64  `json:"accepted"`
	Duplicates      int64  `json:"duplicates"`
	Frames          int64  `json:"frames"`
	StoragePath     string `json:"storage_path,omitempty"`
	Timestamp       string `json:"timestamp"` // RFC 3339, UTC
	DurationMs      int64  `json:"duration_ms"`
}

// Adapter publishes run completion events to a downstream system.
type Adapter interface {
	// Publish sends a run completion event. Must respect context
	// cancellation and deadlines.
	Publish(ctx context.Context, event *RunCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// BaseBackoff is the delay before the first retry. Each later retry
// doubles it.
const BaseBackoff = 500 * time.Millisecond

// Retrier runs an operation up to 1+Retries times with exponential backoff.
type Retrier struct {
	// Name prefixes returned errors.
	Name string
	// Retries is the number of retries after the first attempt.
	Retries int
	// Backoff is the delay before the first retry. Zero means BaseBackoff.
	Backoff time.Duration
	// Permanent, if set, reports errors that must not be retried.
	Permanent func(error) bool
}

// Do calls op until it succeeds, returns a permanent error, the attempts
// run out, or ctx ends.
func (r Retrier) Do(ctx context.Context, op func(context.Context) error) error {
	base := r.Backoff
	if base <= 0 {
		base = BaseBackoff
	}
	attempts := 1 + r.Retries

	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", r.Name, err)
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", r.Name, ctx.Err())
			case <-time.After(base << (i - 1)):
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if r.Permanent != nil && r.Permanent(lastErr) {
			return fmt.Errorf("%s: non-retriable error: %w", r.Name, lastErr)
		}
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", r.Name, attempts, lastErr)
}
