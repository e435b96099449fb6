// Package types defines core domain types shared across the placeback packages.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
)

// Mode selects what a reconstruction run produces.
type Mode string

const (
	// ModeTimelapse rasterizes a bounded window and emits cadence frames.
	ModeTimelapse Mode = "timelapse"
	// ModeCount counts records that fall inside the bounds.
	ModeCount Mode = "count"
	// ModePrint prints every in-bounds record.
	ModePrint Mode = "print"
	// ModeAgent rasterizes only one agent's placements and tracks overwrites.
	ModeAgent Mode = "agent"
	// ModeFind prints every record placed by one agent, rects included.
	ModeFind Mode = "find"
)

// Modes lists every supported mode in display order.
var Modes = []Mode{ModeTimelapse, ModeCount, ModePrint, ModeAgent, ModeFind}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Rasterizes reports whether the mode owns a canvas.
func (m Mode) Rasterizes() bool {
	return m == ModeTimelapse || m == ModeAgent
}

// UsesBounds reports whether the mode applies the spatial filter.
func (m Mode) UsesBounds() bool {
	return m != ModeFind
}

// RequiresAgent reports whether the mode needs an agent id.
func (m Mode) RequiresAgent() bool {
	return m == ModeAgent || m == ModeFind
}

// RunMeta identifies a single reconstruction run.
type RunMeta struct {
	// RunID is the run identifier. Must be unique per run.
	RunID string
	// Mode is the reconstruction mode.
	Mode Mode
	// Dataset names the shard dataset being replayed.
	Dataset string
}

// Validate checks that run identity is complete.
func (r *RunMeta) Validate() error {
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return err
	}
	if r.Dataset == "" {
		return errors.New("dataset must be non-empty")
	}
	return nil
}

// OutcomeStatus is the final classification of a run.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates every shard was replayed.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeFormatError indicates a malformed record aborted the run.
	OutcomeFormatError OutcomeStatus = "format_error"
	// OutcomeResourceError indicates a shard could not be opened or decompressed.
	OutcomeResourceError OutcomeStatus = "resource_error"
	// OutcomeSinkError indicates an artifact could not be written.
	OutcomeSinkError OutcomeStatus = "sink_error"
	// OutcomeCanceled indicates the run was canceled.
	OutcomeCanceled OutcomeStatus = "canceled"
)

// RunOutcome is the final outcome of a run.
type RunOutcome struct {
	// Status is the outcome classification.
	Status OutcomeStatus
	// Message is a human-readable description.
	Message string
}
