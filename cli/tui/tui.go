package tui

import (
	"fmt"
	"slices"
)

// View types with a TUI rendering.
const (
	ViewStatsRuns   = "stats_runs"
	ViewStatsLatest = "stats_latest"
)

// Run starts the TUI for viewType. It fails for views without one.
func Run(viewType string, data any) error {
	if !IsTUISupported(viewType) {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
	return RunStatsTUI(viewType, data)
}

// IsTUISupported reports whether viewType has a TUI rendering. Only the
// read-only stats views do.
func IsTUISupported(viewType string) bool {
	return slices.Contains(SupportedTUIViews(), viewType)
}

// SupportedTUIViews returns the view types that support TUI.
func SupportedTUIViews() []string {
	return []string{ViewStatsRuns, ViewStatsLatest}
}
