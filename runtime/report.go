package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pithecene-io/placeback/metrics"
	"github.com/pithecene-io/placeback/types"
)

// RunReport is the structured JSON report written by --report.
type RunReport struct {
	RunID      string              `json:"run_id"`
	Mode       types.Mode          `json:"mode"`
	Dataset    string              `json:"dataset"`
	Outcome    types.OutcomeStatus `json:"outcome"`
	Message    string              `json:"message"`
	ExitCode   int                 `json:"exit_code"`
	DurationMs int64               `json:"duration_ms"`
	Shards     int64               `json:"shards"`

	Replay  *ReportReplay     `json:"replay"`
	Metrics *metrics.Snapshot `json:"metrics"`
}

// ReportReplay holds replay counters in the report.
type ReportReplay struct {
	Lines         int64 `json:"lines"`
	Accepted      int64 `json:"accepted"`
	RectsSkipped  int64 `json:"rects_skipped"`
	OutOfBounds   int64 `json:"out_of_bounds"`
	AgentFiltered int64 `json:"agent_filtered"`
	Duplicates    int64 `json:"duplicates"`
	Frames        int64 `json:"frames"`
	Regressions   int64 `json:"regressions"`
}

// BuildRunReport composes a RunReport from a RunResult and metrics snapshot.
func BuildRunReport(result *RunResult, snap metrics.Snapshot) *RunReport {
	return &RunReport{
		RunID:      result.RunMeta.RunID,
		Mode:       result.RunMeta.Mode,
		Dataset:    result.RunMeta.Dataset,
		Outcome:    result.Outcome.Status,
		Message:    result.Outcome.Message,
		ExitCode:   ExitCode(result.Outcome.Status),
		DurationMs: result.Duration.Milliseconds(),
		Shards:     result.Shards,
		Replay: &ReportReplay{
			Lines:         result.Counts.Lines,
			Accepted:      result.Counts.Accepted,
			RectsSkipped:  result.Counts.RectsSkipped,
			OutOfBounds:   result.Counts.OutOfBounds,
			AgentFiltered: result.Counts.AgentFiltered,
			Duplicates:    result.Counts.Duplicates,
			Frames:        result.Counts.Frames,
			Regressions:   result.Counts.Regressions,
		},
		Metrics: &snap,
	}
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}
	if path == "-" {
		if err := writeRunReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

func writeRunReportTo(report *RunReport, w io.Writer) error {
	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func marshalReport(report *RunReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}
