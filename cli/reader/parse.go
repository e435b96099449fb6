package reader

import (
	"errors"

	"github.com/pithecene-io/placeback/lode"
)

// ParseSummaryRecord converts a stored summary record into a RunView.
// Numeric fields may arrive as int64 (direct writes) or float64 (JSON
// round-trips).
func ParseSummaryRecord(record map[string]any) (*RunView, error) {
	if record == nil {
		return nil, errors.New("nil record")
	}
	if kind, _ := record["record_kind"].(string); kind != lode.RecordKindSummary {
		return nil, errors.New("record is not a run summary")
	}
	return NewRunView(lode.ParseSummaryRecord(record))
}

// NewRunView builds a RunView and checks the fields every write populates.
// A missing value means the record is malformed.
func NewRunView(s lode.RunSummary) (*RunView, error) {
	switch {
	case s.RunID == "":
		return nil, errors.New("summary record missing required field: run_id")
	case s.Mode == "":
		return nil, errors.New("summary record missing required field: mode")
	case s.Outcome == "":
		return nil, errors.New("summary record missing required field: outcome")
	}
	return &RunView{
		RunID:         s.RunID,
		Mode:          s.Mode,
		Dataset:       s.Dataset,
		Outcome:       s.Outcome,
		Message:       s.Message,
		ShardCount:    s.ShardCount,
		ShardsRead:    s.ShardsRead,
		Lines:         s.Lines,
		Accepted:      s.Accepted,
		RectsSkipped:  s.RectsSkipped,
		OutOfBounds:   s.OutOfBounds,
		AgentFiltered: s.AgentFiltered,
		Duplicates:    s.Duplicates,
		Frames:        s.Frames,
		Regressions:   s.Regressions,
		DurationMs:    s.DurationMs,
		CompletedAt:   s.CompletedAt,
	}, nil
}

func listItem(v *RunView) RunListItem {
	return RunListItem{
		RunID:       v.RunID,
		Mode:        v.Mode,
		Outcome:     v.Outcome,
		Accepted:    v.Accepted,
		Frames:      v.Frames,
		DurationMs:  v.DurationMs,
		CompletedAt: v.CompletedAt,
	}
}

// Aggregate folds run views into RunStats.
func Aggregate(views []*RunView) *RunStats {
	stats := &RunStats{
		ByOutcome: make(map[string]int),
		ByMode:    make(map[string]int),
	}
	for _, v := range views {
		stats.Total++
		stats.ByOutcome[v.Outcome]++
		stats.ByMode[v.Mode]++
		stats.Accepted += v.Accepted
		stats.Frames += v.Frames
		switch v.Outcome {
		case "success":
			stats.Succeeded++
		case "canceled":
			stats.Canceled++
		default:
			stats.Failed++
		}
	}
	return stats
}
