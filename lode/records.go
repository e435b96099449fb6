package lode

import (
	"time"
)

// RecordKindSummary is the record_kind of run summary records.
const RecordKindSummary = "summary"

// RunSummary is the persisted outcome of one run.
type RunSummary struct {
	RunID   string
	Mode    string
	Dataset string
	Outcome string
	Message string

	ShardCount int64
	ShardsRead int64

	Lines         int64
	Accepted      int64
	RectsSkipped  int64
	OutOfBounds   int64
	AgentFiltered int64
	Duplicates    int64
	Frames        int64
	Regressions   int64

	DurationMs  int64
	CompletedAt time.Time
}

// toSummaryRecordMap converts a summary to its JSONL record. Partition keys
// come from cfg so the record lands beside the run's files.
func toSummaryRecordMap(s RunSummary, cfg Config) map[string]any {
	return map[string]any{
		"record_kind":    RecordKindSummary,
		"run_id":         cfg.RunID,
		"mode":           cfg.Mode,
		"day":            cfg.Day,
		"dataset":        s.Dataset,
		"outcome":        s.Outcome,
		"message":        s.Message,
		"shard_count":    s.ShardCount,
		"shards_read":    s.ShardsRead,
		"lines":          s.Lines,
		"accepted":       s.Accepted,
		"rects_skipped":  s.RectsSkipped,
		"out_of_bounds":  s.OutOfBounds,
		"agent_filtered": s.AgentFiltered,
		"duplicates":     s.Duplicates,
		"frames":         s.Frames,
		"regressions":    s.Regressions,
		"duration_ms":    s.DurationMs,
		"completed_at":   s.CompletedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ParseSummaryRecord converts a raw summary record back into a RunSummary.
// Numeric fields may decode as float64 or int64 depending on the codec.
func ParseSummaryRecord(record map[string]any) RunSummary {
	s := RunSummary{
		RunID:         toString(record["run_id"]),
		Mode:          toString(record["mode"]),
		Dataset:       toString(record["dataset"]),
		Outcome:       toString(record["outcome"]),
		Message:       toString(record["message"]),
		ShardCount:    toInt64(record["shard_count"]),
		ShardsRead:    toInt64(record["shards_read"]),
		Lines:         toInt64(record["lines"]),
		Accepted:      toInt64(record["accepted"]),
		RectsSkipped:  toInt64(record["rects_skipped"]),
		OutOfBounds:   toInt64(record["out_of_bounds"]),
		AgentFiltered: toInt64(record["agent_filtered"]),
		Duplicates:    toInt64(record["duplicates"]),
		Frames:        toInt64(record["frames"]),
		Regressions:   toInt64(record["regressions"]),
		DurationMs:    toInt64(record["duration_ms"]),
	}
	if ts, err := time.Parse(time.RFC3339Nano, toString(record["completed_at"])); err == nil {
		s.CompletedAt = ts
	}
	return s
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
