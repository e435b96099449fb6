package reader

import "time"

// RunView is the detailed view of one stored run summary.
type RunView struct {
	RunID   string `json:"run_id" yaml:"run_id"`
	Mode    string `json:"mode" yaml:"mode"`
	Dataset string `json:"dataset" yaml:"dataset"`
	Outcome string `json:"outcome" yaml:"outcome"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	ShardCount int64 `json:"shard_count" yaml:"shard_count"`
	ShardsRead int64 `json:"shards_read" yaml:"shards_read"`

	Lines         int64 `json:"lines" yaml:"lines"`
	Accepted      int64 `json:"accepted" yaml:"accepted"`
	RectsSkipped  int64 `json:"rects_skipped" yaml:"rects_skipped"`
	OutOfBounds   int64 `json:"out_of_bounds" yaml:"out_of_bounds"`
	AgentFiltered int64 `json:"agent_filtered" yaml:"agent_filtered"`
	Duplicates    int64 `json:"duplicates" yaml:"duplicates"`
	Frames        int64 `json:"frames" yaml:"frames"`
	Regressions   int64 `json:"regressions" yaml:"regressions"`

	DurationMs  int64     `json:"duration_ms" yaml:"duration_ms"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
}

// Succeeded reports whether the run replayed every shard.
func (v *RunView) Succeeded() bool { return v.Outcome == "success" }

// RunListItem is one row of the run listing.
type RunListItem struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	Mode        string    `json:"mode" yaml:"mode"`
	Outcome     string    `json:"outcome" yaml:"outcome"`
	Accepted    int64     `json:"accepted" yaml:"accepted"`
	Frames      int64     `json:"frames" yaml:"frames"`
	DurationMs  int64     `json:"duration_ms" yaml:"duration_ms"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
}

// RunStats aggregates stored run summaries.
type RunStats struct {
	Total     int `json:"total" yaml:"total"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
	Canceled  int `json:"canceled" yaml:"canceled"`

	Accepted int64 `json:"accepted" yaml:"accepted"`
	Frames   int64 `json:"frames" yaml:"frames"`

	// ByOutcome counts runs per outcome status.
	ByOutcome map[string]int `json:"by_outcome" yaml:"by_outcome"`
	// ByMode counts runs per reconstruction mode.
	ByMode map[string]int `json:"by_mode" yaml:"by_mode"`
}
