package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pithecene-io/placeback/artifact"
	"github.com/pithecene-io/placeback/lode"
	"github.com/pithecene-io/placeback/log"
	"github.com/pithecene-io/placeback/metrics"
	"github.com/pithecene-io/placeback/order"
	"github.com/pithecene-io/placeback/shard"
	"github.com/pithecene-io/placeback/source"
	"github.com/pithecene-io/placeback/types"
)

// SummaryWriter persists the run summary record.
type SummaryWriter interface {
	WriteSummary(ctx context.Context, summary lode.RunSummary) error
}

// RunConfig configures a single reconstruction run.
type RunConfig struct {
	// RunMeta is the run identity.
	RunMeta *types.RunMeta
	// Dataset locates the shards.
	Dataset shard.Dataset
	// Table is the global replay order. Must be a permutation of the shard indices.
	Table order.Table
	// Engine configures the reconstruction. Its Mode must match RunMeta.Mode.
	Engine EngineConfig
	// Writer receives raster artifacts. Required when the mode rasterizes.
	Writer artifact.Writer
	// Out receives printed records. Defaults to io.Discard.
	Out io.Writer
	// Prefetch is the number of shards decoded ahead of the replay.
	// Zero reads shards serially.
	Prefetch int
	// Summary, if set, receives the run summary after the replay (best effort).
	Summary SummaryWriter
	// Opener overrides how shards are opened. Defaults to Dataset.Open.
	Opener source.Opener
	// Collector accumulates run metrics. May be nil.
	Collector *metrics.Collector
}

// RunResult is the final result of a run.
type RunResult struct {
	// RunMeta is the run identity.
	RunMeta *types.RunMeta
	// Outcome is the final classification.
	Outcome *types.RunOutcome
	// StartedAt is when Execute began.
	StartedAt time.Time
	// Duration is the wall time of the replay.
	Duration time.Duration
	// Counts are the replay counters at the time the run ended.
	Counts metrics.ReplayCounts
	// Shards is the number of shards fully replayed.
	Shards int64
	// Err is the replay error, nil on success.
	Err error
}

// RunOrchestrator wires the ordered source to the engine for one run.
type RunOrchestrator struct {
	config    *RunConfig
	logger    *log.Logger
	startTime time.Time
}

// NewRunOrchestrator creates a new run orchestrator.
func NewRunOrchestrator(config *RunConfig) (*RunOrchestrator, error) {
	if config.RunMeta == nil {
		return nil, errors.New("run meta is required")
	}
	if err := config.RunMeta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run meta: %w", err)
	}
	if config.Engine.Mode != config.RunMeta.Mode {
		return nil, fmt.Errorf("engine mode %s does not match run mode %s", config.Engine.Mode, config.RunMeta.Mode)
	}
	if config.Opener == nil {
		if err := config.Dataset.Validate(); err != nil {
			return nil, fmt.Errorf("invalid dataset: %w", err)
		}
		config.Opener = config.Dataset.Open
	}
	if err := config.Table.Validate(len(config.Table)); err != nil {
		return nil, fmt.Errorf("invalid order table: %w", err)
	}
	if config.Dataset.Count > 0 && len(config.Table) != config.Dataset.Count {
		return nil, fmt.Errorf("order table has %d entries, dataset has %d shards", len(config.Table), config.Dataset.Count)
	}
	if config.Prefetch < 0 {
		return nil, fmt.Errorf("prefetch must be >= 0, got %d", config.Prefetch)
	}

	return &RunOrchestrator{
		config: config,
		logger: log.NewLogger(config.RunMeta),
	}, nil
}

// WithLogger replaces the orchestrator's logger.
func (r *RunOrchestrator) WithLogger(logger *log.Logger) *RunOrchestrator {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Execute replays the dataset and returns the result. The returned error is
// reserved for setup failures; replay failures are reported in the outcome.
func (r *RunOrchestrator) Execute(ctx context.Context) (*RunResult, error) {
	r.startTime = time.Now()
	collector := r.config.Collector
	collector.IncRunStarted()

	var writer artifact.Writer
	if r.config.Writer != nil {
		writer = artifact.NewInstrumentedWriter(r.config.Writer, collector)
	}

	engine, err := NewEngine(r.config.Engine, writer, r.config.Out, r.logger)
	if err != nil {
		collector.IncRunFailed()
		return nil, err
	}

	var shards int64
	src := source.NewOrdered(r.config.Table, r.config.Opener, source.Options{
		Prefetch: r.config.Prefetch,
		OnShardDone: func(index int, lines int64) {
			shards++
			collector.IncShardsProcessed()
			r.logger.Info("shard complete", map[string]any{
				"shard": index,
				"lines": lines,
			})
		},
	})

	r.logger.Info("run started", map[string]any{
		"shards":   len(r.config.Table),
		"prefetch": r.config.Prefetch,
	})

	runErr := engine.Run(ctx, src)
	counts := engine.Counts()
	collector.AbsorbReplay(counts)

	outcome := DetermineOutcome(runErr)
	if runErr != nil {
		collector.IncRunFailed()
		r.logger.Error("run failed", map[string]any{
			"outcome": outcome.Status,
			"error":   runErr.Error(),
		})
	} else {
		collector.IncRunCompleted()
	}

	result := &RunResult{
		RunMeta:   r.config.RunMeta,
		Outcome:   outcome,
		StartedAt: r.startTime,
		Duration:  time.Since(r.startTime),
		Counts:    counts,
		Shards:    shards,
		Err:       runErr,
	}

	r.logger.Info("run completed", map[string]any{
		"outcome":    outcome.Status,
		"accepted":   counts.Accepted,
		"frames":     counts.Frames,
		"duplicates": counts.Duplicates,
		"duration":   result.Duration.String(),
	})

	r.writeSummary(ctx, result)
	return result, nil
}

// writeSummary persists the summary record. Failures are logged and do not
// change the outcome.
func (r *RunOrchestrator) writeSummary(ctx context.Context, result *RunResult) {
	if r.config.Summary == nil {
		return
	}
	// The replay may have been canceled; the summary still records it.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := r.config.Summary.WriteSummary(writeCtx, BuildSummary(result, r.config.Dataset.Count)); err != nil {
		r.logger.Warn("summary write failed (best effort)", map[string]any{
			"error": err.Error(),
		})
	}
}

// BuildSummary converts a run result into its persisted summary record.
func BuildSummary(result *RunResult, shardCount int) lode.RunSummary {
	return lode.RunSummary{
		RunID:         result.RunMeta.RunID,
		Mode:          string(result.RunMeta.Mode),
		Dataset:       result.RunMeta.Dataset,
		Outcome:       string(result.Outcome.Status),
		Message:       result.Outcome.Message,
		ShardCount:    int64(shardCount),
		ShardsRead:    result.Shards,
		Lines:         result.Counts.Lines,
		Accepted:      result.Counts.Accepted,
		RectsSkipped:  result.Counts.RectsSkipped,
		OutOfBounds:   result.Counts.OutOfBounds,
		AgentFiltered: result.Counts.AgentFiltered,
		Duplicates:    result.Counts.Duplicates,
		Frames:        result.Counts.Frames,
		Regressions:   result.Counts.Regressions,
		DurationMs:    result.Duration.Milliseconds(),
		CompletedAt:   result.StartedAt.Add(result.Duration),
	}
}
