// Package metrics provides per-run metrics collection.
//
// The Collector accumulates counters during a single reconstruction run.
// It is a leaf package with no internal dependencies. Per-record counters
// are kept by the engine on its own goroutine and absorbed once at run
// completion rather than recorded live, keeping the mutex off the hot path.
package metrics

import "sync"

// ReplayCounts are the per-record counters produced by the engine.
type ReplayCounts struct {
	Lines         int64
	Accepted      int64
	RectsSkipped  int64
	OutOfBounds   int64
	AgentFiltered int64
	Duplicates    int64
	Frames        int64
	Regressions   int64
}

// Snapshot is an immutable point-in-time view of all run metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Run lifecycle
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64

	// Replay (absorbed from the engine at run completion)
	LinesRead       int64
	RecordsAccepted int64
	RectsSkipped    int64
	OutOfBounds     int64
	AgentFiltered   int64
	Duplicates      int64
	Regressions     int64

	// Dataset
	ShardsProcessed  int64
	OrderingWarnings int64

	// Artifacts
	FramesEmitted        int64
	ArtifactWriteSuccess int64
	ArtifactWriteFailure int64

	// Dimensions (informational, set at construction)
	Mode           string
	Dataset        string
	StorageBackend string
	RunID          string
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	runsStarted   int64
	runsCompleted int64
	runsFailed    int64

	replay ReplayCounts

	shardsProcessed  int64
	orderingWarnings int64

	artifactWriteSuccess int64
	artifactWriteFailure int64

	mode           string
	dataset        string
	storageBackend string
	runID          string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(mode, dataset, storageBackend, runID string) *Collector {
	return &Collector{
		mode:           mode,
		dataset:        dataset,
		storageBackend: storageBackend,
		runID:          runID,
	}
}

func (c *Collector) add(field *int64, n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// IncRunStarted records a run start.
func (c *Collector) IncRunStarted() {
	if c != nil {
		c.add(&c.runsStarted, 1)
	}
}

// IncRunCompleted records a run that replayed every shard.
func (c *Collector) IncRunCompleted() {
	if c != nil {
		c.add(&c.runsCompleted, 1)
	}
}

// IncRunFailed records a run aborted by an error or cancellation.
func (c *Collector) IncRunFailed() {
	if c != nil {
		c.add(&c.runsFailed, 1)
	}
}

// IncShardsProcessed records a fully replayed shard.
func (c *Collector) IncShardsProcessed() {
	if c != nil {
		c.add(&c.shardsProcessed, 1)
	}
}

// AddOrderingWarnings records overlaps found while resolving shard order.
func (c *Collector) AddOrderingWarnings(n int) {
	if c != nil {
		c.add(&c.orderingWarnings, int64(n))
	}
}

// IncArtifactWriteSuccess records a stored artifact (per file).
func (c *Collector) IncArtifactWriteSuccess() {
	if c != nil {
		c.add(&c.artifactWriteSuccess, 1)
	}
}

// IncArtifactWriteFailure records a failed artifact write (per file).
func (c *Collector) IncArtifactWriteFailure() {
	if c != nil {
		c.add(&c.artifactWriteFailure, 1)
	}
}

// AbsorbReplay copies the engine's counters into the collector. Called
// once after the replay ends, whether or not it succeeded.
func (c *Collector) AbsorbReplay(counts ReplayCounts) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.replay = counts
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		RunsStarted:          c.runsStarted,
		RunsCompleted:        c.runsCompleted,
		RunsFailed:           c.runsFailed,
		LinesRead:            c.replay.Lines,
		RecordsAccepted:      c.replay.Accepted,
		RectsSkipped:         c.replay.RectsSkipped,
		OutOfBounds:          c.replay.OutOfBounds,
		AgentFiltered:        c.replay.AgentFiltered,
		Duplicates:           c.replay.Duplicates,
		Regressions:          c.replay.Regressions,
		ShardsProcessed:      c.shardsProcessed,
		OrderingWarnings:     c.orderingWarnings,
		FramesEmitted:        c.replay.Frames,
		ArtifactWriteSuccess: c.artifactWriteSuccess,
		ArtifactWriteFailure: c.artifactWriteFailure,
		Mode:                 c.mode,
		Dataset:              c.dataset,
		StorageBackend:       c.storageBackend,
		RunID:                c.runID,
	}
}
