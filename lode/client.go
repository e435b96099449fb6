// Package lode persists run output through Lode.
//
// Raster artifacts are written as plain files under the run's
// Hive-partitioned files/ prefix. The run summary is written as a JSONL
// record through a Lode Dataset so it can be queried by mode and run id.
package lode

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/placeback/artifact"
)

// DefaultDataset is the Lode dataset ID used when none is configured.
const DefaultDataset = "placeback"

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"mode", "day", "run_id", "record_kind"}

// DeriveDay computes the partition day from run start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// Config holds the partition identity of one run.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
	// Mode is the reconstruction mode partition key.
	Mode string
	// Day is the partition key derived from run start time (YYYY-MM-DD UTC).
	Day string
	// RunID is the partition key for run identifier.
	RunID string
}

// Validate checks that every partition key is set.
func (c Config) Validate() error {
	switch {
	case c.Dataset == "":
		return fmt.Errorf("lode dataset is required")
	case c.Mode == "":
		return fmt.Errorf("lode mode partition is required")
	case c.Day == "":
		return fmt.Errorf("lode day partition is required")
	case c.RunID == "":
		return fmt.Errorf("lode run_id partition is required")
	}
	return nil
}

// LodeClient writes one run's artifacts and summary.
type LodeClient struct {
	dataset lode.Dataset
	config  Config

	storeFactory lode.StoreFactory
	storeOnce    sync.Once
	store        lode.Store
	storeErr     error
}

// NewLodeClient creates a client with filesystem storage rooted at root.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates a client with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ds, err := newDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return newClient(ds, cfg, factory), nil
}

func newClient(ds lode.Dataset, cfg Config, factory lode.StoreFactory) *LodeClient {
	return &LodeClient{
		dataset:      ds,
		config:       cfg,
		storeFactory: factory,
	}
}

func newDataset(id string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(id),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// Config returns the client's partition identity.
func (c *LodeClient) Config() Config { return c.config }

// PutFile writes an artifact under the run's files/ prefix.
func (c *LodeClient) PutFile(ctx context.Context, filename, _ string, data []byte) error {
	if err := artifact.ValidateFilename(filename); err != nil {
		return err
	}
	store, err := c.getOrCreateStore()
	if err != nil {
		return WrapInitError(err, c.config.Dataset)
	}

	path := c.FilePath(filename)
	return WrapWriteError(store.Put(ctx, path, bytes.NewReader(data)), path)
}

// WriteSummary writes the run summary record.
func (c *LodeClient) WriteSummary(ctx context.Context, summary RunSummary) error {
	record := toSummaryRecordMap(summary, c.config)
	if _, err := c.dataset.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.FilesPrefix())
	}
	return nil
}

// Close releases client resources.
func (c *LodeClient) Close() error {
	return nil
}

func (c *LodeClient) getOrCreateStore() (lode.Store, error) {
	c.storeOnce.Do(func() {
		c.store, c.storeErr = c.storeFactory()
	})
	return c.store, c.storeErr
}

// FilesPrefix returns the run's artifact prefix.
func (c *LodeClient) FilesPrefix() string {
	return FilesPrefix(c.config)
}

// FilesPrefix returns the artifact prefix of the run cfg identifies:
// datasets/<dataset>/partitions/mode=<m>/day=<d>/run_id=<r>/files
func FilesPrefix(cfg Config) string {
	return fmt.Sprintf("datasets/%s/partitions/mode=%s/day=%s/run_id=%s/files",
		cfg.Dataset,
		cfg.Mode,
		cfg.Day,
		cfg.RunID,
	)
}

// FilePath returns the storage path of one artifact.
func (c *LodeClient) FilePath(filename string) string {
	return c.FilesPrefix() + "/" + filename
}

var _ artifact.Writer = (*LodeClient)(nil)
