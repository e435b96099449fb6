package lode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoSummaryFound is returned when no summary record matches a query.
var ErrNoSummaryFound = errors.New("no run summary found")

// NewReadDataset creates a Lode Dataset for reading summaries. It uses the
// same codec and layout as the write path.
func NewReadDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return newDataset(dataset, factory)
}

// NewReadDatasetFS creates a read Dataset with filesystem storage.
func NewReadDatasetFS(dataset, rootPath string) (lode.Dataset, error) {
	return NewReadDataset(dataset, lode.NewFSFactory(rootPath))
}

// NewReadDatasetS3 creates a read Dataset with S3 storage.
func NewReadDatasetS3(ctx context.Context, dataset string, s3cfg S3Config) (lode.Dataset, error) {
	factory, err := NewS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewReadDataset(dataset, factory)
}

// SummaryFilter narrows a summary query. Empty fields match anything.
type SummaryFilter struct {
	RunID string
	Mode  string
}

// QueryLatestSummary returns the most recent summary matching filter, or
// ErrNoSummaryFound.
func QueryLatestSummary(ctx context.Context, ds lode.Dataset, filter SummaryFilter) (RunSummary, error) {
	var found *RunSummary
	err := eachSummary(ctx, ds, filter, true, func(s RunSummary) bool {
		found = &s
		return false
	})
	if err != nil {
		return RunSummary{}, err
	}
	if found == nil {
		return RunSummary{}, ErrNoSummaryFound
	}
	return *found, nil
}

// ListSummaries returns every summary matching filter, oldest first.
func ListSummaries(ctx context.Context, ds lode.Dataset, filter SummaryFilter) ([]RunSummary, error) {
	var out []RunSummary
	err := eachSummary(ctx, ds, filter, false, func(s RunSummary) bool {
		out = append(out, s)
		return true
	})
	return out, err
}

// eachSummary visits matching summaries in snapshot order, or reverse
// snapshot order when latestFirst is set, until fn returns false.
func eachSummary(ctx context.Context, ds lode.Dataset, filter SummaryFilter, latestFirst bool, fn func(RunSummary) bool) error {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return WrapReadError(err, "placeback/snapshots")
	}

	for n := range snapshots {
		i := n
		if latestFirst {
			i = len(snapshots) - 1 - n
		}
		snap := snapshots[i]

		// Manifest paths are a coarse pre-filter; record fields decide.
		if !snapshotMatchesFilter(snap, "record_kind", RecordKindSummary) ||
			!snapshotMatchesFilter(snap, "run_id", filter.RunID) ||
			!snapshotMatchesFilter(snap, "mode", filter.Mode) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return WrapReadError(err, fmt.Sprintf("placeback/snapshot/%s", snap.ID))
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != RecordKindSummary {
				continue
			}
			if filter.RunID != "" && toString(record["run_id"]) != filter.RunID {
				continue
			}
			if filter.Mode != "" && toString(record["mode"]) != filter.Mode {
				continue
			}
			if !fn(ParseSummaryRecord(record)) {
				return nil
			}
		}
	}
	return nil
}

// snapshotMatchesFilter checks if any of a snapshot's file paths carry the
// given partition key=value.
func snapshotMatchesFilter(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks for an exact key=value path segment, so
// run_id=run-1 does not match run_id=run-10.
func matchesPartitionValue(path, key, value string) bool {
	segment := key + "=" + value
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
