// Package reader serves the read-only views behind placeback stats.
package reader

import (
	"context"
	"fmt"

	lodelibrary "github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/placeback/lode"
)

// Filter narrows which stored runs a query sees. Empty fields match all.
type Filter = lode.SummaryFilter

// Reader abstracts read-only access to stored run summaries.
type Reader interface {
	// LatestRun returns the most recent run matching filter.
	LatestRun(ctx context.Context, filter Filter) (*RunView, error)
	// ListRuns returns matching runs, most recent first.
	ListRuns(ctx context.Context, filter Filter) ([]RunListItem, error)
	// Stats aggregates every matching run.
	Stats(ctx context.Context, filter Filter) (*RunStats, error)
}

// LodeReader reads summaries from a Lode dataset.
type LodeReader struct {
	ds lodelibrary.Dataset
}

var _ Reader = (*LodeReader)(nil)

// NewLodeReader creates a reader over ds.
func NewLodeReader(ds lodelibrary.Dataset) *LodeReader {
	return &LodeReader{ds: ds}
}

// LatestRun implements Reader. It returns lode.ErrNoSummaryFound when no
// run matches.
func (r *LodeReader) LatestRun(ctx context.Context, filter Filter) (*RunView, error) {
	s, err := lode.QueryLatestSummary(ctx, r.ds, filter)
	if err != nil {
		return nil, err
	}
	return NewRunView(s)
}

// ListRuns implements Reader.
func (r *LodeReader) ListRuns(ctx context.Context, filter Filter) ([]RunListItem, error) {
	views, err := r.views(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]RunListItem, 0, len(views))
	for i := len(views) - 1; i >= 0; i-- {
		items = append(items, listItem(views[i]))
	}
	return items, nil
}

// Stats implements Reader.
func (r *LodeReader) Stats(ctx context.Context, filter Filter) (*RunStats, error) {
	views, err := r.views(ctx, filter)
	if err != nil {
		return nil, err
	}
	return Aggregate(views), nil
}

func (r *LodeReader) views(ctx context.Context, filter Filter) ([]*RunView, error) {
	summaries, err := lode.ListSummaries(ctx, r.ds, filter)
	if err != nil {
		return nil, err
	}
	views := make([]*RunView, 0, len(summaries))
	for _, s := range summaries {
		v, err := NewRunView(s)
		if err != nil {
			return nil, fmt.Errorf("run summary %q: %w", s.RunID, err)
		}
		views = append(views, v)
	}
	return views, nil
}
