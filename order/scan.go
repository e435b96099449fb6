package order

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pithecene-io/placeback/iox"
	"github.com/pithecene-io/placeback/record"
	"github.com/pithecene-io/placeback/shard"
)

// cancelCheckInterval is how many lines ScanShard reads between context checks.
const cancelCheckInterval = 1 << 16

// ScanShard returns the interval of one shard. Only the first and last
// lines are decoded; every other line is skipped unparsed.
func ScanShard(ctx context.Context, index int, lines shard.Lines) (Interval, error) {
	var (
		first    []byte
		last     []byte
		lineNo   int64
		haveLine bool
	)
	for lines.Next() {
		lineNo++
		if !haveLine {
			first = append(first[:0], lines.Line()...)
			haveLine = true
		}
		last = append(last[:0], lines.Line()...)
		if lineNo%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Interval{}, err
			}
		}
	}
	if err := lines.Err(); err != nil {
		return Interval{}, err
	}
	if !haveLine {
		return Interval{}, fmt.Errorf("shard %d: %w", index, ErrEmptyShard)
	}

	firstTime, err := lineTime(first)
	if err != nil {
		return Interval{}, record.Locate(err, index, 1)
	}
	lastTime, err := lineTime(last)
	if err != nil {
		return Interval{}, record.Locate(err, index, lineNo)
	}
	return Interval{Shard: index, First: firstTime, Last: lastTime}, nil
}

func lineTime(line []byte) (time.Time, error) {
	r, err := record.Parse(line)
	if err != nil {
		return time.Time{}, err
	}
	return r.Time()
}

// Scan reads the interval of every shard in ds, running at most parallel
// shard scans at once (unbounded when parallel <= 0). The result is
// indexed by shard.
func Scan(ctx context.Context, ds shard.Dataset, parallel int) ([]Interval, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	intervals := make([]Interval, ds.Count)
	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i := range ds.Count {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := ds.Open(i)
			if err != nil {
				return err
			}
			defer iox.DiscardClose(r)

			iv, err := ScanShard(gctx, i, r)
			if err != nil {
				return err
			}
			intervals[i] = iv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return intervals, nil
}
