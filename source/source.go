// Package source streams the lines of a dataset's shards in Order Table
// order as one chronological sequence.
//
// Decoding can run ahead: with Prefetch > 0 up to Prefetch upcoming shards
// are decompressed concurrently into bounded batch queues while the caller
// consumes the current one. Lines are always delivered serially and in
// global order; only decompression overlaps.
package source

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/pithecene-io/placeback/iox"
	"github.com/pithecene-io/placeback/order"
	"github.com/pithecene-io/placeback/shard"
)

// Defaults for Options.
const (
	DefaultBatchLines = 4096
	DefaultQueueDepth = 4
)

// Position identifies a line within the dataset.
type Position struct {
	// Shard is the shard index.
	Shard int
	// Line is the 1-based line number within the shard, header excluded.
	Line int64
}

// Opener opens a shard by index.
type Opener func(index int) (*shard.Reader, error)

// LineFunc receives each line. The slice is only valid during the call.
type LineFunc func(pos Position, line []byte) error

// ShardFunc is called after the last line of a shard has been delivered.
type ShardFunc func(index int, lines int64)

// Options tunes the stream.
type Options struct {
	// Prefetch is the number of shards decoded ahead of the consumer.
	// Zero decodes on the caller's goroutine.
	Prefetch int
	// BatchLines is the number of lines per prefetched batch.
	BatchLines int
	// QueueDepth is the number of batches buffered per prefetched shard.
	QueueDepth int
	// OnShardDone, if set, is called as each shard is exhausted.
	OnShardDone ShardFunc
}

// Ordered delivers the lines of every shard in table order.
type Ordered struct {
	table order.Table
	open  Opener
	opts  Options
}

// NewOrdered creates an ordered stream over table.
func NewOrdered(table order.Table, open Opener, opts Options) *Ordered {
	if opts.BatchLines <= 0 {
		opts.BatchLines = DefaultBatchLines
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = DefaultQueueDepth
	}
	return &Ordered{table: table, open: open, opts: opts}
}

// FromDataset creates an ordered stream over the shards of ds.
func FromDataset(ds shard.Dataset, table order.Table, opts Options) *Ordered {
	return NewOrdered(table, ds.Open, opts)
}

// Each calls fn for every line of every shard in table order. It stops at
// the first error from fn, from a shard, or from ctx. No goroutine started
// by Each outlives it.
func (o *Ordered) Each(ctx context.Context, fn LineFunc) error {
	if o.opts.Prefetch <= 0 {
		return o.eachSerial(ctx, fn)
	}
	return o.eachPrefetch(ctx, fn)
}

func (o *Ordered) eachSerial(ctx context.Context, fn LineFunc) error {
	for _, idx := range o.table {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.drain(ctx, idx, fn); err != nil {
			return err
		}
	}
	return nil
}

func (o *Ordered) drain(ctx context.Context, idx int, fn LineFunc) error {
	r, err := o.open(idx)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(r)

	for r.Next() {
		if r.LineNo()%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := fn(Position{Shard: idx, Line: r.LineNo()}, r.Line()); err != nil {
			return err
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	o.shardDone(idx, r.LineNo())
	return nil
}

const cancelCheckInterval = 1 << 14

func (o *Ordered) shardDone(idx int, lines int64) {
	if o.opts.OnShardDone != nil {
		o.opts.OnShardDone(idx, lines)
	}
}

// batch is a run of consecutive lines packed into one buffer.
type batch struct {
	first int64
	buf   []byte
	ends  []int
	err   error
}

func (b *batch) line(i int) []byte {
	start := 0
	if i > 0 {
		start = b.ends[i-1]
	}
	return b.buf[start:b.ends[i]]
}

type stream struct {
	shard   int
	batches chan *batch
}

func (o *Ordered) eachPrefetch(ctx context.Context, fn LineFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	streams := make(chan *stream, o.opts.Prefetch)

	g.Go(func() error {
		defer close(streams)
		for _, idx := range o.table {
			s := &stream{shard: idx, batches: make(chan *batch, o.opts.QueueDepth)}
			select {
			case streams <- s:
			case <-gctx.Done():
				return nil
			}
			g.Go(func() error { return o.produce(gctx, s) })
		}
		return nil
	})

	// Producer errors travel in-band on their own stream, so every line of
	// the shards before a failing one is delivered first.
	consumeErr := o.consume(gctx, streams, fn)
	if consumeErr == nil {
		// The feeder stops early only on cancellation.
		consumeErr = gctx.Err()
	}
	cancel()
	if err := g.Wait(); err != nil {
		return err
	}
	return consumeErr
}

func (o *Ordered) consume(ctx context.Context, streams <-chan *stream, fn LineFunc) error {
	for s := range streams {
		var lines int64
		for b := range s.batches {
			if b.err != nil {
				return b.err
			}
			for i := range b.ends {
				if err := fn(Position{Shard: s.shard, Line: b.first + int64(i)}, b.line(i)); err != nil {
					return err
				}
			}
			lines = b.first + int64(len(b.ends)) - 1
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		o.shardDone(s.shard, lines)
	}
	return nil
}

// produce decodes one shard into s. A decode error is queued as the last
// batch of s and never returned, so it surfaces only when the consumer
// reaches this shard.
func (o *Ordered) produce(ctx context.Context, s *stream) error {
	defer close(s.batches)

	send := func(b *batch) bool {
		select {
		case s.batches <- b:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) error {
		send(&batch{err: err})
		return nil
	}

	r, err := o.open(s.shard)
	if err != nil {
		return fail(err)
	}
	defer iox.DiscardClose(r)

	cur := &batch{first: 1}
	for r.Next() {
		cur.buf = append(cur.buf, r.Line()...)
		cur.ends = append(cur.ends, len(cur.buf))
		if len(cur.ends) == o.opts.BatchLines {
			if !send(cur) {
				return nil
			}
			cur = &batch{first: r.LineNo() + 1}
		}
	}
	if err := r.Err(); err != nil {
		return fail(err)
	}
	if len(cur.ends) > 0 {
		send(cur)
	}
	return nil
}
