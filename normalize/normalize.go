// Package normalize rewrites a shard into canonical form: records sorted by
// timestamp, equal timestamps kept in their original relative order, every
// timestamp rendered in the canonical layout.
package normalize

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/pithecene-io/placeback/iox"
	"github.com/pithecene-io/placeback/record"
	"github.com/pithecene-io/placeback/shard"
)

// Stats summarizes one normalization.
type Stats struct {
	// Shard is the shard index.
	Shard int `json:"shard"`
	// Records is the number of records written.
	Records int64 `json:"records"`
	// Inversions is the number of adjacent input pairs that were out of order.
	Inversions int64 `json:"inversions"`
}

type entry struct {
	millis int64
	tail   int
	end    int
}

// Normalize reads every line of one shard, sorts the records stably by
// timestamp and writes the header followed by one canonical line per
// record. Nothing is written unless every line decodes.
func Normalize(index int, lines shard.Lines, w io.Writer) (Stats, error) {
	stats := Stats{Shard: index}

	var (
		arena   []byte
		entries []entry
		prev    int64
		lineNo  int64
	)
	for lines.Next() {
		lineNo++
		start := len(arena)
		arena = append(arena, lines.Line()...)

		r, err := record.Parse(arena[start:])
		if err != nil {
			return stats, record.Locate(err, index, lineNo)
		}
		t, err := r.Time()
		if err != nil {
			return stats, record.Locate(err, index, lineNo)
		}
		ms := t.UnixMilli()
		if lineNo > 1 && ms < prev {
			stats.Inversions++
		}
		prev = ms
		entries = append(entries, entry{
			millis: ms,
			tail:   start + len(r.TimeRaw()),
			end:    len(arena),
		})
	}
	if err := lines.Err(); err != nil {
		return stats, err
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		return cmp.Compare(a.millis, b.millis)
	})

	bw := bufio.NewWriterSize(w, 1<<20)
	if _, err := bw.WriteString(shard.Header); err != nil {
		return stats, err
	}
	buf := make([]byte, 0, 256)
	for _, e := range entries {
		buf = record.AppendTimestamp(buf[:0], time.UnixMilli(e.millis))
		buf = append(buf, arena[e.tail:e.end]...)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return stats, err
		}
	}
	if err := bw.Flush(); err != nil {
		return stats, err
	}
	stats.Records = int64(len(entries))
	return stats, nil
}

// NormalizeFile normalizes shard index of ds into outDir under the same
// file name, gzip-compressed. The output appears atomically: on failure
// no file is left at the destination. outDir may equal ds.Dir, in which
// case the shard is replaced.
func NormalizeFile(ds shard.Dataset, index int, outDir string) (Stats, error) {
	r, err := ds.Open(index)
	if err != nil {
		return Stats{Shard: index}, err
	}
	defer iox.DiscardClose(r)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Stats{Shard: index}, fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(outDir, ".normalize-*.tmp")
	if err != nil {
		return Stats{Shard: index}, fmt.Errorf("failed to create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	zw := gzip.NewWriter(tmp)
	stats, err := Normalize(index, r, zw)
	if err != nil {
		return stats, err
	}
	if err := zw.Close(); err != nil {
		return stats, fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return stats, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(outDir, ds.FileName(index))); err != nil {
		_ = os.Remove(tmp.Name())
		committed = true
		return stats, fmt.Errorf("failed to move normalized shard into place: %w", err)
	}
	committed = true
	return stats, nil
}
