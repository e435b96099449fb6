package order

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// IndexVersion is the current interval index format version.
const IndexVersion = 1

// Index is a persisted scan result. Saving it lets the table be re-resolved
// without decompressing every shard again.
type Index struct {
	// Version is the index format version.
	Version int `msgpack:"version"`
	// Dataset is the dataset prefix the intervals were scanned from.
	Dataset string `msgpack:"dataset"`
	// Intervals holds one entry per shard, indexed by shard.
	Intervals []Interval `msgpack:"intervals"`
}

// WriteIndex encodes idx as msgpack. A zero Version is written as IndexVersion.
func WriteIndex(w io.Writer, idx Index) error {
	if idx.Version == 0 {
		idx.Version = IndexVersion
	}
	if err := msgpack.NewEncoder(w).Encode(&idx); err != nil {
		return fmt.Errorf("failed to encode interval index: %w", err)
	}
	return nil
}

// ReadIndex decodes an index written by WriteIndex.
func ReadIndex(r io.Reader) (Index, error) {
	var idx Index
	if err := msgpack.NewDecoder(r).Decode(&idx); err != nil {
		return Index{}, fmt.Errorf("failed to decode interval index: %w", err)
	}
	if idx.Version != IndexVersion {
		return Index{}, fmt.Errorf("unsupported interval index version %d (want %d)", idx.Version, IndexVersion)
	}
	for i, iv := range idx.Intervals {
		if iv.Shard != i {
			return Index{}, fmt.Errorf("interval index entry %d names shard %d", i, iv.Shard)
		}
		// msgpack decodes timestamps in the local zone.
		idx.Intervals[i].First = iv.First.UTC()
		idx.Intervals[i].Last = iv.Last.UTC()
	}
	return idx, nil
}
