// Package order derives the global replay order of a dataset's shards.
//
// Shards are internally time ordered but their file indices are not. The
// Order Table lists shard indices in ascending order of first timestamp so
// that concatenating the shards in table order yields one chronological
// stream. Overlaps between adjacent shards are reported as warnings; the
// table is still produced.
package order

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pithecene-io/placeback/record"
)

// Interval is the time span covered by one shard.
type Interval struct {
	// Shard is the shard index.
	Shard int `msgpack:"shard" json:"shard" yaml:"shard"`
	// First is the timestamp of the shard's first record.
	First time.Time `msgpack:"first" json:"first" yaml:"first"`
	// Last is the timestamp of the shard's last record.
	Last time.Time `msgpack:"last" json:"last" yaml:"last"`
}

// Table is a permutation of shard indices in replay order.
type Table []int

// Validate checks that t is a permutation of [0, n).
func (t Table) Validate(n int) error {
	if len(t) != n {
		return fmt.Errorf("order table has %d entries, dataset has %d shards", len(t), n)
	}
	seen := make([]bool, n)
	for pos, idx := range t {
		if idx < 0 || idx >= n {
			return fmt.Errorf("order table entry %d: shard %d out of range [0, %d)", pos, idx, n)
		}
		if seen[idx] {
			return fmt.Errorf("order table entry %d: shard %d listed twice", pos, idx)
		}
		seen[idx] = true
	}
	return nil
}

// Identity returns the table [0, 1, ..., n-1].
func Identity(n int) Table {
	t := make(Table, n)
	for i := range t {
		t[i] = i
	}
	return t
}

// Warning reports two shards adjacent in the table whose time ranges
// overlap. It is informational and never aborts resolution.
type Warning struct {
	// Previous is the shard placed first.
	Previous int `json:"previous" yaml:"previous"`
	// Current is the shard placed immediately after Previous.
	Current int `json:"current" yaml:"current"`
	// PreviousLast is the last timestamp of Previous.
	PreviousLast time.Time `json:"previous_last" yaml:"previous_last"`
	// CurrentFirst is the first timestamp of Current.
	CurrentFirst time.Time `json:"current_first" yaml:"current_first"`
}

func (w Warning) String() string {
	return fmt.Sprintf("overlap: shard %d ends at %s after shard %d starts at %s",
		w.Previous, record.AppendTimestamp(nil, w.PreviousLast), w.Current, record.AppendTimestamp(nil, w.CurrentFirst))
}

// Resolve sorts intervals by first timestamp and returns the resulting
// table. Ties keep ascending shard index order. Every adjacent pair where
// the earlier shard ends after the later one starts produces a Warning.
func Resolve(intervals []Interval) (Table, []Warning) {
	sorted := slices.Clone(intervals)
	slices.SortStableFunc(sorted, func(a, b Interval) int {
		if c := a.First.Compare(b.First); c != 0 {
			return c
		}
		return cmp.Compare(a.Shard, b.Shard)
	})

	table := make(Table, len(sorted))
	var warnings []Warning
	for i, iv := range sorted {
		table[i] = iv.Shard
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if prev.Last.After(iv.First) {
			warnings = append(warnings, Warning{
				Previous:     prev.Shard,
				Current:      iv.Shard,
				PreviousLast: prev.Last,
				CurrentFirst: iv.First,
			})
		}
	}
	return table, warnings
}

// ErrEmptyShard is returned when a shard holds no records and therefore
// has no time range.
var ErrEmptyShard = errors.New("shard has no records")
