package shard

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Header is the fixed first line of every shard.
const Header = "timestamp,user_id,pixel_color,coordinate\n"

// DefaultPad is the zero-padded width of shard indices in file names.
const DefaultPad = 12

// Dataset locates the shards of one dataset on disk. Shard files are named
// <prefix>-<index zero-padded to Pad>.csv.gzip.
type Dataset struct {
	// Dir is the directory holding the shard files.
	Dir string
	// Prefix is the common file name prefix.
	Prefix string
	// Count is the number of shards, indexed 0..Count-1.
	Count int
	// Pad is the index width. Zero means DefaultPad.
	Pad int
}

// Validate checks that the dataset can name its shards.
func (d Dataset) Validate() error {
	if d.Prefix == "" {
		return errors.New("dataset prefix must be non-empty")
	}
	if d.Count < 1 {
		return fmt.Errorf("dataset shard count must be >= 1, got %d", d.Count)
	}
	if d.Pad < 0 {
		return fmt.Errorf("dataset pad must be >= 0, got %d", d.Pad)
	}
	return nil
}

// FileName returns the file name of shard i.
func (d Dataset) FileName(i int) string {
	pad := d.Pad
	if pad == 0 {
		pad = DefaultPad
	}
	return fmt.Sprintf("%s-%0*d.csv.gzip", d.Prefix, pad, i)
}

// Path returns the file path of shard i.
func (d Dataset) Path(i int) string {
	return filepath.Join(d.Dir, d.FileName(i))
}

// Open opens shard i for reading.
func (d Dataset) Open(i int) (*Reader, error) {
	if i < 0 || i >= d.Count {
		return nil, &ResourceError{Shard: i, Op: "open", Err: fmt.Errorf("index out of range [0, %d)", d.Count)}
	}
	return Open(d.Path(i), i)
}

// Lines is a lazy sequence of record lines, as produced by Reader.
type Lines interface {
	Next() bool
	Line() []byte
	Err() error
}
