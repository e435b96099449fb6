// Package shard reads the gzip-compressed CSV shards of a dataset as a lazy
// sequence of record lines.
package shard

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"

	"github.com/pithecene-io/placeback/record"
)

const (
	initialLineBuffer = 64 * 1024
	maxLineLength     = 1024 * 1024
)

var headerLine = []byte(Header[:len(Header)-1])

// Reader yields the record lines of one shard in file order. The header is
// consumed on construction. Lines returned by Line are only valid until the
// next call to Next.
type Reader struct {
	shard  int
	path   string
	file   io.Closer
	gz     *gzip.Reader
	sc     *bufio.Scanner
	line   []byte
	lineNo int64
	err    error
}

// Open opens the gzip shard at path. shard is the index reported in errors.
func Open(path string, shard int) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ResourceError{Shard: shard, Path: path, Op: "open", Err: err}
	}
	r, err := newGzipReader(f, shard, path)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.file = f
	return r, nil
}

// NewReader reads a gzip-compressed shard from src. The caller keeps
// ownership of src.
func NewReader(src io.Reader, shard int) (*Reader, error) {
	return newGzipReader(src, shard, "")
}

// NewPlainReader reads an uncompressed shard from src.
func NewPlainReader(src io.Reader, shard int) (*Reader, error) {
	r := &Reader{shard: shard}
	if err := r.init(src); err != nil {
		return nil, err
	}
	return r, nil
}

func newGzipReader(src io.Reader, shard int, path string) (*Reader, error) {
	gz, err := gzip.NewReader(src)
	if err != nil {
		return nil, &ResourceError{Shard: shard, Path: path, Op: "decompress", Err: err}
	}
	r := &Reader{shard: shard, path: path, gz: gz}
	if err := r.init(gz); err != nil {
		_ = gz.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) init(src io.Reader) error {
	r.sc = bufio.NewScanner(src)
	r.sc.Buffer(make([]byte, initialLineBuffer), maxLineLength)

	if !r.sc.Scan() {
		if err := r.scanErr(); err != nil {
			return err
		}
		return (&record.FormatError{Reason: "missing header"}).At(r.shard, 0)
	}
	if !bytes.Equal(r.sc.Bytes(), headerLine) {
		return (&record.FormatError{Reason: "unexpected header", Text: truncate(r.sc.Bytes())}).At(r.shard, 0)
	}
	return nil
}

// Next advances to the next line. It returns false at end of shard or on
// error; Err distinguishes the two.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.sc.Scan() {
		r.err = r.scanErr()
		r.line = nil
		return false
	}
	r.lineNo++
	r.line = r.sc.Bytes()
	if !utf8.Valid(r.line) {
		r.err = (&record.FormatError{Reason: "invalid UTF-8", Text: truncate(r.line)}).At(r.shard, r.lineNo)
		r.line = nil
		return false
	}
	return true
}

// Line returns the current line without its terminator.
func (r *Reader) Line() []byte { return r.line }

// LineNo returns the 1-based number of the current line, header excluded.
func (r *Reader) LineNo() int64 { return r.lineNo }

// Shard returns the shard index.
func (r *Reader) Shard() int { return r.shard }

// Err returns the first error encountered, or nil at a clean end of shard.
func (r *Reader) Err() error { return r.err }

// Close releases the decompressor and the underlying file, if owned.
func (r *Reader) Close() error {
	var err error
	if r.gz != nil {
		err = r.gz.Close()
	}
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (r *Reader) scanErr() error {
	err := r.sc.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, bufio.ErrTooLong) {
		return (&record.FormatError{Reason: "line too long"}).At(r.shard, r.lineNo+1)
	}
	op := "read"
	if r.gz != nil {
		op = "decompress"
	}
	return &ResourceError{Shard: r.shard, Path: r.path, Op: op, Err: err}
}

func truncate(b []byte) string {
	if len(b) > 120 {
		b = b[:120]
	}
	return string(b)
}
