package normalize

import (
	"github.com/pithecene-io/placeback/record"
	"github.com/pithecene-io/placeback/shard"
)

// CheckResult reports how far a shard is from chronological order.
type CheckResult struct {
	// Shard is the shard index.
	Shard int `json:"shard"`
	// Lines is the number of record lines read.
	Lines int64 `json:"lines"`
	// OutOfOrder counts records older than the record before them.
	OutOfOrder int64 `json:"out_of_order"`
	// FirstViolation is the line number of the first out-of-order record, or 0.
	FirstViolation int64 `json:"first_violation"`
}

// Sorted reports whether the shard needs no normalization.
func (c CheckResult) Sorted() bool { return c.OutOfOrder == 0 }

// Check decodes every timestamp of a shard and counts ordering violations.
func Check(index int, lines shard.Lines) (CheckResult, error) {
	res := CheckResult{Shard: index}
	var prev int64
	for lines.Next() {
		res.Lines++
		r, err := record.Parse(lines.Line())
		if err != nil {
			return res, record.Locate(err, index, res.Lines)
		}
		t, err := r.Time()
		if err != nil {
			return res, record.Locate(err, index, res.Lines)
		}
		ms := t.UnixMilli()
		if res.Lines > 1 && ms < prev {
			res.OutOfOrder++
			if res.FirstViolation == 0 {
				res.FirstViolation = res.Lines
			}
		}
		prev = ms
	}
	return res, lines.Err()
}
