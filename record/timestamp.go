package record

import "time"

// Layout is the canonical timestamp layout of the dataset.
const Layout = "2006-01-02 15:04:05.000 UTC"

const timestampLen = len(Layout)

// ParseTimestamp parses the fixed-width layout "YYYY-MM-DD HH:MM:SS.mmm UTC".
// Any other shape, including a missing fraction, is rejected.
func ParseTimestamp(b []byte) (time.Time, error) {
	t, reason := parseTimestamp(b)
	if reason != "" {
		return time.Time{}, newFormatError(b, "%s", reason)
	}
	return t, nil
}

// parseTimestamp returns a non-empty reason instead of an error so callers
// can attach the full line to the failure.
func parseTimestamp(b []byte) (time.Time, string) {
	if len(b) != timestampLen {
		return time.Time{}, "timestamp length mismatch"
	}
	if b[4] != '-' || b[7] != '-' || b[10] != ' ' || b[13] != ':' || b[16] != ':' ||
		b[19] != '.' || b[23] != ' ' || b[24] != 'U' || b[25] != 'T' || b[26] != 'C' {
		return time.Time{}, "timestamp layout mismatch"
	}

	year, ok1 := digits(b[0:4])
	month, ok2 := digits(b[5:7])
	day, ok3 := digits(b[8:10])
	hour, ok4 := digits(b[11:13])
	minute, ok5 := digits(b[14:16])
	sec, ok6 := digits(b[17:19])
	milli, ok7 := digits(b[20:23])
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 || !ok7 {
		return time.Time{}, "timestamp has non-digit field"
	}

	if month < 1 || month > 12 || day < 1 || day > daysIn(time.Month(month), year) ||
		hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, "timestamp field out of range"
	}

	return time.Date(year, time.Month(month), day, hour, minute, sec, milli*int(time.Millisecond), time.UTC), ""
}

// AppendTimestamp appends t in the canonical layout. The fraction always
// carries three digits so the output parses back with ParseTimestamp.
func AppendTimestamp(dst []byte, t time.Time) []byte {
	return t.UTC().AppendFormat(dst, Layout)
}

func digits(b []byte) (int, bool) {
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func daysIn(m time.Month, year int) int {
	switch m {
	case time.February:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}
