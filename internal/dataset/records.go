package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schema maps column names to the kind their text should be parsed as.
// Columns not listed are kept as strings.
type Schema map[string]Kind

// ParseError reports a malformed scalar at the input boundary.
type ParseError struct {
	Row    int // 1-based data row, header excluded
	Column string
	Raw    string
	Kind   Kind
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: column %q: cannot parse %q as %s", e.Row, e.Column, e.Raw, e.Kind)
}

var missingMarkers = map[string]struct{}{
	"": {}, "na": {}, "n/a": {}, "nan": {}, "null": {}, "none": {}, "<na>": {},
}

// IsMissing reports whether raw text denotes a missing value.
func IsMissing(raw string) bool {
	_, ok := missingMarkers[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// FromRecords builds a typed dataset from a header and text rows. Short rows
// are padded with nulls; extra cells are dropped.
func FromRecords(header []string, records [][]string, schema Schema) (*Dataset, error) {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}
	d := New(cols...)
	for r, rec := range records {
		row := make([]Value, len(d.columns))
		for i, col := range cols {
			if i >= len(rec) {
				break
			}
			v, err := ParseValue(rec[i], schema[col])
			if err != nil {
				return nil, &ParseError{Row: r + 1, Column: col, Raw: rec[i], Kind: schema[col]}
			}
			row[d.index[col]] = v
		}
		d.rows = append(d.rows, row)
	}
	return d, nil
}

// ParseValue converts raw text into a Value of the requested kind. KindNull
// in the schema means "string".
func ParseValue(raw string, kind Kind) (Value, error) {
	s := strings.TrimSpace(raw)
	if IsMissing(s) {
		return Null(), nil
	}
	switch kind {
	case KindNumber:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Null(), err
		}
		return Num(f), nil
	case KindDate:
		t, ok := ParseDate(s)
		if !ok {
			return Null(), fmt.Errorf("unrecognised date %q", s)
		}
		return Date(t), nil
	default:
		return Str(s), nil
	}
}

var dateLayouts = []string{
	DateLayout, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04",
	"2006/01/02", "02/01/2006", "01/02/2006",
}

// ParseDate accepts ISO dates, timestamps and the common slash layouts.
func ParseDate(s string) (time.Time, bool) {
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
