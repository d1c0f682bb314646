package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Kind identifies the scalar type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// DateLayout is the canonical text form of date values.
const DateLayout = "2006-01-02"

// Value is a typed scalar cell. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	f    float64
	t    time.Time
}

// Null returns the null value.
func Null() Value { return Value{} }

// Str wraps a string.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Num wraps a number. NaN and infinities become null so that undefined
// statistics propagate as missing values instead of poisoning later stages.
func Num(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindNumber, f: f}
}

// NumPtr wraps an optional number.
func NumPtr(f *float64) Value {
	if f == nil {
		return Null()
	}
	return Num(*f)
}

// Date wraps a calendar date; the time of day is dropped.
func Date(t time.Time) Value {
	if t.IsZero() {
		return Null()
	}
	y, m, d := t.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric content.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.f, true
}

// Text returns the string content.
func (v Value) Text() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Time returns the date content.
func (v Value) Time() (time.Time, bool) {
	if v.kind != KindDate {
		return time.Time{}, false
	}
	return v.t, true
}

// String renders the value for display and export. Null renders empty.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDate:
		return v.t.Format(DateLayout)
	default:
		return ""
	}
}

// Equal reports whether two values hold the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindNumber:
		return v.f == o.f
	case KindDate:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// Interface returns the Go value behind v (nil for null), for JSON and
// spreadsheet writers.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return v.f
	case KindDate:
		return v.t.Format(DateLayout)
	default:
		return nil
	}
}

// MarshalJSON encodes null as JSON null, numbers as numbers and dates as
// ISO strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindNumber:
		return []byte(strconv.FormatFloat(v.f, 'g', -1, 64)), nil
	case KindDate:
		return []byte(`"` + v.t.Format(DateLayout) + `"`), nil
	default:
		return []byte("null"), nil
	}
}
