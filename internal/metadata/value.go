// Package metadata models the key/value facts attached to observatories,
// observations, files and observation groups.
//
// Every value is either a float or a string. Keys are namespaced strings such as
// "orientation:altitude"; the namespace before the colon names the pipeline stage
// that owns the key. Unknown keys are carried through unchanged.
package metadata

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindFloat Kind = iota + 1
	KindString
)

// Value is a float or a string. The zero Value is invalid.
type Value struct {
	kind Kind
	f    float64
	s    string
}

// Float wraps a number.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// JSON marshals v and wraps the result as a string value. Paths and parameter
// lists are persisted this way.
func JSON(v any) (Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Value{}, err
	}
	return String(string(b)), nil
}

// Kind returns the variant tag; zero for an invalid Value.
func (v Value) Kind() Kind { return v.kind }

// Valid reports whether v holds anything.
func (v Value) Valid() bool { return v.kind != 0 }

// AsFloat returns the numeric value. String values that parse as numbers are
// accepted, since older writers stored everything as text.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindString:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsString returns the string variant.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// String renders the value for logs and CLI output.
func (v Value) String() string {
	switch v.kind {
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	default:
		return "<invalid>"
	}
}

// Columns splits v into the nullable float and string columns used by the archive.
func (v Value) Columns() (*float64, *string) {
	switch v.kind {
	case KindFloat:
		f := v.f
		return &f, nil
	case KindString:
		s := v.s
		return nil, &s
	default:
		return nil, nil
	}
}

// FromColumns is the inverse of Columns. The float column wins if both are set.
func FromColumns(f *float64, s *string) Value {
	switch {
	case f != nil:
		return Float(*f)
	case s != nil:
		return String(*s)
	default:
		return Value{}
	}
}

// Equal compares kind and content.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.s == o.s && (v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f)))
}
