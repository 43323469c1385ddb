package metadata

import (
	"encoding/json"
	"slices"
)

// Record is one time-stamped fact. Records are appended, never mutated.
type Record struct {
	Key   string
	Value Value
	Time  float64 // unix seconds
	User  string
}

// Map is the effective metadata at an instant.
type Map map[string]Value

// Float returns the numeric value stored under key.
func (m Map) Float(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return v.AsFloat()
}

// String returns the string value stored under key.
func (m Map) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	return v.AsString()
}

// FloatList decodes a JSON list of numbers stored under key.
func (m Map) FloatList(key string) ([]float64, bool) {
	s, ok := m.String(key)
	if !ok {
		return nil, false
	}
	var out []float64
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, false
	}
	return out, true
}

// Latest resolves records into the value of every key at time utc: the most
// recent record with Time <= utc wins, and a Refresh record discards everything
// before it. Records with equal times keep their input order.
func Latest(records []Record, utc float64) Map {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b Record) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		default:
			return 0
		}
	})

	out := make(Map)
	for _, r := range sorted {
		if r.Time > utc {
			break
		}
		if r.Key == Refresh {
			clear(out)
			continue
		}
		out[r.Key] = r.Value
	}
	return out
}
