package obstory

import (
	"context"
	"slices"
	"sync"

	"github.com/tphakala/skyarchive/internal/datastore"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/metadata"
)

// MemorySource is an in-memory Source for fixtures and dry runs.
type MemorySource struct {
	mu           sync.RWMutex
	observatory  map[string]datastore.Observatory
	records      map[string][]metadata.Record
	observations []datastore.Observation
}

// NewMemorySource returns an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		observatory: make(map[string]datastore.Observatory),
		records:     make(map[string][]metadata.Record),
	}
}

// AddObservatory registers an observatory.
func (m *MemorySource) AddObservatory(o datastore.Observatory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observatory[o.PublicID] = o
}

// SetMetadata appends an observatory metadata record.
func (m *MemorySource) SetMetadata(id, key string, value metadata.Value, utc float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = append(m.records[id], metadata.Record{Key: key, Value: value, Time: utc})
}

// AddObservation registers an observation.
func (m *MemorySource) AddObservation(o datastore.Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations = append(m.observations, o)
}

// GetObservatory implements Source.
func (m *MemorySource) GetObservatory(_ context.Context, id string) (*datastore.Observatory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.observatory[id]
	if !ok {
		return nil, errors.Newf("observatory %s not found", id).
			Component("obstory").
			Category(errors.CategoryNotFound).
			Build()
	}
	return &o, nil
}

// ObservatoryStatus implements Source.
func (m *MemorySource) ObservatoryStatus(_ context.Context, id string, utc float64) (metadata.Map, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return metadata.Latest(m.records[id], utc), nil
}

// SearchObservations implements Source.
func (m *MemorySource) SearchObservations(_ context.Context, q datastore.Query) ([]datastore.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []datastore.Observation
	for _, o := range m.observations {
		switch {
		case q.ObservatoryID != "" && o.ObservatoryID != q.ObservatoryID,
			(q.TimeMin != 0 || q.TimeMax != 0) && (o.Time < q.TimeMin || o.Time > q.TimeMax),
			q.Type != "" && o.Type != q.Type:
			continue
		}
		if q.Category != "" {
			if c, _ := o.Metadata.String(metadata.KeyCategory); c != q.Category {
				continue
			}
		}
		if q.HasKey != "" {
			if _, ok := o.Metadata[q.HasKey]; !ok {
				continue
			}
		}
		out = append(out, o)
	}
	slices.SortStableFunc(out, func(a, b datastore.Observation) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
