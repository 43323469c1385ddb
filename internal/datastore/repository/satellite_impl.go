package repository

import (
	"cmp"
	"context"
	"math"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/skyarchive/internal/datastore/entities"
)

// satelliteRepository implements SatelliteRepository.
type satelliteRepository struct {
	db *gorm.DB
}

// NewSatelliteRepository creates a new SatelliteRepository.
func NewSatelliteRepository(db *gorm.DB) SatelliteRepository {
	return &satelliteRepository{db: db}
}

// Upsert inserts element sets, overwriting rows with the same NORAD id and epoch.
func (r *satelliteRepository) Upsert(ctx context.Context, rows []*entities.SatelliteElements) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "norad_id"}, {Name: "epoch"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, 200).Error
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Candidates returns one element set per object, the one whose epoch is nearest utc.
func (r *satelliteRepository) Candidates(ctx context.Context, utc, window float64) ([]*entities.SatelliteElements, error) {
	var rows []*entities.SatelliteElements
	err := r.db.WithContext(ctx).
		Where("epoch >= ? AND epoch <= ?", utc-window, utc+window).
		Where("debris = ?", false).
		Where("(decay_date IS NULL OR decay_date > ?)", utc).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	best := make(map[int]*entities.SatelliteElements, len(rows))
	for _, row := range rows {
		cur, ok := best[row.NoradID]
		if !ok || math.Abs(row.Epoch-utc) < math.Abs(cur.Epoch-utc) {
			best[row.NoradID] = row
		}
	}

	out := make([]*entities.SatelliteElements, 0, len(best))
	for _, row := range best {
		out = append(out, row)
	}
	slices.SortFunc(out, func(a, b *entities.SatelliteElements) int { return cmp.Compare(a.NoradID, b.NoradID) })
	return out, nil
}

// Count returns the number of stored element sets.
func (r *satelliteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entities.SatelliteElements{}).Count(&n).Error
	return n, err
}
