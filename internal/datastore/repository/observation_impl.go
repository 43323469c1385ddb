package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tphakala/skyarchive/internal/datastore/entities"
	"github.com/tphakala/skyarchive/internal/metadata"
)

// observationRepository implements ObservationRepository.
type observationRepository struct {
	db *gorm.DB
}

// NewObservationRepository creates a new ObservationRepository.
func NewObservationRepository(db *gorm.DB) ObservationRepository {
	return &observationRepository{db: db}
}

// Create inserts the observation and its associations.
func (r *observationRepository) Create(ctx context.Context, obs *entities.Observation) error {
	if obs.PublicID == "" || obs.ObservatoryID == 0 {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(obs).Error
}

// GetByPublicID retrieves an observation with metadata, files and observatory.
func (r *observationRepository) GetByPublicID(ctx context.Context, publicID string) (*entities.Observation, error) {
	var obs entities.Observation
	err := r.db.WithContext(ctx).
		Preload("Observatory").
		Preload("Metadata").
		Preload("Files").
		Preload("Files.Metadata").
		Where("public_id = ?", publicID).
		First(&obs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrObservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &obs, nil
}

// filtered applies filter to a query over the observations table.
func (r *observationRepository) filtered(ctx context.Context, filter *ObservationFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&entities.Observation{})
	if filter == nil {
		return q
	}
	if filter.ObservatoryID != nil {
		q = q.Where("observatory_id = ?", *filter.ObservatoryID)
	}
	if filter.TimeMax > 0 || filter.TimeMin > 0 {
		q = q.Where("obs_time >= ? AND obs_time <= ?", filter.TimeMin, filter.TimeMax)
	}
	if filter.ObsType != "" {
		q = q.Where("obs_type = ?", filter.ObsType)
	}
	if filter.Category != "" {
		sub := r.db.Model(&entities.ObservationMetadata{}).Select("observation_id").
			Where("meta_key = ? AND string_value = ?", metadata.KeyCategory, filter.Category)
		q = q.Where("id IN (?)", sub)
	}
	if filter.HasKey != "" {
		sub := r.db.Model(&entities.ObservationMetadata{}).Select("observation_id").
			Where("meta_key = ?", filter.HasKey)
		q = q.Where("id IN (?)", sub)
	}
	return q
}

// Search returns matching observations ordered by time.
func (r *observationRepository) Search(ctx context.Context, filter *ObservationFilter) ([]*entities.Observation, error) {
	q := r.filtered(ctx, filter).
		Preload("Observatory").
		Preload("Metadata").
		Order("obs_time ASC, id ASC")
	if filter != nil && filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var out []*entities.Observation
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// IDsByPublicID maps public ids to internal ids, chunked.
func (r *observationRepository) IDsByPublicID(ctx context.Context, publicIDs []string) (map[string]uint, error) {
	out := make(map[string]uint, len(publicIDs))
	for start := 0; start < len(publicIDs); start += maxBatchParams {
		end := min(start+maxBatchParams, len(publicIDs))
		var rows []struct {
			ID       uint
			PublicID string
		}
		err := r.db.WithContext(ctx).Model(&entities.Observation{}).
			Select("id, public_id").
			Where("public_id IN ?", publicIDs[start:end]).
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out[row.PublicID] = row.ID
		}
	}
	return out, nil
}

// SetMetadata replaces the key's previous value.
func (r *observationRepository) SetMetadata(ctx context.Context, row *entities.ObservationMetadata) error {
	if row.ObservationID == 0 || row.Key == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("observation_id = ? AND meta_key = ?", row.ObservationID, row.Key).
			Delete(&entities.ObservationMetadata{}).Error; err != nil {
			return err
		}
		return tx.Create(row).Error
	})
}

// DeleteMetadata removes keys from every observation the filter selects.
func (r *observationRepository) DeleteMetadata(ctx context.Context, filter *ObservationFilter, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	// MySQL refuses a DELETE whose subquery reads the same table, so the ids
	// are materialised first.
	var ids []uint
	if err := r.filtered(ctx, filter).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	var total int64
	for start := 0; start < len(ids); start += maxBatchParams {
		end := min(start+maxBatchParams, len(ids))
		res := r.db.WithContext(ctx).
			Where("meta_key IN ? AND observation_id IN ?", keys, ids[start:end]).
			Delete(&entities.ObservationMetadata{})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}
