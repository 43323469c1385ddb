package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tphakala/skyarchive/internal/datastore/entities"
)

// observatoryRepository implements ObservatoryRepository.
type observatoryRepository struct {
	db *gorm.DB
}

// NewObservatoryRepository creates a new ObservatoryRepository.
func NewObservatoryRepository(db *gorm.DB) ObservatoryRepository {
	return &observatoryRepository{db: db}
}

// GetByPublicID retrieves an observatory by its public id.
func (r *observatoryRepository) GetByPublicID(ctx context.Context, publicID string) (*entities.Observatory, error) {
	var obstory entities.Observatory
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&obstory).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrObservatoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &obstory, nil
}

// List returns every observatory.
func (r *observatoryRepository) List(ctx context.Context) ([]*entities.Observatory, error) {
	var out []*entities.Observatory
	err := r.db.WithContext(ctx).Order("public_id ASC").Find(&out).Error
	return out, err
}

// Upsert creates the observatory, or updates owner and name when the public id
// is already known. Location is immutable.
func (r *observatoryRepository) Upsert(ctx context.Context, obstory *entities.Observatory) error {
	if obstory.PublicID == "" {
		return ErrInvalidInput
	}

	var existing entities.Observatory
	err := r.db.WithContext(ctx).Where("public_id = ?", obstory.PublicID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(obstory).Error
	}
	if err != nil {
		return err
	}

	obstory.ID = existing.ID
	return r.db.WithContext(ctx).Model(&existing).
		Updates(map[string]any{"owner": obstory.Owner, "name": obstory.Name}).Error
}

// AppendMetadata inserts one fact.
func (r *observatoryRepository) AppendMetadata(ctx context.Context, row *entities.ObservatoryMetadata) error {
	if row.ObservatoryID == 0 || row.Key == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// MetadataUntil returns the history up to utc, oldest first.
func (r *observatoryRepository) MetadataUntil(ctx context.Context, obstoryID uint, utc float64) ([]entities.ObservatoryMetadata, error) {
	var rows []entities.ObservatoryMetadata
	err := r.db.WithContext(ctx).
		Where("observatory_id = ? AND time <= ?", obstoryID, utc).
		Order("time ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// DeleteMetadata removes facts with the given keys in the window.
func (r *observatoryRepository) DeleteMetadata(ctx context.Context, obstoryID uint, keys []string, tMin, tMax float64) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("observatory_id = ? AND meta_key IN ? AND time >= ? AND time <= ?", obstoryID, keys, tMin, tMax).
		Delete(&entities.ObservatoryMetadata{})
	return res.RowsAffected, res.Error
}
