package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tphakala/skyarchive/internal/datastore/entities"
)

// fileRepository implements FileRepository.
type fileRepository struct {
	db *gorm.DB
}

// NewFileRepository creates a new FileRepository.
func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

// Create inserts a file record.
func (r *fileRepository) Create(ctx context.Context, file *entities.File) error {
	if file.RepositoryFname == "" || file.ObservationID == 0 {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(file).Error
}

// GetByRepositoryName retrieves a file with its metadata.
func (r *fileRepository) GetByRepositoryName(ctx context.Context, name string) (*entities.File, error) {
	var file entities.File
	err := r.db.WithContext(ctx).Preload("Metadata").
		Where("repository_fname = ?", name).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// SetMetadata replaces the key's previous value.
func (r *fileRepository) SetMetadata(ctx context.Context, row *entities.FileMetadata) error {
	if row.FileID == 0 || row.Key == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ? AND meta_key = ?", row.FileID, row.Key).
			Delete(&entities.FileMetadata{}).Error; err != nil {
			return err
		}
		return tx.Create(row).Error
	})
}
