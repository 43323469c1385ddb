package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tphakala/skyarchive/internal/datastore/entities"
)

// groupRepository implements GroupRepository.
type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

// Create inserts the group and its ordered members in one transaction.
func (r *groupRepository) Create(ctx context.Context, group *entities.ObservationGroup, memberIDs []uint) error {
	if group.PublicID == "" || group.SemanticType == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Members", "Metadata").Create(group).Error; err != nil {
			return err
		}
		if len(memberIDs) == 0 {
			return nil
		}
		members := make([]entities.ObservationGroupMember, len(memberIDs))
		for i, id := range memberIDs {
			members[i] = entities.ObservationGroupMember{GroupID: group.ID, ObservationID: id, Position: i}
		}
		if err := tx.CreateInBatches(members, maxBatchParams/4).Error; err != nil {
			return err
		}
		group.Members = members
		return nil
	})
}

// GetByPublicID retrieves a group with members and metadata.
func (r *groupRepository) GetByPublicID(ctx context.Context, publicID string) (*entities.ObservationGroup, error) {
	var group entities.ObservationGroup
	err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Members.Observation").
		Preload("Metadata").
		Where("public_id = ?", publicID).
		First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// Search returns groups in the window ordered by time.
func (r *groupRepository) Search(ctx context.Context, semanticType string, tMin, tMax float64) ([]*entities.ObservationGroup, error) {
	var out []*entities.ObservationGroup
	err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Members.Observation").
		Preload("Metadata").
		Where("semantic_type = ? AND time >= ? AND time <= ?", semanticType, tMin, tMax).
		Order("time ASC, id ASC").
		Find(&out).Error
	return out, err
}

// DeleteInWindow removes the groups with their members and metadata.
func (r *groupRepository) DeleteInWindow(ctx context.Context, semanticType string, tMin, tMax float64) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&entities.ObservationGroup{}).
			Where("semantic_type = ? AND time >= ? AND time <= ?", semanticType, tMin, tMax).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		for start := 0; start < len(ids); start += maxBatchParams {
			chunk := ids[start:min(start+maxBatchParams, len(ids))]
			if err := tx.Where("group_id IN ?", chunk).Delete(&entities.ObservationGroupMetadata{}).Error; err != nil {
				return err
			}
			if err := tx.Where("group_id IN ?", chunk).Delete(&entities.ObservationGroupMember{}).Error; err != nil {
				return err
			}
			res := tx.Where("id IN ?", chunk).Delete(&entities.ObservationGroup{})
			if res.Error != nil {
				return res.Error
			}
			deleted += res.RowsAffected
		}
		return nil
	})
	return deleted, err
}

// SetMetadata replaces the key's previous value.
func (r *groupRepository) SetMetadata(ctx context.Context, row *entities.ObservationGroupMetadata) error {
	if row.GroupID == 0 || row.Key == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ? AND meta_key = ?", row.GroupID, row.Key).
			Delete(&entities.ObservationGroupMetadata{}).Error; err != nil {
			return err
		}
		return tx.Create(row).Error
	})
}
