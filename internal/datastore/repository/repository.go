package repository

import (
	"context"

	"github.com/tphakala/skyarchive/internal/datastore/entities"
)

// ObservatoryRepository provides access to observatories and their append-only
// metadata history.
type ObservatoryRepository interface {
	// GetByPublicID returns ErrObservatoryNotFound if absent.
	GetByPublicID(ctx context.Context, publicID string) (*entities.Observatory, error)

	// List returns every observatory ordered by public id.
	List(ctx context.Context) ([]*entities.Observatory, error)

	// Upsert creates the observatory or, if it exists, updates its owner and name.
	Upsert(ctx context.Context, obstory *entities.Observatory) error

	// AppendMetadata adds one fact. Existing rows are never touched.
	AppendMetadata(ctx context.Context, row *entities.ObservatoryMetadata) error

	// MetadataUntil returns every fact with time <= utc, oldest first.
	MetadataUntil(ctx context.Context, obstoryID uint, utc float64) ([]entities.ObservatoryMetadata, error)

	// DeleteMetadata removes facts with the given keys in [tMin, tMax].
	DeleteMetadata(ctx context.Context, obstoryID uint, keys []string, tMin, tMax float64) (int64, error)
}

// ObservationFilter selects observations. Zero fields do not filter.
type ObservationFilter struct {
	ObservatoryID *uint
	TimeMin       float64
	TimeMax       float64
	ObsType       string
	// Category matches the web:category metadata value.
	Category string
	// HasKey requires a metadata row with this key.
	HasKey string
	Limit  int
}

// ObservationRepository provides access to observations and their mutable
// metadata.
type ObservationRepository interface {
	// Create inserts the observation with any metadata and files it carries.
	Create(ctx context.Context, obs *entities.Observation) error

	// GetByPublicID preloads metadata and files. Returns ErrObservationNotFound if absent.
	GetByPublicID(ctx context.Context, publicID string) (*entities.Observation, error)

	// Search returns matching observations ordered by time, with metadata preloaded.
	Search(ctx context.Context, filter *ObservationFilter) ([]*entities.Observation, error)

	// IDsByPublicID maps public ids to internal ids.
	IDsByPublicID(ctx context.Context, publicIDs []string) (map[string]uint, error)

	// SetMetadata replaces any existing value of row.Key on the observation.
	SetMetadata(ctx context.Context, row *entities.ObservationMetadata) error

	// DeleteMetadata removes keys from every observation selected by filter.
	DeleteMetadata(ctx context.Context, filter *ObservationFilter, keys []string) (int64, error)
}

// FileRepository provides access to stored file records.
type FileRepository interface {
	Create(ctx context.Context, file *entities.File) error

	// GetByRepositoryName returns ErrFileNotFound if absent.
	GetByRepositoryName(ctx context.Context, name string) (*entities.File, error)

	// SetMetadata replaces any existing value of row.Key on the file.
	SetMetadata(ctx context.Context, row *entities.FileMetadata) error
}

// GroupRepository provides access to observation groups.
type GroupRepository interface {
	// Create inserts the group with its members in order.
	Create(ctx context.Context, group *entities.ObservationGroup, memberIDs []uint) error

	// GetByPublicID preloads members and metadata. Returns ErrGroupNotFound if absent.
	GetByPublicID(ctx context.Context, publicID string) (*entities.ObservationGroup, error)

	// Search returns groups of semanticType with time in [tMin, tMax], ordered by time.
	Search(ctx context.Context, semanticType string, tMin, tMax float64) ([]*entities.ObservationGroup, error)

	// DeleteInWindow removes groups of semanticType with time in [tMin, tMax].
	DeleteInWindow(ctx context.Context, semanticType string, tMin, tMax float64) (int64, error)

	// SetMetadata replaces any existing value of row.Key on the group.
	SetMetadata(ctx context.Context, row *entities.ObservationGroupMetadata) error
}

// SatelliteRepository provides access to tabulated orbital elements.
type SatelliteRepository interface {
	// Upsert inserts rows, replacing any existing row with the same NORAD id and epoch.
	Upsert(ctx context.Context, rows []*entities.SatelliteElements) (int, error)

	// Candidates returns, per NORAD id, the element set with epoch closest to utc
	// among non-debris objects with epoch within ±window seconds that have not
	// decayed by utc.
	Candidates(ctx context.Context, utc, window float64) ([]*entities.SatelliteElements, error)

	Count(ctx context.Context) (int64, error)
}
