package entities

import "github.com/tphakala/skyarchive/internal/metadata"

// Meta is the column set shared by every metadata table.
type Meta struct {
	Key         string   `gorm:"column:meta_key;type:varchar(100);not null;index"`
	FloatValue  *float64 `gorm:"column:float_value"`
	StringValue *string  `gorm:"column:string_value;type:text"`
	Time        float64  `gorm:"not null;index"`
	SetAt       float64  `gorm:"not null"`
	User        string   `gorm:"type:varchar(64)"`
}

// NewMeta builds the columns for one fact.
func NewMeta(key string, value metadata.Value, utc, setAt float64, user string) Meta {
	f, s := value.Columns()
	return Meta{Key: key, FloatValue: f, StringValue: s, Time: utc, SetAt: setAt, User: user}
}

// Value returns the tagged value held in the row.
func (m Meta) Value() metadata.Value {
	return metadata.FromColumns(m.FloatValue, m.StringValue)
}

// Record converts the row for metadata.Latest.
func (m Meta) Record() metadata.Record {
	return metadata.Record{Key: m.Key, Value: m.Value(), Time: m.Time, User: m.User}
}

// ObservatoryMetadata is an append-only fact about an observatory.
type ObservatoryMetadata struct {
	ID            uint `gorm:"primaryKey"`
	ObservatoryID uint `gorm:"not null;index"`
	Meta          `gorm:"embedded"`
}

// TableName returns the table name for GORM.
func (ObservatoryMetadata) TableName() string { return "observatory_metadata" }

// ObservationMetadata is a mutable fact about an observation.
type ObservationMetadata struct {
	ID            uint `gorm:"primaryKey"`
	ObservationID uint `gorm:"not null;index"`
	Meta          `gorm:"embedded"`
}

// TableName returns the table name for GORM.
func (ObservationMetadata) TableName() string { return "observation_metadata" }

// FileMetadata is a mutable fact about a stored file.
type FileMetadata struct {
	ID     uint `gorm:"primaryKey"`
	FileID uint `gorm:"not null;index"`
	Meta   `gorm:"embedded"`
}

// TableName returns the table name for GORM.
func (FileMetadata) TableName() string { return "file_metadata" }

// ObservationGroupMetadata is a mutable fact about an observation group.
type ObservationGroupMetadata struct {
	ID      uint `gorm:"primaryKey"`
	GroupID uint `gorm:"not null;index"`
	Meta    `gorm:"embedded"`
}

// TableName returns the table name for GORM.
func (ObservationGroupMetadata) TableName() string { return "observation_group_metadata" }
