package entities

import "time"

// Observatory is a camera installation at a fixed location. Only Owner changes
// after creation.
type Observatory struct {
	ID        uint   `gorm:"primaryKey"`
	PublicID  string `gorm:"type:varchar(32);uniqueIndex;not null"`
	Name      string `gorm:"type:varchar(128)"`
	Latitude  float64
	Longitude float64
	Altitude  float64   // metres above the spherical Earth
	Owner     string    `gorm:"type:varchar(64)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Metadata []ObservatoryMetadata `gorm:"foreignKey:ObservatoryID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (Observatory) TableName() string { return "observatories" }

// Observation is one timelapse image or moving-object event.
type Observation struct {
	ID            uint      `gorm:"primaryKey"`
	PublicID      string    `gorm:"type:varchar(32);uniqueIndex;not null"`
	ObservatoryID uint      `gorm:"not null;index:idx_observation_obstory_time,priority:1"`
	ObsTime       float64   `gorm:"not null;index:idx_observation_obstory_time,priority:2;index"`
	ObsType       string    `gorm:"type:varchar(64);not null;index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`

	Observatory *Observatory          `gorm:"foreignKey:ObservatoryID"`
	Metadata    []ObservationMetadata `gorm:"foreignKey:ObservationID;constraint:OnDelete:CASCADE"`
	Files       []File                `gorm:"foreignKey:ObservationID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (Observation) TableName() string { return "observations" }

// File is a blob (image, video, path) attached to an observation. The bytes
// live in the file store under RepositoryFname.
type File struct {
	ID              uint    `gorm:"primaryKey"`
	RepositoryFname string  `gorm:"type:varchar(128);uniqueIndex;not null"`
	ObservationID   uint    `gorm:"not null;index"`
	MimeType        string  `gorm:"type:varchar(64)"`
	SemanticType    string  `gorm:"type:varchar(128);index"`
	FileTime        float64 `gorm:"not null"`
	FileSize        int64
	FileName        string `gorm:"type:varchar(256)"`

	Metadata []FileMetadata `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (File) TableName() string { return "files" }
