package entities

// ObservationGroup collects observations of one event, such as simultaneous
// detections from several stations.
type ObservationGroup struct {
	ID           uint    `gorm:"primaryKey"`
	PublicID     string  `gorm:"type:varchar(36);uniqueIndex;not null"`
	SemanticType string  `gorm:"type:varchar(64);not null;index:idx_group_type_time,priority:1"`
	Time         float64 `gorm:"not null;index:idx_group_type_time,priority:2"`
	SetAt        float64
	SetBy        string `gorm:"type:varchar(64)"`

	Members  []ObservationGroupMember   `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	Metadata []ObservationGroupMetadata `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (ObservationGroup) TableName() string { return "observation_groups" }

// ObservationGroupMember links an observation into a group at a position.
type ObservationGroupMember struct {
	ID            uint `gorm:"primaryKey"`
	GroupID       uint `gorm:"not null;index"`
	ObservationID uint `gorm:"not null;index"`
	Position      int  `gorm:"not null"`

	Observation *Observation `gorm:"foreignKey:ObservationID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (ObservationGroupMember) TableName() string { return "observation_group_members" }
