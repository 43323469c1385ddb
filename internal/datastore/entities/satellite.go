package entities

// SatelliteElements is one tabulated element set of an Earth-orbiting object.
// Angles are degrees, MeanMotion is the Kozai mean motion in revolutions per day.
type SatelliteElements struct {
	ID            uint    `gorm:"primaryKey"`
	NoradID       int     `gorm:"not null;uniqueIndex:idx_satellite_norad_epoch,priority:1"`
	Name          string  `gorm:"type:varchar(64)"`
	Epoch         float64 `gorm:"not null;uniqueIndex:idx_satellite_norad_epoch,priority:2;index"`
	MeanMotion    float64
	Eccentricity  float64
	Inclination   float64
	RAAN          float64 `gorm:"column:raan"`
	ArgPerigee    float64
	MeanAnomaly   float64
	BStar         float64 `gorm:"column:bstar"`
	DecayDate     *float64
	Debris        bool `gorm:"index"`
	RevolutionNum int
}

// TableName returns the table name for GORM.
func (SatelliteElements) TableName() string { return "satellite_elements" }

// All lists every model for AutoMigrate, parents before children.
func All() []any {
	return []any{
		&Observatory{},
		&ObservatoryMetadata{},
		&Observation{},
		&ObservationMetadata{},
		&File{},
		&FileMetadata{},
		&ObservationGroup{},
		&ObservationGroupMember{},
		&ObservationGroupMetadata{},
		&SatelliteElements{},
	}
}
