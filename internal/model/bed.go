package model

import "time"

// BedStatus describes how assignable a physical bed currently is.
type BedStatus string

const (
	BedAvailable   BedStatus = "available"
	BedOccupied    BedStatus = "occupied"
	BedMaintenance BedStatus = "maintenance"
	BedCleaning    BedStatus = "cleaning"
)

// BedStatuses lists every known status in display order.
var BedStatuses = []BedStatus{BedAvailable, BedOccupied, BedMaintenance, BedCleaning}

// Valid reports whether s is a known status.
func (s BedStatus) Valid() bool {
	for _, known := range BedStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Bed represents a physical hospital bed.
// An occupied bed always carries a PatientID; any other status carries none (beds.CheckInvariant).
type Bed struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Floor     int       `gorm:"not null;uniqueIndex:idx_bed_location" json:"floor"`
	Area      string    `gorm:"size:128;not null;uniqueIndex:idx_bed_location" json:"area"`
	Room      string    `gorm:"size:32;not null;uniqueIndex:idx_bed_location" json:"room"`
	BedLabel  string    `gorm:"size:32;not null;uniqueIndex:idx_bed_location" json:"bed_label"`
	Status    BedStatus `gorm:"size:16;not null;index" json:"status"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	PatientID *int64    `gorm:"index" json:"patient_id"`
	Version   int       `gorm:"not null" json:"version"` // optimistic concurrency token
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Patient *Patient `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}
