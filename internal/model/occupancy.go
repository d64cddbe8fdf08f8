package model

import (
	"time"
)

// Reasons an occupancy period was closed.
const (
	OccupancyEndReleased    = "released"
	OccupancyEndTransferred = "transferred"
)

// BedOccupancy records a patient's stay in a bed. The row is open (EndedAt nil) while the
// patient occupies the bed and is closed on release or transfer; rows are never deleted.
type BedOccupancy struct {
	ID        int64      `gorm:"primaryKey" json:"id"`
	BedID     int64      `gorm:"not null;index" json:"bed_id"`
	PatientID int64      `gorm:"not null;index" json:"patient_id"`
	StartedAt time.Time  `gorm:"not null" json:"started_at"`
	EndedAt   *time.Time `gorm:"index" json:"ended_at"`
	EndReason string     `gorm:"size:32" json:"end_reason,omitempty"`
}
