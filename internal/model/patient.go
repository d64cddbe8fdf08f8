package model

import "time"

// Patient is the minimal patient record beds and notes refer to.
type Patient struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:256;not null" json:"name"`
	RecordNumber string    `gorm:"size:64;index" json:"record_number"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}
