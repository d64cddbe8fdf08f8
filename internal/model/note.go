package model

import "time"

// Note is a clinical note. Date is set once at creation and drives the edit window.
type Note struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	PatientID int64      `gorm:"not null;index" json:"patient_id"`
	Date      time.Time  `gorm:"not null;index" json:"date"`
	Text      string     `gorm:"type:text;not null" json:"text"`
	AuthorID  string     `gorm:"size:64" json:"author_id"`
	Version   int        `gorm:"not null" json:"version"`
	LockedAt  *time.Time `json:"locked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Associations
	EditHistory []NoteEdit `gorm:"foreignKey:NoteID" json:"edit_history,omitempty"`
}

// NoteEdit is one entry of a note's edit history.
type NoteEdit struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	NoteID       string    `gorm:"size:36;not null;index" json:"note_id"`
	EditedBy     string    `gorm:"size:64;not null" json:"edited_by"`
	EditDate     time.Time `gorm:"not null" json:"edit_date"`
	PreviousText string    `gorm:"type:text" json:"previous_text"`
	Bypassed     bool      `gorm:"not null" json:"bypassed"`
}

// EditAuditEntry is the permanent record of an edit attempt, allowed or not.
type EditAuditEntry struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	NoteID          string    `gorm:"size:36;not null;index" json:"note_id"`
	PatientID       int64     `gorm:"not null;index" json:"patient_id"`
	AttemptedBy     string    `gorm:"size:64;not null" json:"attempted_by"`
	AttemptedByRole string    `gorm:"size:32" json:"attempted_by_role"`
	AttemptDate     time.Time `gorm:"not null;index" json:"attempt_date"`
	WasAllowed      bool      `gorm:"not null" json:"was_allowed"`
	Bypassed        bool      `gorm:"not null" json:"bypassed"`
	Reason          string    `gorm:"size:256" json:"reason"`
	NoteAge         string    `gorm:"size:32" json:"note_age"`
}
