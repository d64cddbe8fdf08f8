package store

import (
	"errors"
	"time"

	"ward-status-backend/internal/model"
	"ward-status-backend/internal/notes"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConcurrentModification is returned when a row changed between read and write.
	ErrConcurrentModification = errors.New("record was modified concurrently")
)

// BedFilter narrows ListBeds. Zero fields do not filter.
type BedFilter struct {
	Floor      *int
	Area       string
	Status     model.BedStatus
	ActiveOnly bool
}

// NoteFilter narrows ListNotes. Zero fields do not filter.
type NoteFilter struct {
	PatientID int64
	Unlocked  bool // only notes the sweeper has not stamped yet
}

// StatusChange is a manual bed status update. Version 0 skips the client-side version check.
type StatusChange struct {
	Status   model.BedStatus
	IsActive *bool
	Version  int
}

// EditRequest is a note edit submitted by a user.
type EditRequest struct {
	NoteID  string
	Text    string
	User    *notes.User
	Version int // expected note version; 0 skips the check
	Now     time.Time
}

// EditOutcome reports what happened to an edit attempt. Audit is always persisted.
type EditOutcome struct {
	Note     *model.Note
	Attempt  notes.EditAttempt
	Bypassed bool
	Audit    model.EditAuditEntry
}

// Transfer is the pair of beds after a successful transfer.
type Transfer struct {
	From *model.Bed `json:"from"`
	To   *model.Bed `json:"to"`
}
