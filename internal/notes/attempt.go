package notes

import (
	"fmt"
	"strings"
	"time"

	"ward-status-backend/internal/model"
)

// Urgency drives the visual severity of a note's edit status.
type Urgency string

const (
	UrgencyLow     Urgency = "low"
	UrgencyMedium  Urgency = "medium"
	UrgencyHigh    Urgency = "high"
	UrgencyBlocked Urgency = "blocked"
)

// Indicator is the UI badge for a note's edit status.
type Indicator struct {
	Urgency Urgency `json:"urgency"`
	Label   string  `json:"label"`
	Color   string  `json:"color"`
}

// GetEditabilityIndicator classifies a validation by how soon the note locks.
func GetEditabilityIndicator(v Validation) Indicator {
	switch {
	case !v.Editable:
		return Indicator{Urgency: UrgencyBlocked, Label: "Bloqueada", Color: "gray"}
	case IsExpiringSoon(v):
		return Indicator{Urgency: UrgencyHigh, Label: "Expira pronto", Color: "red"}
	case v.Remaining <= relaxedThreshold:
		return Indicator{Urgency: UrgencyMedium, Label: "Editable", Color: "yellow"}
	default:
		return Indicator{Urgency: UrgencyLow, Label: "Editable", Color: "green"}
	}
}

// User is the caller attempting an edit.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// CanBypassEditRestrictions reports whether user holds the admin capability.
// It unlocks nothing by itself; the write path decides whether to act on it.
func CanBypassEditRestrictions(user *User) bool {
	if user == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(user.Role), "admin")
}

// EditAttempt is the outcome of ValidateEditAttempt.
type EditAttempt struct {
	Allowed    bool                 `json:"allowed"`
	Validation Validation           `json:"validation"`
	AuditEntry model.EditAuditEntry `json:"audit_entry"`
}

// ValidateEditAttempt checks the edit window for note and prepares the audit entry.
// The entry is not persisted here.
func ValidateEditAttempt(note model.Note, user *User, now time.Time) EditAttempt {
	v := IsNoteEditable(note.Date, now)

	attemptedBy, role := "desconocido", ""
	if user != nil {
		attemptedBy, role = user.ID, user.Role
	}
	var age string
	if !note.Date.IsZero() {
		age = FormatTimeElapsed(now.Sub(note.Date))
	}

	return EditAttempt{
		Allowed:    v.Editable,
		Validation: v,
		AuditEntry: model.EditAuditEntry{
			NoteID:          note.ID,
			PatientID:       note.PatientID,
			AttemptedBy:     attemptedBy,
			AttemptedByRole: role,
			AttemptDate:     now,
			WasAllowed:      v.Editable,
			Reason:          v.Reason,
			NoteAge:         age,
		},
	}
}

// Counts summarizes Groups.
type Counts struct {
	Total        int `json:"total"`
	Editable     int `json:"editable"`
	ExpiringSoon int `json:"expiring_soon"`
	Expired      int `json:"expired"`
}

// Groups partitions notes by edit status. ExpiringSoon is a subset of Editable.
type Groups struct {
	Editable     []model.Note `json:"editable"`
	ExpiringSoon []model.Note `json:"expiring_soon"`
	Expired      []model.Note `json:"expired"`
	Counts       Counts       `json:"counts"`
}

// GroupNotesByEditability partitions notes as of now. Notes without a usable date count as expired.
func GroupNotesByEditability(notes []model.Note, now time.Time) Groups {
	g := Groups{
		Editable:     []model.Note{},
		ExpiringSoon: []model.Note{},
		Expired:      []model.Note{},
	}
	for _, n := range notes {
		v := IsNoteEditable(n.Date, now)
		if !v.Editable {
			g.Expired = append(g.Expired, n)
			continue
		}
		g.Editable = append(g.Editable, n)
		if IsExpiringSoon(v) {
			g.ExpiringSoon = append(g.ExpiringSoon, n)
		}
	}
	g.Counts = Counts{
		Total:        len(notes),
		Editable:     len(g.Editable),
		ExpiringSoon: len(g.ExpiringSoon),
		Expired:      len(g.Expired),
	}
	return g
}

// Warning announces notes that are about to lock.
type Warning struct {
	Count   int          `json:"count"`
	Notes   []model.Note `json:"notes"`
	Message string       `json:"message"`
}

// GetExpiringNotesWarning returns nil when no note is about to lock.
func GetExpiringNotesWarning(notes []model.Note, now time.Time) *Warning {
	expiring := GroupNotesByEditability(notes, now).ExpiringSoon
	if len(expiring) == 0 {
		return nil
	}
	hours := int(ExpiringSoonThreshold / time.Hour)
	msg := fmt.Sprintf("%d notas expirarán en menos de %d horas", len(expiring), hours)
	if len(expiring) == 1 {
		msg = fmt.Sprintf("1 nota expirará en menos de %d horas", hours)
	}
	return &Warning{Count: len(expiring), Notes: expiring, Message: msg}
}
