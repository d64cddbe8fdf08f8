// Package notes enforces the 24-hour edit window on clinical notes (NOM-004).
// A note is editable until EditWindow has passed since its date and locked forever after.
// Every function takes the current time explicitly and performs no I/O.
package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// EditWindow is the regulatory period during which a note may be edited.
	EditWindow = 24 * time.Hour
	// ExpiringSoonThreshold marks editable notes that are about to lock.
	ExpiringSoonThreshold = 2 * time.Hour
	// relaxedThreshold separates low from medium urgency.
	relaxedThreshold = 12 * time.Hour
)

var (
	ErrMissingDate = errors.New("note date is missing")
	ErrInvalidDate = errors.New("note date is invalid")
)

// Validation describes whether a note may still be edited at a point in time.
type Validation struct {
	Editable         bool          `json:"editable"`
	Reason           string        `json:"reason"`
	Elapsed          time.Duration `json:"-"`
	Remaining        time.Duration `json:"-"`
	TimeElapsed      string        `json:"time_elapsed"`
	TimeRemaining    string        `json:"time_remaining"`
	MinutesRemaining int           `json:"minutes_remaining"`
	ExpiresAt        *time.Time    `json:"expires_at,omitempty"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseNoteDate parses a note date as it arrives on the wire.
// Layouts without a zone are read as UTC.
func ParseNoteDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrMissingDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// IsNoteEditable checks created against the edit window at now.
// A zero created time yields a non-editable result, never a panic.
func IsNoteEditable(created, now time.Time) Validation {
	if created.IsZero() {
		return Validation{Editable: false, Reason: "Fecha de nota no disponible"}
	}

	elapsed := now.Sub(created)
	expiresAt := created.Add(EditWindow)
	v := Validation{
		Elapsed:     elapsed,
		TimeElapsed: FormatTimeElapsed(elapsed),
		ExpiresAt:   &expiresAt,
	}

	if elapsed <= EditWindow {
		remaining := EditWindow - elapsed
		v.Editable = true
		v.Remaining = remaining
		v.TimeRemaining = FormatTimeRemaining(remaining)
		v.MinutesRemaining = int(remaining / time.Minute)
		v.Reason = "Editable por " + v.TimeRemaining
		return v
	}

	v.TimeRemaining = FormatTimeRemaining(0)
	v.Reason = "Período de edición expirado hace " + FormatTimeElapsed(elapsed-EditWindow)
	return v
}

// IsNoteEditableRaw is IsNoteEditable for a date that has not been parsed yet.
func IsNoteEditableRaw(raw string, now time.Time) Validation {
	created, err := ParseNoteDate(raw)
	if errors.Is(err, ErrMissingDate) {
		return Validation{Editable: false, Reason: "Fecha de nota no disponible"}
	}
	if err != nil {
		return Validation{Editable: false, Reason: "Error al validar fecha"}
	}
	return IsNoteEditable(created, now)
}

// IsExpiringSoon reports whether an editable note locks within ExpiringSoonThreshold.
func IsExpiringSoon(v Validation) bool {
	return v.Editable && v.Remaining < ExpiringSoonThreshold
}

// FormatTimeRemaining renders a remaining duration as "5h 30m" or "12m".
func FormatTimeRemaining(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return "menos de 1m"
	}
}

// FormatTimeElapsed renders an elapsed duration as "2d 3h", "4h 10m" or "7m".
func FormatTimeElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	h := int((d % (24 * time.Hour)) / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, h)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return "menos de 1m"
	}
}
