package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ward-status-backend/internal/model"
	"ward-status-backend/internal/notes"
	"ward-status-backend/internal/rules"
)

// Rules enforced by the note write paths.
const (
	RuleNoteTextRequired   = "note_text_required"
	RuleEditWindowExpired  = "edit_window_expired"
	RuleNotePatientMissing = "note_patient_not_found"
	RuleNoteDateInFuture   = "note_date_in_future"
)

// MaxNoteClockSkew is how far ahead of the server clock a note may be dated.
const MaxNoteClockSkew = time.Minute

// CreateNote inserts a note. Id and date are filled in when empty; a date later than the
// server clock plus MaxNoteClockSkew is rejected since it would keep the note editable.
func (s *gormStore) CreateNote(ctx context.Context, n *model.Note) error {
	now := s.clock()
	var res rules.Result
	if strings.TrimSpace(n.Text) == "" {
		res.Add(RuleNoteTextRequired, rules.KindInvalidInput, "El texto de la nota es requerido")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Date.IsZero() {
		n.Date = now
	}
	n.Date = n.Date.UTC()
	if n.Date.After(now.Add(MaxNoteClockSkew)) {
		res.Add(RuleNoteDateInFuture, rules.KindInvalidInput, "La fecha de la nota no puede ser futura")
	}
	n.Version = 1

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var patients int64
		if err := tx.Model(&model.Patient{}).Where("id = ?", n.PatientID).Count(&patients).Error; err != nil {
			return fmt.Errorf("failed to look up patient %d: %w", n.PatientID, err)
		}
		if patients == 0 {
			res.Add(RuleNotePatientMissing, rules.KindNotFound, "Paciente no encontrado")
		}
		if !res.Valid() {
			return &rules.Error{Result: res}
		}
		if err := tx.Create(n).Error; err != nil {
			return fmt.Errorf("failed to create note: %w", err)
		}
		return nil
	})
}

// GetNote loads a note with its edit history.
func (s *gormStore) GetNote(ctx context.Context, id string) (*model.Note, error) {
	var n model.Note
	err := s.db.WithContext(ctx).
		Preload("EditHistory", func(db *gorm.DB) *gorm.DB { return db.Order("edit_date, id") }).
		First(&n, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "note %s", id)
	}
	return &n, nil
}

// ListNotes returns notes newest first.
func (s *gormStore) ListNotes(ctx context.Context, f NoteFilter) ([]model.Note, error) {
	q := s.db.WithContext(ctx)
	if f.PatientID > 0 {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.Unlocked {
		q = q.Where("locked_at IS NULL")
	}

	var out []model.Note
	if err := q.Order("date DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return out, nil
}

// EditNote applies an edit if the note is still inside its edit window, or if the user may
// bypass the window. The audit entry is committed whatever the outcome; a denied edit
// returns the outcome together with a *rules.Error.
func (s *gormStore) EditNote(ctx context.Context, req EditRequest) (*EditOutcome, error) {
	if strings.TrimSpace(req.Text) == "" {
		var res rules.Result
		res.Add(RuleNoteTextRequired, rules.KindInvalidInput, "El texto de la nota es requerido")
		return nil, &rules.Error{Result: res}
	}
	req.Now = req.Now.UTC()

	var (
		outcome EditOutcome
		denied  *rules.Error
		stale   bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var note model.Note
		if err := tx.First(&note, "id = ?", req.NoteID).Error; err != nil {
			return notFound(err, "note %s", req.NoteID)
		}

		attempt := notes.ValidateEditAttempt(note, req.User, req.Now)
		bypassed := !attempt.Allowed && notes.CanBypassEditRestrictions(req.User)

		audit := attempt.AuditEntry
		audit.ID = uuid.NewString()
		audit.Bypassed = bypassed
		if err := tx.Create(&audit).Error; err != nil {
			return fmt.Errorf("failed to record edit audit for note %s: %w", note.ID, err)
		}
		outcome = EditOutcome{Attempt: attempt, Bypassed: bypassed, Audit: audit}

		if !attempt.Allowed && !bypassed {
			var res rules.Result
			res.Add(RuleEditWindowExpired, rules.KindStateConflict, attempt.Validation.Reason)
			denied = &rules.Error{Result: res}
			return nil
		}
		if req.Version != 0 && req.Version != note.Version {
			stale = true
			return nil
		}

		result := tx.Model(&model.Note{}).
			Where("id = ? AND version = ?", note.ID, note.Version).
			Updates(map[string]any{
				"text":       req.Text,
				"version":    note.Version + 1,
				"updated_at": req.Now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update note %s: %w", note.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			stale = true
			return nil
		}

		edit := model.NoteEdit{
			NoteID:       note.ID,
			EditedBy:     audit.AttemptedBy,
			EditDate:     req.Now,
			PreviousText: note.Text,
			Bypassed:     bypassed,
		}
		if err := tx.Create(&edit).Error; err != nil {
			return fmt.Errorf("failed to record edit history for note %s: %w", note.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if denied != nil {
		return &outcome, denied
	}
	if stale {
		return &outcome, ErrConcurrentModification
	}

	outcome.Note, err = s.GetNote(ctx, req.NoteID)
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

// ListEditAudit returns every recorded edit attempt on a note, oldest first.
func (s *gormStore) ListEditAudit(ctx context.Context, noteID string) ([]model.EditAuditEntry, error) {
	var out []model.EditAuditEntry
	if err := s.db.WithContext(ctx).
		Where("note_id = ?", noteID).
		Order("attempt_date, id").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list edit audit for note %s: %w", noteID, err)
	}
	return out, nil
}

// LockExpiredNotes stamps locked_at on notes whose edit window closed before now.
func (s *gormStore) LockExpiredNotes(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	result := s.db.WithContext(ctx).Model(&model.Note{}).
		Where("locked_at IS NULL AND date < ?", now.Add(-notes.EditWindow)).
		UpdateColumn("locked_at", now)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to lock expired notes: %w", result.Error)
	}
	return result.RowsAffected, nil
}
