package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ward-status-backend/internal/beds"
	"ward-status-backend/internal/model"
	"ward-status-backend/internal/rules"
)

// Rules enforced by the write paths on top of the bed validators.
const (
	RulePatientNotFound         = "patient_not_found"
	RulePatientAlreadyAssigned  = "patient_already_assigned"
	RuleBedNotOccupied          = "bed_not_occupied"
	RuleInvalidStatus           = "invalid_status"
	RuleStatusRequiresAssign    = "status_requires_assignment"
	RuleBedOccupiedStatusChange = "bed_occupied_status_change"
)

// UpsertBeds creates the beds that do not exist yet, keyed by floor, area, room and label.
// Existing beds keep their status. It returns the beds that were created.
func (s *gormStore) UpsertBeds(ctx context.Context, items []model.Bed) ([]model.Bed, error) {
	existing, err := s.fetchBedKeys(ctx)
	if err != nil {
		log.Warnf("could not pre-fetch beds: %v", err)
		existing = make(map[bedKey]struct{})
	}

	var toCreate []model.Bed
	for _, b := range items {
		k := keyOf(b)
		if _, ok := existing[k]; ok {
			continue
		}
		existing[k] = struct{}{}
		if b.Status == "" {
			b.Status = model.BedAvailable
			b.IsActive = true
		}
		b.Version = 1
		toCreate = append(toCreate, b)
	}

	if len(toCreate) == 0 {
		return nil, nil
	}

	log.Infof("Batch creating %d beds...", len(toCreate))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "floor"}, {Name: "area"}, {Name: "room"}, {Name: "bed_label"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).Create(&toCreate).Error
	})
	if err != nil {
		return nil, fmt.Errorf("batch upsert beds failed: %w", err)
	}
	return toCreate, nil
}

type bedKey struct {
	floor             int
	area, room, label string
}

func keyOf(b model.Bed) bedKey {
	return bedKey{floor: b.Floor, area: b.Area, room: b.Room, label: b.BedLabel}
}

func (s *gormStore) fetchBedKeys(ctx context.Context) (map[bedKey]struct{}, error) {
	var all []model.Bed
	if err := s.db.WithContext(ctx).Select("floor", "area", "room", "bed_label").Find(&all).Error; err != nil {
		return nil, err
	}
	keys := make(map[bedKey]struct{}, len(all))
	for _, b := range all {
		keys[keyOf(b)] = struct{}{}
	}
	return keys, nil
}

// ListBeds returns beds with their patients, ordered by location.
func (s *gormStore) ListBeds(ctx context.Context, f BedFilter) ([]model.Bed, error) {
	q := s.db.WithContext(ctx).Preload("Patient")
	if f.Floor != nil {
		q = q.Where("floor = ?", *f.Floor)
	}
	if f.Area != "" {
		q = q.Where("area = ?", f.Area)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}

	var out []model.Bed
	if err := q.Order("floor, area, room, bed_label").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list beds: %w", err)
	}
	return out, nil
}

// GetBed loads a bed with its patient.
func (s *gormStore) GetBed(ctx context.Context, id int64) (*model.Bed, error) {
	var b model.Bed
	if err := s.db.WithContext(ctx).Preload("Patient").First(&b, id).Error; err != nil {
		return nil, notFound(err, "bed %d", id)
	}
	return &b, nil
}

// CountBeds aggregates bed counts per floor and area in SQL.
func (s *gormStore) CountBeds(ctx context.Context) ([]beds.AreaCount, error) {
	var rows []beds.AreaCount
	err := s.db.WithContext(ctx).Model(&model.Bed{}).
		Select(`floor, area, COUNT(*) AS total_beds,
			SUM(CASE WHEN status = ? AND is_active = ? THEN 1 ELSE 0 END) AS available_beds,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS occupied_beds,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS maintenance_beds,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS cleaning_beds`,
			model.BedAvailable, true, model.BedOccupied, model.BedMaintenance, model.BedCleaning).
		Group("floor, area").
		Order("floor, area").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count beds: %w", err)
	}
	return rows, nil
}

// AssignBed places a patient in a bed and opens an occupancy record.
func (s *gormStore) AssignBed(ctx context.Context, bedID, patientID int64, version int, now time.Time) (*model.Bed, error) {
	now = now.UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bed, err := loadBed(tx, bedID)
		if err != nil {
			return err
		}

		res := beds.ValidateBedAssignment(bed, patientID)
		if patientID > 0 {
			patientRes, err := checkPatientFree(tx, patientID)
			if err != nil {
				return err
			}
			res.Merge(patientRes)
		}
		if !res.Valid() {
			return &rules.Error{Result: res}
		}
		if err := checkVersion(version, bed.Version); err != nil {
			return err
		}

		if err := casUpdateBed(tx, bed, map[string]any{
			"status":     model.BedOccupied,
			"patient_id": patientID,
			"updated_at": now,
		}); err != nil {
			return err
		}
		return openOccupancy(tx, bed.ID, patientID, now)
	})
	if err != nil {
		return nil, err
	}
	return s.GetBed(ctx, bedID)
}

// ReleaseBed discharges the bed's patient, closes the occupancy record and moves the bed to next
// (cleaning when empty).
func (s *gormStore) ReleaseBed(ctx context.Context, bedID int64, next model.BedStatus, version int, now time.Time) (*model.Bed, error) {
	if next == "" {
		next = model.BedCleaning
	}
	now = now.UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bed, err := loadBed(tx, bedID)
		if err != nil {
			return err
		}

		var res rules.Result
		if bed == nil {
			res.Add(beds.RuleBedNotFound, rules.KindNotFound, "Cama no encontrada")
			return &rules.Error{Result: res}
		}
		if !next.Valid() || next == model.BedOccupied {
			res.Add(RuleInvalidStatus, rules.KindInvalidInput, "Estado de cama inválido")
		}
		if bed.Status != model.BedOccupied || bed.PatientID == nil {
			res.Add(RuleBedNotOccupied, rules.KindStateConflict, "La cama no está ocupada")
		}
		if !res.Valid() {
			return &rules.Error{Result: res}
		}
		if err := checkVersion(version, bed.Version); err != nil {
			return err
		}

		patientID := *bed.PatientID
		if err := casUpdateBed(tx, bed, map[string]any{
			"status":     next,
			"patient_id": nil,
			"updated_at": now,
		}); err != nil {
			return err
		}
		return closeOccupancy(tx, bed.ID, patientID, model.OccupancyEndReleased, now)
	})
	if err != nil {
		return nil, err
	}
	return s.GetBed(ctx, bedID)
}

// TransferBed moves a patient between beds. The source bed goes to cleaning.
func (s *gormStore) TransferBed(ctx context.Context, fromID, toID, patientID int64, now time.Time) (*Transfer, error) {
	now = now.UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		from, err := loadBed(tx, fromID)
		if err != nil {
			return err
		}
		to, err := loadBed(tx, toID)
		if err != nil {
			return err
		}

		res := beds.ValidateBedTransfer(from, to, patientID)
		if !res.Valid() {
			return &rules.Error{Result: res}
		}

		if err := casUpdateBed(tx, from, map[string]any{
			"status":     model.BedCleaning,
			"patient_id": nil,
			"updated_at": now,
		}); err != nil {
			return err
		}
		if err := closeOccupancy(tx, from.ID, patientID, model.OccupancyEndTransferred, now); err != nil {
			return err
		}
		if err := casUpdateBed(tx, to, map[string]any{
			"status":     model.BedOccupied,
			"patient_id": patientID,
			"updated_at": now,
		}); err != nil {
			return err
		}
		return openOccupancy(tx, to.ID, patientID, now)
	})
	if err != nil {
		return nil, err
	}

	from, err := s.GetBed(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.GetBed(ctx, toID)
	if err != nil {
		return nil, err
	}
	return &Transfer{From: from, To: to}, nil
}

// SetBedStatus applies a manual status or activation change to an unoccupied bed.
func (s *gormStore) SetBedStatus(ctx context.Context, bedID int64, change StatusChange) (*model.Bed, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bed, err := loadBed(tx, bedID)
		if err != nil {
			return err
		}

		var res rules.Result
		if bed == nil {
			res.Add(beds.RuleBedNotFound, rules.KindNotFound, "Cama no encontrada")
			return &rules.Error{Result: res}
		}
		status := change.Status
		if status == "" {
			status = bed.Status
		}
		switch {
		case !status.Valid():
			res.Add(RuleInvalidStatus, rules.KindInvalidInput, "Estado de cama inválido")
		case status == model.BedOccupied && bed.Status != model.BedOccupied:
			res.Add(RuleStatusRequiresAssign, rules.KindInvalidInput, "Para ocupar una cama asigne un paciente")
		}
		if bed.Status == model.BedOccupied {
			res.Add(RuleBedOccupiedStatusChange, rules.KindStateConflict, "La cama está ocupada; libérela primero")
		}
		if !res.Valid() {
			return &rules.Error{Result: res}
		}
		if err := checkVersion(change.Version, bed.Version); err != nil {
			return err
		}

		updates := map[string]any{"status": status, "updated_at": s.clock()}
		if change.IsActive != nil {
			updates["is_active"] = *change.IsActive
		}
		return casUpdateBed(tx, bed, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.GetBed(ctx, bedID)
}

// ListOccupancy returns a bed's occupancy history, most recent first.
func (s *gormStore) ListOccupancy(ctx context.Context, bedID int64) ([]model.BedOccupancy, error) {
	var out []model.BedOccupancy
	if err := s.db.WithContext(ctx).
		Where("bed_id = ?", bedID).
		Order("started_at DESC, id DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list occupancy for bed %d: %w", bedID, err)
	}
	return out, nil
}

// loadBed returns nil without error when the bed does not exist, so validators can report it.
func loadBed(tx *gorm.DB, id int64) (*model.Bed, error) {
	var b model.Bed
	if err := tx.First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load bed %d: %w", id, err)
	}
	return &b, nil
}

func checkPatientFree(tx *gorm.DB, patientID int64) (rules.Result, error) {
	var res rules.Result
	var patients int64
	if err := tx.Model(&model.Patient{}).Where("id = ?", patientID).Count(&patients).Error; err != nil {
		return res, fmt.Errorf("failed to look up patient %d: %w", patientID, err)
	}
	if patients == 0 {
		res.Add(RulePatientNotFound, rules.KindNotFound, "Paciente no encontrado")
		return res, nil
	}

	var open int64
	if err := tx.Model(&model.BedOccupancy{}).
		Where("patient_id = ? AND ended_at IS NULL", patientID).
		Count(&open).Error; err != nil {
		return res, fmt.Errorf("failed to look up occupancy of patient %d: %w", patientID, err)
	}
	if open > 0 {
		res.Add(RulePatientAlreadyAssigned, rules.KindStateConflict, "El paciente ya tiene una cama asignada")
	}
	return res, nil
}

func checkVersion(expected, actual int) error {
	if expected != 0 && expected != actual {
		return ErrConcurrentModification
	}
	return nil
}

// casUpdateBed writes updates only if the bed still has the version that was read.
func casUpdateBed(tx *gorm.DB, bed *model.Bed, updates map[string]any) error {
	updates["version"] = bed.Version + 1
	result := tx.Model(&model.Bed{}).
		Where("id = ? AND version = ?", bed.ID, bed.Version).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update bed %d: %w", bed.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func openOccupancy(tx *gorm.DB, bedID, patientID int64, now time.Time) error {
	rec := model.BedOccupancy{BedID: bedID, PatientID: patientID, StartedAt: now}
	if err := tx.Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to open occupancy for bed %d: %w", bedID, err)
	}
	return nil
}

func closeOccupancy(tx *gorm.DB, bedID, patientID int64, reason string, now time.Time) error {
	err := tx.Model(&model.BedOccupancy{}).
		Where("bed_id = ? AND patient_id = ? AND ended_at IS NULL", bedID, patientID).
		Updates(map[string]any{"ended_at": now, "end_reason": reason}).Error
	if err != nil {
		return fmt.Errorf("failed to close occupancy for bed %d: %w", bedID, err)
	}
	return nil
}
