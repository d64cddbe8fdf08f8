// Package beds holds the bed assignment rules and read-only aggregations over bed snapshots.
// Nothing here performs I/O; callers supply consistent in-memory records.
package beds

import (
	"fmt"
	"strings"

	"ward-status-backend/internal/model"
	"ward-status-backend/internal/rules"
)

// Rule identifiers reported in violations.
const (
	RuleBedNotFound          = "bed_not_found"
	RulePatientRequired      = "patient_required"
	RuleBedInactive          = "bed_inactive"
	RuleBedNotAvailable      = "bed_not_available"
	RuleBedHeldByOther       = "bed_held_by_other_patient"
	RuleOccupiedWithoutOwner = "occupied_without_patient"
	RulePatientOnFreeBed     = "patient_on_unoccupied_bed"
	RuleSourceNotFound       = "source_bed_not_found"
	RuleTargetNotFound       = "target_bed_not_found"
	RuleSourceNotHeld        = "source_not_held_by_patient"
	RuleSourceNotOccupied    = "source_not_occupied"
	RuleTargetNotAvailable   = "target_not_available"
	RuleTargetInactive       = "target_inactive"
	RuleSameBed              = "same_bed"
)

// IsBedAvailable reports whether a bed can receive a patient right now.
func IsBedAvailable(bed model.Bed) bool {
	return bed.Status == model.BedAvailable && bed.IsActive
}

// CheckInvariant reports a violation when a bed's status and patient reference disagree.
func CheckInvariant(bed model.Bed) rules.Result {
	var res rules.Result
	if bed.Status == model.BedOccupied && bed.PatientID == nil {
		res.Add(RuleOccupiedWithoutOwner, rules.KindStateConflict,
			fmt.Sprintf("La cama %s está ocupada sin paciente asignado", FormatBedLabel(bed)))
	}
	if bed.Status != model.BedOccupied && bed.PatientID != nil {
		res.Add(RulePatientOnFreeBed, rules.KindStateConflict,
			fmt.Sprintf("La cama %s tiene paciente asignado sin estar ocupada", FormatBedLabel(bed)))
	}
	return res
}

// ValidateBedAssignment decides whether patientID may be placed in bed.
// Every applicable reason is reported, not just the first.
func ValidateBedAssignment(bed *model.Bed, patientID int64) rules.Result {
	var res rules.Result
	if bed == nil {
		res.Add(RuleBedNotFound, rules.KindNotFound, "Cama no encontrada")
		if patientID <= 0 {
			res.Add(RulePatientRequired, rules.KindInvalidInput, "Paciente requerido")
		}
		return res
	}

	if patientID <= 0 {
		res.Add(RulePatientRequired, rules.KindInvalidInput, "Paciente requerido")
	}
	if !bed.IsActive {
		res.Add(RuleBedInactive, rules.KindStateConflict, "La cama está inactiva")
	}
	if bed.Status != model.BedAvailable {
		res.Add(RuleBedNotAvailable, rules.KindStateConflict,
			fmt.Sprintf("La cama está %s", strings.ToLower(StatusLabel(bed.Status))))
	}
	if bed.PatientID != nil && *bed.PatientID != patientID {
		res.Add(RuleBedHeldByOther, rules.KindStateConflict, "La cama ya está ocupada por otro paciente")
	}
	res.Merge(CheckInvariant(*bed))
	return res
}

// ValidateBedTransfer decides whether patientID may move from one bed to another.
func ValidateBedTransfer(fromBed, toBed *model.Bed, patientID int64) rules.Result {
	var res rules.Result
	if fromBed == nil {
		res.Add(RuleSourceNotFound, rules.KindNotFound, "Cama de origen no encontrada")
	}
	if toBed == nil {
		res.Add(RuleTargetNotFound, rules.KindNotFound, "Cama de destino no encontrada")
	}
	if patientID <= 0 {
		res.Add(RulePatientRequired, rules.KindInvalidInput, "Paciente requerido")
	}

	if fromBed != nil {
		if fromBed.PatientID == nil || *fromBed.PatientID != patientID {
			res.Add(RuleSourceNotHeld, rules.KindStateConflict, "El paciente no está asignado a la cama de origen")
		}
		if fromBed.Status != model.BedOccupied {
			res.Add(RuleSourceNotOccupied, rules.KindStateConflict, "La cama de origen no está ocupada")
		}
	}
	if toBed != nil {
		if toBed.Status != model.BedAvailable {
			res.Add(RuleTargetNotAvailable, rules.KindStateConflict,
				fmt.Sprintf("La cama de destino está %s", strings.ToLower(StatusLabel(toBed.Status))))
		}
		if !toBed.IsActive {
			res.Add(RuleTargetInactive, rules.KindStateConflict, "La cama de destino está inactiva")
		}
	}
	if fromBed != nil && toBed != nil && fromBed.ID == toBed.ID {
		res.Add(RuleSameBed, rules.KindStateConflict, "La cama de origen y destino son la misma")
	}
	return res
}
