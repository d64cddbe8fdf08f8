package beds

import (
	"fmt"
	"math"

	"ward-status-backend/internal/model"
)

var statusLabels = map[model.BedStatus]string{
	model.BedAvailable:   "Disponible",
	model.BedOccupied:    "Ocupada",
	model.BedMaintenance: "Mantenimiento",
	model.BedCleaning:    "Limpieza",
}

// StatusLabel returns the Spanish display label of a status.
func StatusLabel(status model.BedStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return "Desconocido"
}

// FormatBedLabel renders a bed's location for messages and reports.
func FormatBedLabel(bed model.Bed) string {
	return fmt.Sprintf("%s P%d-%s-%s", bed.Area, bed.Floor, bed.Room, bed.BedLabel)
}

// OccupancyRate is occupied/total as a rounded percentage; 0 when total is 0.
func OccupancyRate(occupied, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(occupied) / float64(total) * 100))
}
