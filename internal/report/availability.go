// Package report renders bed availability summaries as spreadsheets.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"ward-status-backend/internal/beds"
)

// Sheet names of the availability workbook.
const (
	SheetHospital = "Hospital"
	SheetFloors   = "Por piso"
	SheetAreas    = "Por área"
)

var occupancyHeader = []string{"Camas totales", "Disponibles", "Ocupadas", "Ocupación (%)"}

// WriteAvailabilityXLSX writes the summary as a workbook with a hospital-wide sheet,
// a per-floor sheet and a per-area sheet.
func WriteAvailabilityXLSX(w io.Writer, summary beds.Summary, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	// Hospital sheet replaces the default Sheet1.
	if err := f.SetSheetName("Sheet1", SheetHospital); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	hospital := [][]any{
		{"Generado", generatedAt.Format("2006-01-02 15:04")},
		{},
		toAny(occupancyHeader),
		occupancyRow(summary.Occupancy),
	}
	if err := writeRows(f, SheetHospital, hospital, headerStyle, 3); err != nil {
		return err
	}

	floors := [][]any{append([]any{"Piso"}, toAny(occupancyHeader)...)}
	for _, fs := range summary.ByFloor {
		floors = append(floors, append([]any{fs.Floor}, occupancyRow(fs.Occupancy)...))
	}
	if err := newSheet(f, SheetFloors, floors, headerStyle); err != nil {
		return err
	}

	areas := [][]any{append([]any{"Área"}, toAny(occupancyHeader)...)}
	for _, as := range summary.ByArea {
		areas = append(areas, append([]any{as.Area}, occupancyRow(as.Occupancy)...))
	}
	if err := newSheet(f, SheetAreas, areas, headerStyle); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func occupancyRow(o beds.Occupancy) []any {
	return []any{o.TotalBeds, o.AvailableBeds, o.OccupiedBeds, o.OccupancyRate}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func newSheet(f *excelize.File, name string, rows [][]any, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	return writeRows(f, name, rows, headerStyle, 1)
}

// writeRows writes rows from A1 and styles the given 1-based header row.
func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle, headerRow int) error {
	width := 0
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, sheet, err)
		}
		if len(row) > width {
			width = len(row)
		}
	}

	if headerRow > 0 && headerRow <= len(rows) && len(rows[headerRow-1]) > 0 {
		first, _ := excelize.CoordinatesToCellName(1, headerRow)
		last, _ := excelize.CoordinatesToCellName(len(rows[headerRow-1]), headerRow)
		if err := f.SetCellStyle(sheet, first, last, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	if width > 0 {
		lastCol, _ := excelize.ColumnNumberToName(width)
		if err := f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}
