package beds

import (
	"sort"

	"ward-status-backend/internal/model"
)

// AreaCount is one pre-aggregated row of bed counts for a floor/area pair,
// as produced by the store's GROUP BY query or by CountByFloorAndArea.
type AreaCount struct {
	Floor           int    `json:"floor"`
	Area            string `json:"area"`
	TotalBeds       int    `json:"total_beds"`
	AvailableBeds   int    `json:"available_beds"`
	OccupiedBeds    int    `json:"occupied_beds"`
	MaintenanceBeds int    `json:"maintenance_beds"`
	CleaningBeds    int    `json:"cleaning_beds"`
}

// Occupancy is a rolled-up count with its occupancy rate.
type Occupancy struct {
	TotalBeds     int `json:"total_beds"`
	AvailableBeds int `json:"available_beds"`
	OccupiedBeds  int `json:"occupied_beds"`
	OccupancyRate int `json:"occupancy_rate"`
}

// FloorSummary is the occupancy of one floor.
type FloorSummary struct {
	Floor int `json:"floor"`
	Occupancy
}

// AreaSummary is the occupancy of one area across floors.
type AreaSummary struct {
	Area string `json:"area"`
	Occupancy
}

// Summary is the hospital-wide availability report.
type Summary struct {
	Occupancy
	ByFloor []FloorSummary `json:"by_floor"`
	ByArea  []AreaSummary  `json:"by_area"`
}

func (o *Occupancy) add(row AreaCount) {
	o.TotalBeds += row.TotalBeds
	o.AvailableBeds += row.AvailableBeds
	o.OccupiedBeds += row.OccupiedBeds
}

func (o *Occupancy) rate() {
	o.OccupancyRate = OccupancyRate(o.OccupiedBeds, o.TotalBeds)
}

// GenerateAvailabilitySummary rolls count rows up per floor, per area and overall.
func GenerateAvailabilitySummary(rows []AreaCount) Summary {
	var summary Summary
	floors := make(map[int]*FloorSummary)
	areas := make(map[string]*AreaSummary)

	for _, row := range rows {
		summary.add(row)

		fs, ok := floors[row.Floor]
		if !ok {
			fs = &FloorSummary{Floor: row.Floor}
			floors[row.Floor] = fs
		}
		fs.add(row)

		as, ok := areas[row.Area]
		if !ok {
			as = &AreaSummary{Area: row.Area}
			areas[row.Area] = as
		}
		as.add(row)
	}
	summary.rate()

	summary.ByFloor = make([]FloorSummary, 0, len(floors))
	for _, fs := range floors {
		fs.rate()
		summary.ByFloor = append(summary.ByFloor, *fs)
	}
	sort.Slice(summary.ByFloor, func(i, j int) bool { return summary.ByFloor[i].Floor < summary.ByFloor[j].Floor })

	summary.ByArea = make([]AreaSummary, 0, len(areas))
	for _, as := range areas {
		as.rate()
		summary.ByArea = append(summary.ByArea, *as)
	}
	sort.Slice(summary.ByArea, func(i, j int) bool { return summary.ByArea[i].Area < summary.ByArea[j].Area })

	return summary
}

// CountByFloorAndArea builds count rows from a bed snapshot.
// Available counts only beds that IsBedAvailable accepts.
func CountByFloorAndArea(beds []model.Bed) []AreaCount {
	type key struct {
		floor int
		area  string
	}
	index := make(map[key]int)
	var rows []AreaCount
	for _, b := range beds {
		k := key{b.Floor, b.Area}
		i, ok := index[k]
		if !ok {
			i = len(rows)
			index[k] = i
			rows = append(rows, AreaCount{Floor: b.Floor, Area: b.Area})
		}
		row := &rows[i]
		row.TotalBeds++
		switch b.Status {
		case model.BedAvailable:
			if b.IsActive {
				row.AvailableBeds++
			}
		case model.BedOccupied:
			row.OccupiedBeds++
		case model.BedMaintenance:
			row.MaintenanceBeds++
		case model.BedCleaning:
			row.CleaningBeds++
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Floor != rows[j].Floor {
			return rows[i].Floor < rows[j].Floor
		}
		return rows[i].Area < rows[j].Area
	})
	return rows
}
