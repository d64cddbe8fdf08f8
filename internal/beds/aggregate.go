package beds

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"ward-status-backend/internal/model"
)

// Stats counts beds per status.
type Stats struct {
	Total         int `json:"total"`
	Available     int `json:"available"`
	Occupied      int `json:"occupied"`
	Maintenance   int `json:"maintenance"`
	Cleaning      int `json:"cleaning"`
	Inactive      int `json:"inactive"`
	OccupancyRate int `json:"occupancy_rate"`
}

// RoomGroup holds the beds of one room.
type RoomGroup struct {
	Floor int         `json:"floor"`
	Area  string      `json:"area"`
	Room  string      `json:"room"`
	Beds  []model.Bed `json:"beds"`
	Stats Stats       `json:"stats"`
}

// AreaGroup holds the beds of one area within a floor.
type AreaGroup struct {
	Area  string      `json:"area"`
	Beds  []model.Bed `json:"beds"`
	Stats Stats       `json:"stats"`
}

// FloorGroup holds the areas of one floor.
type FloorGroup struct {
	Floor int         `json:"floor"`
	Areas []AreaGroup `json:"areas"`
	Stats Stats       `json:"stats"`
}

// GetBedStats counts the beds per status. Inactive beds are counted under their status too.
func GetBedStats(beds []model.Bed) Stats {
	stats := Stats{Total: len(beds)}
	for _, b := range beds {
		switch b.Status {
		case model.BedAvailable:
			stats.Available++
		case model.BedOccupied:
			stats.Occupied++
		case model.BedMaintenance:
			stats.Maintenance++
		case model.BedCleaning:
			stats.Cleaning++
		}
		if !b.IsActive {
			stats.Inactive++
		}
	}
	stats.OccupancyRate = OccupancyRate(stats.Occupied, stats.Total)
	return stats
}

// GroupBedsByRoom groups beds by floor, area and room, ordered by location.
func GroupBedsByRoom(beds []model.Bed) []RoomGroup {
	type roomKey struct {
		floor      int
		area, room string
	}
	index := make(map[roomKey]int)
	var groups []RoomGroup
	for _, b := range beds {
		k := roomKey{b.Floor, b.Area, b.Room}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, RoomGroup{Floor: b.Floor, Area: b.Area, Room: b.Room})
		}
		groups[i].Beds = append(groups[i].Beds, b)
	}

	for i := range groups {
		sortBeds(groups[i].Beds)
		groups[i].Stats = GetBedStats(groups[i].Beds)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Floor != groups[j].Floor {
			return groups[i].Floor < groups[j].Floor
		}
		if groups[i].Area != groups[j].Area {
			return groups[i].Area < groups[j].Area
		}
		return groups[i].Room < groups[j].Room
	})
	return groups
}

// GroupBedsByFloorAndArea nests beds by floor, then area.
func GroupBedsByFloorAndArea(beds []model.Bed) []FloorGroup {
	byFloor := make(map[int]map[string][]model.Bed)
	for _, b := range beds {
		if byFloor[b.Floor] == nil {
			byFloor[b.Floor] = make(map[string][]model.Bed)
		}
		byFloor[b.Floor][b.Area] = append(byFloor[b.Floor][b.Area], b)
	}

	floors := make([]FloorGroup, 0, len(byFloor))
	for floor, areas := range byFloor {
		fg := FloorGroup{Floor: floor}
		var all []model.Bed
		for area, areaBeds := range areas {
			sortBeds(areaBeds)
			fg.Areas = append(fg.Areas, AreaGroup{Area: area, Beds: areaBeds, Stats: GetBedStats(areaBeds)})
			all = append(all, areaBeds...)
		}
		sort.Slice(fg.Areas, func(i, j int) bool { return fg.Areas[i].Area < fg.Areas[j].Area })
		fg.Stats = GetBedStats(all)
		floors = append(floors, fg)
	}
	sort.Slice(floors, func(i, j int) bool { return floors[i].Floor < floors[j].Floor })
	return floors
}

// FilterBedsByStatus keeps the beds in the given status. An empty status or "all" keeps everything.
func FilterBedsByStatus(beds []model.Bed, status string) []model.Bed {
	if status == "" || status == "all" {
		return beds
	}
	out := make([]model.Bed, 0, len(beds))
	for _, b := range beds {
		if string(b.Status) == status {
			out = append(out, b)
		}
	}
	return out
}

// SearchBeds matches query against area, room, label, status label and patient name,
// ignoring case and accents. An empty query keeps everything.
func SearchBeds(beds []model.Bed, query string) []model.Bed {
	q := fold(strings.TrimSpace(query))
	if q == "" {
		return beds
	}
	out := make([]model.Bed, 0, len(beds))
	for _, b := range beds {
		fields := []string{b.Area, b.Room, b.BedLabel, StatusLabel(b.Status), FormatBedLabel(b)}
		if b.Patient != nil {
			fields = append(fields, b.Patient.Name)
		}
		for _, f := range fields {
			if strings.Contains(fold(f), q) {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

func sortBeds(beds []model.Bed) {
	sort.SliceStable(beds, func(i, j int) bool {
		if beds[i].Room != beds[j].Room {
			return beds[i].Room < beds[j].Room
		}
		return beds[i].BedLabel < beds[j].BedLabel
	})
}

// fold lower-cases s and strips combining marks so "Pediatría" matches "pediatria".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
