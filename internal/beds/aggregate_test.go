package beds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ward-status-backend/internal/model"
)

func sampleBeds() []model.Bed {
	return []model.Bed{
		{ID: 1, Floor: 1, Area: "Urgencias", Room: "101", BedLabel: "A", Status: model.BedAvailable, IsActive: true},
		{ID: 2, Floor: 1, Area: "Urgencias", Room: "101", BedLabel: "B", Status: model.BedOccupied, IsActive: true, PatientID: ptr(7), Patient: &model.Patient{ID: 7, Name: "José Núñez"}},
		{ID: 3, Floor: 2, Area: "Pediatría", Room: "201", BedLabel: "A", Status: model.BedCleaning, IsActive: true},
		{ID: 4, Floor: 2, Area: "UCI", Room: "210", BedLabel: "A", Status: model.BedMaintenance, IsActive: false},
		{ID: 5, Floor: 2, Area: "UCI", Room: "210", BedLabel: "B", Status: model.BedAvailable, IsActive: false},
	}
}

func TestGetBedStats(t *testing.T) {
	stats := GetBedStats(sampleBeds())
	assert.Equal(t, Stats{Total: 5, Available: 2, Occupied: 1, Maintenance: 1, Cleaning: 1, Inactive: 2, OccupancyRate: 20}, stats)
	assert.Equal(t, Stats{}, GetBedStats(nil))
}

func TestGroupBedsByRoom(t *testing.T) {
	groups := GroupBedsByRoom(sampleBeds())
	require.Len(t, groups, 3)
	assert.Equal(t, "101", groups[0].Room)
	assert.Len(t, groups[0].Beds, 2)
	assert.Equal(t, 50, groups[0].Stats.OccupancyRate)
	assert.Equal(t, "Pediatría", groups[1].Area)
	assert.Equal(t, "UCI", groups[2].Area)
	assert.Equal(t, []string{"A", "B"}, []string{groups[2].Beds[0].BedLabel, groups[2].Beds[1].BedLabel})
}

func TestGroupBedsByFloorAndArea(t *testing.T) {
	floors := GroupBedsByFloorAndArea(sampleBeds())
	require.Len(t, floors, 2)
	assert.Equal(t, 1, floors[0].Floor)
	assert.Equal(t, 2, floors[0].Stats.Total)
	require.Len(t, floors[1].Areas, 2)
	assert.Equal(t, "Pediatría", floors[1].Areas[0].Area)
	assert.Equal(t, "UCI", floors[1].Areas[1].Area)
	assert.Equal(t, 2, floors[1].Areas[1].Stats.Inactive)
}

func TestFilterBedsByStatus(t *testing.T) {
	all := sampleBeds()
	assert.Len(t, FilterBedsByStatus(all, ""), 5)
	assert.Len(t, FilterBedsByStatus(all, "all"), 5)
	assert.Len(t, FilterBedsByStatus(all, "available"), 2)
	assert.Len(t, FilterBedsByStatus(all, "occupied"), 1)
	assert.Empty(t, FilterBedsByStatus(all, "unknown"))
}

func TestSearchBeds(t *testing.T) {
	testCases := []struct {
		name        string
		query       string
		expectedIDs []int64
	}{
		{name: "Empty query", query: "  ", expectedIDs: []int64{1, 2, 3, 4, 5}},
		{name: "Accent insensitive area", query: "pediatria", expectedIDs: []int64{3}},
		{name: "Case insensitive area", query: "uci", expectedIDs: []int64{4, 5}},
		{name: "Room number", query: "101", expectedIDs: []int64{1, 2}},
		{name: "Patient name", query: "nunez", expectedIDs: []int64{2}},
		{name: "Status label", query: "limpieza", expectedIDs: []int64{3}},
		{name: "No match", query: "cardiología", expectedIDs: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var ids []int64
			for _, b := range SearchBeds(sampleBeds(), tc.query) {
				ids = append(ids, b.ID)
			}
			assert.Equal(t, tc.expectedIDs, ids)
		})
	}
}

func TestGenerateAvailabilitySummary(t *testing.T) {
	summary := GenerateAvailabilitySummary([]AreaCount{
		{TotalBeds: 10, AvailableBeds: 3, OccupiedBeds: 7, Floor: 1, Area: "UCI"},
	})
	assert.Equal(t, 70, summary.OccupancyRate)
	require.Len(t, summary.ByFloor, 1)
	require.Len(t, summary.ByArea, 1)
	assert.Equal(t, 70, summary.ByFloor[0].OccupancyRate)

	summary = GenerateAvailabilitySummary([]AreaCount{
		{TotalBeds: 3, AvailableBeds: 1, OccupiedBeds: 2, Floor: 2, Area: "UCI"},
		{TotalBeds: 4, AvailableBeds: 4, OccupiedBeds: 0, Floor: 1, Area: "Urgencias"},
		{TotalBeds: 2, AvailableBeds: 0, OccupiedBeds: 2, Floor: 1, Area: "UCI"},
	})
	assert.Equal(t, Occupancy{TotalBeds: 9, AvailableBeds: 5, OccupiedBeds: 4, OccupancyRate: 44}, summary.Occupancy)
	assert.Equal(t, []FloorSummary{
		{Floor: 1, Occupancy: Occupancy{TotalBeds: 6, AvailableBeds: 4, OccupiedBeds: 2, OccupancyRate: 33}},
		{Floor: 2, Occupancy: Occupancy{TotalBeds: 3, AvailableBeds: 1, OccupiedBeds: 2, OccupancyRate: 67}},
	}, summary.ByFloor)
	assert.Equal(t, []AreaSummary{
		{Area: "UCI", Occupancy: Occupancy{TotalBeds: 5, AvailableBeds: 1, OccupiedBeds: 4, OccupancyRate: 80}},
		{Area: "Urgencias", Occupancy: Occupancy{TotalBeds: 4, AvailableBeds: 4, OccupiedBeds: 0, OccupancyRate: 0}},
	}, summary.ByArea)
}

func TestGenerateAvailabilitySummary_Empty(t *testing.T) {
	summary := GenerateAvailabilitySummary(nil)
	assert.Equal(t, 0, summary.OccupancyRate)
	assert.Empty(t, summary.ByFloor)
	assert.Empty(t, summary.ByArea)
}

func TestCountByFloorAndArea(t *testing.T) {
	rows := CountByFloorAndArea(sampleBeds())
	assert.Equal(t, []AreaCount{
		{Floor: 1, Area: "Urgencias", TotalBeds: 2, AvailableBeds: 1, OccupiedBeds: 1},
		{Floor: 2, Area: "Pediatría", TotalBeds: 1, CleaningBeds: 1},
		{Floor: 2, Area: "UCI", TotalBeds: 2, MaintenanceBeds: 1},
	}, rows)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Ocupada", StatusLabel(model.BedOccupied))
	assert.Equal(t, "Desconocido", StatusLabel("broken"))
	assert.Equal(t, "UCI P2-210-B", FormatBedLabel(sampleBeds()[4]))
	assert.Equal(t, 0, OccupancyRate(5, 0))
	assert.Equal(t, 67, OccupancyRate(2, 3))
}
