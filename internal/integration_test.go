package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ward-status-backend/config"
	"ward-status-backend/internal/api"
	"ward-status-backend/internal/cache"
	"ward-status-backend/internal/db"
	"ward-status-backend/internal/metrics"
	"ward-status-backend/internal/model"
	"ward-status-backend/internal/parse"
	"ward-status-backend/internal/store"
	"ward-status-backend/internal/sweeper"
)

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []int64
}

func (d *recordingDispatcher) Dispatch(bedID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, bedID)
}

// TestWardLifecycle seeds a ward from bed codes, moves a patient through admission, transfer
// and discharge, writes clinical notes and lets the sweeper lock the expired one.
func TestWardLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testDB, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ward.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	ctx := context.Background()
	appStore := store.NewGormStore(testDB)

	seed, errs := parse.ParseBedCodes([]string{"UCI 2P-201-a", "UCI 2P-201-b", "Urgencias 1-101-A", "sin piso"})
	assert.Len(t, errs, 1)
	created, err := appStore.UpsertBeds(ctx, seed)
	require.NoError(t, err)
	require.Len(t, created, 3)

	again, err := appStore.UpsertBeds(ctx, seed)
	require.NoError(t, err)
	assert.Empty(t, again, "reseeding must not duplicate beds")

	m := metrics.New()
	dispatcher := &recordingDispatcher{}
	router := api.NewRouter(
		config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000},
		appStore,
		cache.New(time.Minute),
		dispatcher,
		nil,
		m,
	)

	call := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", "enf-12")
		req.Header.Set("X-User-Role", "nurse")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := call(http.MethodGet, "/api/beds?area=UCI", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var uci []model.Bed
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uci))
	require.Len(t, uci, 2)
	assert.Equal(t, "A", uci[0].BedLabel)
	assert.Equal(t, 2, uci[0].Floor)

	w = call(http.MethodPost, "/api/patients", map[string]any{"name": "María Sánchez", "record_number": "EXP-001"})
	require.Equal(t, http.StatusCreated, w.Code)
	var patient model.Patient
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &patient))

	w = call(http.MethodPost, "/api/beds/"+itoa(uci[0].ID)+"/assign", map[string]any{"patient_id": patient.ID, "version": uci[0].Version})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(http.MethodPost, "/api/beds/"+itoa(uci[1].ID)+"/assign", map[string]any{"patient_id": patient.ID})
	assert.Equal(t, http.StatusConflict, w.Code, "a patient holds one bed at a time")

	w = call(http.MethodPost, "/api/beds/transfer", map[string]any{"from_bed_id": uci[0].ID, "to_bed_id": uci[1].ID, "patient_id": patient.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(http.MethodPut, "/api/beds/"+itoa(uci[0].ID)+"/status", map[string]any{"status": "available"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(http.MethodPost, "/api/beds/"+itoa(uci[1].ID)+"/release", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var released model.Bed
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &released))
	assert.Equal(t, model.BedCleaning, released.Status)
	assert.Nil(t, released.PatientID)
	assert.Equal(t, []int64{uci[0].ID}, dispatcher.ids, "only beds that became available are announced")

	history, err := appStore.ListOccupancy(ctx, uci[0].ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.OccupancyEndTransferred, history[0].EndReason)

	now := time.Now().UTC()
	w = call(http.MethodPost, "/api/notes", map[string]any{"patient_id": patient.ID, "text": "Ingreso a UCI", "date": now.Add(-30 * time.Hour).Format(time.RFC3339)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var expired struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &expired))

	w = call(http.MethodPost, "/api/notes", map[string]any{"patient_id": patient.ID, "text": "Evolución", "date": now.Add(-23 * time.Hour).Format(time.RFC3339)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	report := sweeper.NewService(config.SweeperConfig{Enabled: true, Interval: time.Hour}, appStore, m).SweepOnce(ctx)
	assert.Equal(t, int64(1), report.Locked)
	require.NotNil(t, report.Warning)
	assert.Equal(t, 1, report.Warning.Count)
	assert.Equal(t, 0, report.OccupancyRate)

	note, err := appStore.GetNote(ctx, expired.ID)
	require.NoError(t, err)
	assert.NotNil(t, note.LockedAt)

	w = call(http.MethodPut, "/api/notes/"+expired.ID, map[string]any{"text": "Ingreso a UCI (corregido)"})
	assert.Equal(t, http.StatusConflict, w.Code)

	audit, err := appStore.ListEditAudit(ctx, expired.ID)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.False(t, audit[0].WasAllowed)
	assert.Equal(t, "enf-12", audit[0].AttemptedBy)

	w = call(http.MethodDelete, "/api/notes/"+expired.ID, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Error(t, testDB.Delete(&model.Note{}, "id = ?", expired.ID).Error, "the database refuses note deletion")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
