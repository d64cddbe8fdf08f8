package api

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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ward-status-backend/config"
	"ward-status-backend/internal/cache"
	"ward-status-backend/internal/db"
	"ward-status-backend/internal/metrics"
	"ward-status-backend/internal/model"
	"ward-status-backend/internal/rules"
	"ward-status-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDispatcher struct {
	mu  sync.Mutex
	ids []int64
}

func (d *fakeDispatcher) Dispatch(bedID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, bedID)
}

func (d *fakeDispatcher) Dispatched() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int64(nil), d.ids...)
}

type testServer struct {
	router     *gin.Engine
	store      store.Store
	dispatcher *fakeDispatcher
	beds       []model.Bed
}

func newTestServer(t *testing.T) *testServer {
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ward.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		sqlDB.Close()
	})

	s := store.NewGormStore(gdb)
	_, err = s.UpsertBeds(context.Background(), []model.Bed{
		{Floor: 1, Area: "Urgencias", Room: "101", BedLabel: "A"},
		{Floor: 2, Area: "UCI", Room: "201", BedLabel: "A"},
		{Floor: 2, Area: "UCI", Room: "201", BedLabel: "B"},
	})
	require.NoError(t, err)
	all, err := s.ListBeds(context.Background(), store.BedFilter{})
	require.NoError(t, err)

	d := &fakeDispatcher{}
	r := NewRouter(
		config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000},
		s,
		cache.New(time.Minute),
		d,
		&webpush.Options{VAPIDPublicKey: "public-key"},
		metrics.New(),
	)
	return &testServer{router: r, store: s, dispatcher: d, beds: all}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

type caller struct {
	id, role string
}

var (
	nurse = caller{id: "u-7", role: "nurse"}
	admin = caller{id: "root", role: "admin"}
	anon  = caller{}
)

func (ts *testServer) do(method, path string, body any, who caller) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if who.id != "" {
		req.Header.Set("X-User-ID", who.id)
		req.Header.Set("X-User-Role", who.role)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (ts *testServer) createPatient(t *testing.T, name string) model.Patient {
	w := ts.do(http.MethodPost, "/api/patients", gin.H{"name": name}, nurse)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.Patient](t, w)
}

type resultBody struct {
	Valid      bool              `json:"valid"`
	Error      string            `json:"error"`
	Errors     []string          `json:"errors"`
	Violations []rules.Violation `json:"violations"`
}

func TestBedEndpoints(t *testing.T) {
	ts := newTestServer(t)
	uciA := ts.beds[1]
	ana := ts.createPatient(t, "Ana López")
	luis := ts.createPatient(t, "Luis Pérez")

	w := ts.do(http.MethodGet, "/api/beds", nil, anon)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Bed](t, w), 3)

	w = ts.do(http.MethodGet, "/api/beds?q=uci&floor=2", nil, anon)
	assert.Len(t, decode[[]model.Bed](t, w), 2)

	w = ts.do(http.MethodGet, "/api/beds?floor=dos", nil, anon)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/beds/999/validate-assignment", gin.H{"patient_id": ana.ID}, anon)
	require.Equal(t, http.StatusOK, w.Code)
	dry := decode[resultBody](t, w)
	assert.False(t, dry.Valid)
	assert.Equal(t, "Cama no encontrada", dry.Error)

	w = ts.do(http.MethodPost, "/api/beds/"+itoa(uciA.ID)+"/assign", gin.H{"patient_id": ana.ID}, anon)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPost, "/api/beds/"+itoa(uciA.ID)+"/assign", gin.H{"patient_id": ana.ID, "version": 1}, nurse)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	bed := decode[model.Bed](t, w)
	assert.Equal(t, model.BedOccupied, bed.Status)
	assert.Equal(t, "Ana López", bed.Patient.Name)

	w = ts.do(http.MethodPost, "/api/beds/"+itoa(uciA.ID)+"/assign", gin.H{"patient_id": luis.ID}, nurse)
	assert.Equal(t, http.StatusConflict, w.Code)
	rejected := decode[resultBody](t, w)
	assert.False(t, rejected.Valid)
	assert.Contains(t, rejected.Errors, "La cama está ocupada")
	assert.Contains(t, rejected.Errors, "La cama ya está ocupada por otro paciente")

	w = ts.do(http.MethodPost, "/api/beds/999/assign", gin.H{"patient_id": luis.ID}, nurse)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPost, "/api/beds/"+itoa(ts.beds[0].ID)+"/assign", gin.H{"patient_id": 0}, nurse)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/beds/transfer", gin.H{"from_bed_id": uciA.ID, "to_bed_id": ts.beds[2].ID, "patient_id": ana.ID}, nurse)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	moved := decode[store.Transfer](t, w)
	assert.Equal(t, model.BedCleaning, moved.From.Status)
	assert.Equal(t, model.BedOccupied, moved.To.Status)

	w = ts.do(http.MethodPost, "/api/beds/"+itoa(ts.beds[2].ID)+"/release", gin.H{"next_status": "available"}, nurse)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.BedAvailable, decode[model.Bed](t, w).Status)
	assert.Equal(t, []int64{ts.beds[2].ID}, ts.dispatcher.Dispatched())

	w = ts.do(http.MethodGet, "/api/beds/"+itoa(ts.beds[2].ID)+"/occupancy", nil, anon)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]model.BedOccupancy](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, model.OccupancyEndReleased, history[0].EndReason)

	w = ts.do(http.MethodGet, "/api/beds/abc", nil, anon)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(http.MethodGet, "/api/beds/999", nil, anon)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBedStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)
	id := itoa(ts.beds[0].ID)

	w := ts.do(http.MethodPut, "/api/beds/"+id+"/status", gin.H{"status": "occupied"}, nurse)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPut, "/api/beds/"+id+"/status", gin.H{}, nurse)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPut, "/api/beds/"+id+"/status", gin.H{"status": "maintenance", "version": 9}, nurse)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(http.MethodPut, "/api/beds/"+id+"/status", gin.H{"status": "maintenance", "version": 1}, nurse)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.BedMaintenance, decode[model.Bed](t, w).Status)
	assert.Empty(t, ts.dispatcher.Dispatched())

	w = ts.do(http.MethodPut, "/api/beds/"+id+"/status", gin.H{"status": "available"}, nurse)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{ts.beds[0].ID}, ts.dispatcher.Dispatched())
}

func TestBedAggregates_AreCachedAndInvalidated(t *testing.T) {
	ts := newTestServer(t)
	ana := ts.createPatient(t, "Ana")

	w := ts.do(http.MethodGet, "/api/beds/stats", nil, anon)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode[map[string]any](t, w)["available"])

	w = ts.do(http.MethodGet, "/api/beds/stats", nil, anon)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	w = ts.do(http.MethodPost, "/api/beds/"+itoa(ts.beds[0].ID)+"/assign", gin.H{"patient_id": ana.ID}, nurse)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/beds/stats", nil, anon)
	assert.Empty(t, w.Header().Get("X-Cache"))
	stats := decode[map[string]any](t, w)
	assert.Equal(t, float64(2), stats["available"])
	assert.Equal(t, float64(1), stats["occupied"])

	w = ts.do(http.MethodGet, "/api/beds/summary", nil, anon)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[map[string]any](t, w)
	assert.Equal(t, float64(33), summary["occupancy_rate"])
	assert.Len(t, summary["by_floor"], 2)

	w = ts.do(http.MethodGet, "/api/beds/rooms", nil, anon)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(http.MethodGet, "/api/beds/floors", nil, anon)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/reports/availability.xlsx", nil, anon)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=disponibilidad-")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestNoteEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ana := ts.createPatient(t, "Ana")

	old := time.Now().Add(-25 * time.Hour).UTC().Format(time.RFC3339)
	w := ts.do(http.MethodPost, "/api/notes", gin.H{"patient_id": ana.ID, "text": "Ingreso", "date": old}, nurse)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	oldNote := decode[map[string]any](t, w)
	oldID := oldNote["id"].(string)
	assert.Equal(t, "u-7", oldNote["author_id"])
	assert.Equal(t, "blocked", oldNote["indicator"].(map[string]any)["urgency"])

	w = ts.do(http.MethodPost, "/api/notes", gin.H{"patient_id": ana.ID, "text": "Evolución"}, nurse)
	require.Equal(t, http.StatusCreated, w.Code)
	freshID := decode[map[string]any](t, w)["id"].(string)

	w = ts.do(http.MethodPost, "/api/notes", gin.H{"patient_id": ana.ID, "text": "x", "date": "ayer"}, nurse)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	future := time.Now().AddDate(10, 0, 0).UTC().Format(time.RFC3339)
	w = ts.do(http.MethodPost, "/api/notes", gin.H{"patient_id": ana.ID, "text": "Nota adelantada", "date": future}, nurse)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	rejected := decode[resultBody](t, w)
	require.Len(t, rejected.Violations, 1)
	assert.Equal(t, store.RuleNoteDateInFuture, rejected.Violations[0].Rule)

	w = ts.do(http.MethodPut, "/api/notes/"+oldID, gin.H{"text": "Ingreso corregido"}, nurse)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode[resultBody](t, w).Error, "Período de edición expirado")

	w = ts.do(http.MethodPut, "/api/notes/"+oldID, gin.H{"text": "Ingreso corregido"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Ingreso corregido", decode[map[string]any](t, w)["text"])

	w = ts.do(http.MethodPut, "/api/notes/"+freshID, gin.H{"text": "Evolución favorable", "version": 1}, nurse)
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(http.MethodPut, "/api/notes/"+freshID, gin.H{"text": "otra", "version": 1}, nurse)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(http.MethodGet, "/api/notes/"+oldID+"/audit", nil, anon)
	require.Equal(t, http.StatusOK, w.Code)
	audit := decode[[]model.EditAuditEntry](t, w)
	require.Len(t, audit, 2)
	assert.False(t, audit[0].WasAllowed)
	assert.True(t, audit[1].Bypassed)

	w = ts.do(http.MethodGet, "/api/notes/"+freshID+"/editability", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	ed := decode[map[string]any](t, w)
	assert.Equal(t, true, ed["can_bypass"])
	assert.Equal(t, true, ed["validation"].(map[string]any)["editable"])

	w = ts.do(http.MethodGet, "/api/notes/groups?patient_id="+itoa(ana.ID), nil, anon)
	require.Equal(t, http.StatusOK, w.Code)
	counts := decode[map[string]any](t, w)["counts"].(map[string]any)
	assert.Equal(t, float64(2), counts["total"])
	assert.Equal(t, float64(1), counts["editable"])
	assert.Equal(t, float64(1), counts["expired"])

	w = ts.do(http.MethodGet, "/api/notes?patient_id="+itoa(ana.ID), nil, anon)
	assert.Len(t, decode[[]map[string]any](t, w), 2)

	w = ts.do(http.MethodGet, "/api/notes/expiring", nil, anon)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[map[string]any](t, w)["warning"])

	w = ts.do(http.MethodGet, "/api/notes/"+freshID, nil, anon)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string]any](t, w)["edit_history"], 1)

	w = ts.do(http.MethodDelete, "/api/notes/"+freshID, nil, admin)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	w = ts.do(http.MethodGet, "/api/notes/"+freshID, nil, anon)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/notes/missing", nil, anon)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscriptionEndpoints(t *testing.T) {
	ts := newTestServer(t)
	endpoint := "https://push.example/abc"

	w := ts.do(http.MethodPut, "/api/subscriptions", nil, anon)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPut, "/api/subscriptions", gin.H{
		"endpoint": endpoint, "p256dh": "key", "auth": "auth",
		"subscribed_areas": []string{"UCI", " Urgencias "},
	}, anon)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil, anon)
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []any{"UCI", "Urgencias"}, decode[map[string]any](t, w)["subscribed_areas"])

	w = ts.do(http.MethodGet, "/api/subscriptions", nil, anon)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": endpoint}, anon)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil, anon)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthMetricsAndVAPID(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/healthz", nil, anon)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = ts.do(http.MethodGet, "/api/vapid_public_key", nil, anon)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"public-key","push_enabled":true}`, w.Body.String())

	w = ts.do(http.MethodGet, "/metrics", nil, anon)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ward_http_request_duration_seconds")

	w = ts.do(http.MethodGet, "/nope", nil, anon)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVAPIDWithoutPush(t *testing.T) {
	h := NewHandler(nil, cache.New(0), nil, nil, metrics.New())
	r := gin.New()
	r.GET("/api/vapid_public_key", h.GetVAPIDPublicKey)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/vapid_public_key", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusForKind(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusForKind(rules.KindNotFound))
	assert.Equal(t, http.StatusBadRequest, statusForKind(rules.KindInvalidInput))
	assert.Equal(t, http.StatusConflict, statusForKind(rules.KindStateConflict))
}
