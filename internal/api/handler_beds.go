package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"ward-status-backend/internal/beds"
	"ward-status-backend/internal/model"
	"ward-status-backend/internal/mw"
	"ward-status-backend/internal/rules"
	"ward-status-backend/internal/store"
)

// listFilteredBeds loads beds narrowed by floor and area in SQL, then by status and search text.
func (h *Handler) listFilteredBeds(c *gin.Context) ([]model.Bed, bool) {
	var f store.BedFilter
	if raw := c.Query("floor"); raw != "" {
		floor, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid floor"})
			return nil, false
		}
		f.Floor = &floor
	}
	f.Area = c.Query("area")

	all, err := h.store.ListBeds(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	out := beds.FilterBedsByStatus(all, c.Query("status"))
	if q := c.Query("q"); q != "" {
		out = beds.SearchBeds(out, q)
	}
	return out, true
}

// ListBeds handles GET /api/beds?status&q&floor&area.
func (h *Handler) ListBeds(c *gin.Context) {
	out, ok := h.listFilteredBeds(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetBedStats handles GET /api/beds/stats.
func (h *Handler) GetBedStats(c *gin.Context) {
	out, ok := h.listFilteredBeds(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, beds.GetBedStats(out))
}

// GetRooms handles GET /api/beds/rooms.
func (h *Handler) GetRooms(c *gin.Context) {
	out, ok := h.listFilteredBeds(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, beds.GroupBedsByRoom(out))
}

// GetFloors handles GET /api/beds/floors.
func (h *Handler) GetFloors(c *gin.Context) {
	out, ok := h.listFilteredBeds(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, beds.GroupBedsByFloorAndArea(out))
}

// GetSummary handles GET /api/beds/summary.
func (h *Handler) GetSummary(c *gin.Context) {
	rows, err := h.store.CountBeds(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	summary := beds.GenerateAvailabilitySummary(rows)
	h.metrics.SetOccupancyRate(summary.OccupancyRate)
	c.JSON(http.StatusOK, summary)
}

// GetBed handles GET /api/beds/:id.
func (h *Handler) GetBed(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	bed, err := h.store.GetBed(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bed)
}

// GetOccupancy handles GET /api/beds/:id/occupancy.
func (h *Handler) GetOccupancy(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	history, err := h.store.ListOccupancy(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

type assignRequest struct {
	PatientID int64 `json:"patient_id"`
	Version   int   `json:"version"`
}

// ValidateAssignment handles POST /api/beds/:id/validate-assignment. It never writes.
func (h *Handler) ValidateAssignment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bed, err := h.store.GetBed(c.Request.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(c, err)
		return
	}
	res := beds.ValidateBedAssignment(bed, req.PatientID)
	h.metrics.RecordBedValidation("validate", res.Valid())
	c.JSON(http.StatusOK, res)
}

// AssignBed handles POST /api/beds/:id/assign.
func (h *Handler) AssignBed(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bed, err := h.store.AssignBed(c.Request.Context(), id, req.PatientID, req.Version, h.now())
	h.recordValidation("assign", err)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.metrics.RecordBedMutation("assign")
	h.invalidateBeds()
	log.WithFields(log.Fields{"bed_id": bed.ID, "patient_id": req.PatientID, "user_id": mw.CurrentUser(c).ID}).Info("bed assigned")
	c.JSON(http.StatusOK, bed)
}

type releaseRequest struct {
	NextStatus model.BedStatus `json:"next_status"`
	Version    int             `json:"version"`
}

// ReleaseBed handles POST /api/beds/:id/release. The body is optional.
func (h *Handler) ReleaseBed(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req releaseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	bed, err := h.store.ReleaseBed(c.Request.Context(), id, req.NextStatus, req.Version, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}

	h.metrics.RecordBedMutation("release")
	h.invalidateBeds()
	if beds.IsBedAvailable(*bed) {
		h.dispatch(bed.ID)
	}
	log.WithFields(log.Fields{"bed_id": bed.ID, "status": bed.Status, "user_id": mw.CurrentUser(c).ID}).Info("bed released")
	c.JSON(http.StatusOK, bed)
}

type statusRequest struct {
	Status   model.BedStatus `json:"status"`
	IsActive *bool           `json:"is_active"`
	Version  int             `json:"version"`
}

// SetBedStatus handles PUT /api/beds/:id/status.
func (h *Handler) SetBedStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status == "" && req.IsActive == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status or is_active is required"})
		return
	}

	bed, err := h.store.SetBedStatus(c.Request.Context(), id, store.StatusChange{
		Status:   req.Status,
		IsActive: req.IsActive,
		Version:  req.Version,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.metrics.RecordBedMutation("status")
	h.invalidateBeds()
	if beds.IsBedAvailable(*bed) {
		h.dispatch(bed.ID)
	}
	c.JSON(http.StatusOK, bed)
}

type transferRequest struct {
	FromBedID int64 `json:"from_bed_id" binding:"required"`
	ToBedID   int64 `json:"to_bed_id" binding:"required"`
	PatientID int64 `json:"patient_id"`
}

// TransferBed handles POST /api/beds/transfer.
func (h *Handler) TransferBed(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	moved, err := h.store.TransferBed(c.Request.Context(), req.FromBedID, req.ToBedID, req.PatientID, h.now())
	h.recordValidation("transfer", err)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.metrics.RecordBedMutation("transfer")
	h.invalidateBeds()
	log.WithFields(log.Fields{
		"from_bed_id": req.FromBedID,
		"to_bed_id":   req.ToBedID,
		"patient_id":  req.PatientID,
		"user_id":     mw.CurrentUser(c).ID,
	}).Info("patient transferred")
	c.JSON(http.StatusOK, moved)
}

// recordValidation counts a write-path validator outcome. Errors other than rule
// rejections did not reach a verdict and are not counted.
func (h *Handler) recordValidation(operation string, err error) {
	var ruleErr *rules.Error
	switch {
	case err == nil:
		h.metrics.RecordBedValidation(operation, true)
	case errors.As(err, &ruleErr):
		h.metrics.RecordBedValidation(operation, false)
	}
}
