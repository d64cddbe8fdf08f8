package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ward-status-backend/internal/model"
)

type createPatientRequest struct {
	Name         string `json:"name" binding:"required"`
	RecordNumber string `json:"record_number"`
}

// CreatePatient handles POST /api/patients.
func (h *Handler) CreatePatient(c *gin.Context) {
	var req createPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	p := model.Patient{Name: name, RecordNumber: strings.TrimSpace(req.RecordNumber)}
	if err := h.store.CreatePatient(c.Request.Context(), &p); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GetPatient handles GET /api/patients/:id.
func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, err := h.store.GetPatient(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
