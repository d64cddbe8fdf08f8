package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"ward-status-backend/internal/beds"
	"ward-status-backend/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GetAvailabilityReport handles GET /api/reports/availability.xlsx.
func (h *Handler) GetAvailabilityReport(c *gin.Context) {
	rows, err := h.store.CountBeds(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	now := h.now()
	var buf bytes.Buffer
	if err := report.WriteAvailabilityXLSX(&buf, beds.GenerateAvailabilitySummary(rows), now); err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=disponibilidad-%s.xlsx", now.Format("20060102-1504")))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
