package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"ward-status-backend/internal/logger"
	"ward-status-backend/internal/model"
	"ward-status-backend/internal/mw"
	"ward-status-backend/internal/notes"
	"ward-status-backend/internal/store"
)

// noteView is a note decorated with its edit status as of the request.
type noteView struct {
	model.Note
	Editability notes.Validation `json:"editability"`
	Indicator   notes.Indicator  `json:"indicator"`
}

func (h *Handler) view(n model.Note) noteView {
	v := notes.IsNoteEditable(n.Date, h.now())
	return noteView{Note: n, Editability: v, Indicator: notes.GetEditabilityIndicator(v)}
}

// patientFilter reads the optional patient_id query parameter.
func patientFilter(c *gin.Context) (store.NoteFilter, bool) {
	var f store.NoteFilter
	if raw := c.Query("patient_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient_id"})
			return f, false
		}
		f.PatientID = id
	}
	return f, true
}

type createNoteRequest struct {
	PatientID int64  `json:"patient_id" binding:"required"`
	Text      string `json:"text"`
	Date      string `json:"date"`
}

// CreateNote handles POST /api/notes. Date defaults to now.
func (h *Handler) CreateNote(c *gin.Context) {
	var req createNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n := model.Note{PatientID: req.PatientID, Text: req.Text, AuthorID: mw.CurrentUser(c).ID, Date: h.now()}
	if req.Date != "" {
		date, err := notes.ParseNoteDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		n.Date = date
	}

	if err := h.store.CreateNote(c.Request.Context(), &n); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.view(n))
}

// ListNotes handles GET /api/notes?patient_id.
func (h *Handler) ListNotes(c *gin.Context) {
	f, ok := patientFilter(c)
	if !ok {
		return
	}
	list, err := h.store.ListNotes(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]noteView, 0, len(list))
	for _, n := range list {
		out = append(out, h.view(n))
	}
	c.JSON(http.StatusOK, out)
}

// GetNoteGroups handles GET /api/notes/groups?patient_id.
func (h *Handler) GetNoteGroups(c *gin.Context) {
	f, ok := patientFilter(c)
	if !ok {
		return
	}
	list, err := h.store.ListNotes(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, notes.GroupNotesByEditability(list, h.now()))
}

// GetExpiringNotes handles GET /api/notes/expiring?patient_id. warning is null when nothing expires soon.
func (h *Handler) GetExpiringNotes(c *gin.Context) {
	f, ok := patientFilter(c)
	if !ok {
		return
	}
	f.Unlocked = true
	list, err := h.store.ListNotes(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warning": notes.GetExpiringNotesWarning(list, h.now())})
}

// GetNote handles GET /api/notes/:id.
func (h *Handler) GetNote(c *gin.Context) {
	n, err := h.store.GetNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(*n))
}

// GetNoteEditability handles GET /api/notes/:id/editability.
func (h *Handler) GetNoteEditability(c *gin.Context) {
	n, err := h.store.GetNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	v := h.view(*n)
	c.JSON(http.StatusOK, gin.H{
		"validation": v.Editability,
		"indicator":  v.Indicator,
		"can_bypass": notes.CanBypassEditRestrictions(mw.CurrentUser(c)),
	})
}

type editNoteRequest struct {
	Text    string `json:"text"`
	Version int    `json:"version"`
}

// EditNote handles PUT /api/notes/:id.
func (h *Handler) EditNote(c *gin.Context) {
	var req editNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := mw.CurrentUser(c)
	outcome, err := h.store.EditNote(c.Request.Context(), store.EditRequest{
		NoteID:  c.Param("id"),
		Text:    req.Text,
		User:    user,
		Version: req.Version,
		Now:     h.now(),
	})
	if outcome != nil {
		h.metrics.RecordNoteEdit(outcome.Attempt.Allowed, outcome.Bypassed)
		fields := log.Fields{
			"note_id":    outcome.Audit.NoteID,
			"patient_id": outcome.Audit.PatientID,
			"reason":     outcome.Audit.Reason,
			"note_age":   outcome.Audit.NoteAge,
		}
		switch {
		case outcome.Bypassed:
			logger.Compliance("note_edit_bypassed", user.ID, fields)
		case !outcome.Attempt.Allowed:
			logger.Compliance("note_edit_denied", user.ID, fields)
		}
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(*outcome.Note))
}

// GetNoteAudit handles GET /api/notes/:id/audit.
func (h *Handler) GetNoteAudit(c *gin.Context) {
	entries, err := h.store.ListEditAudit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// DeleteNote handles DELETE /api/notes/:id. Clinical notes are never deleted.
func (h *Handler) DeleteNote(c *gin.Context) {
	userID := ""
	if user := mw.CurrentUser(c); user != nil {
		userID = user.ID
	}
	logger.Compliance("note_delete_rejected", userID, log.Fields{"note_id": c.Param("id")})
	c.Header("Allow", "GET, PUT")
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Las notas clínicas no pueden eliminarse"})
}
