package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"ward-status-backend/internal/cache"
	"ward-status-backend/internal/metrics"
	"ward-status-backend/internal/rules"
	"ward-status-backend/internal/store"
)

// Dispatcher queues "bed available" notifications.
type Dispatcher interface {
	Dispatch(bedID int64)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	cache    *cache.Service
	notifier Dispatcher
	webpush  *webpush.Options
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewHandler creates a new API handler. notifier may be nil when push is disabled.
func NewHandler(s store.Store, c *cache.Service, notifier Dispatcher, webpushOptions *webpush.Options, m *metrics.Metrics) *Handler {
	return &Handler{
		store:    s,
		cache:    c,
		notifier: notifier,
		webpush:  webpushOptions,
		metrics:  m,
		now:      time.Now,
	}
}

// statusForKind maps a rule kind onto an HTTP status.
func statusForKind(kind rules.Kind) int {
	switch kind {
	case rules.KindNotFound:
		return http.StatusNotFound
	case rules.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusConflict
	}
}

// fail writes the error response for err.
func (h *Handler) fail(c *gin.Context, err error) {
	var ruleErr *rules.Error
	switch {
	case errors.As(err, &ruleErr):
		c.JSON(statusForKind(ruleErr.Result.Kind()), ruleErr.Result)
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrConcurrentModification):
		c.JSON(http.StatusConflict, gin.H{"error": "El registro fue modificado por otro usuario; recargue e intente de nuevo"})
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// idParam parses a positive integer path parameter.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// invalidateBeds drops every cached view derived from bed state.
func (h *Handler) invalidateBeds() {
	h.cache.InvalidatePrefix("/api/beds")
	h.cache.InvalidatePrefix("/api/reports")
}

func (h *Handler) dispatch(bedID int64) {
	if h.notifier != nil {
		h.notifier.Dispatch(bedID)
	}
}

// Healthz reports whether the database answers.
func (h *Handler) Healthz(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		log.WithError(err).Warn("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
