package api

import (
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"ward-status-backend/config"
	"ward-status-backend/internal/cache"
	"ward-status-backend/internal/metrics"
	"ward-status-backend/internal/mw"
	"ward-status-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, s store.Store, c *cache.Service, notifier Dispatcher, webpushOptions *webpush.Options, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.Identity(), mw.RequestLogger(), mw.Metrics(m))

	handler := NewHandler(s, c, notifier, webpushOptions, m)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	caching := mw.Cache(c)
	requireUser := mw.RequireUser()

	r.GET("/healthz", handler.Healthz)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		bedsGroup := api.Group("/beds")
		bedsGroup.GET("", caching, handler.ListBeds)
		bedsGroup.GET("/stats", caching, handler.GetBedStats)
		bedsGroup.GET("/rooms", caching, handler.GetRooms)
		bedsGroup.GET("/floors", caching, handler.GetFloors)
		bedsGroup.GET("/summary", caching, handler.GetSummary)
		bedsGroup.POST("/transfer", requireUser, handler.TransferBed)
		bedsGroup.GET("/:id", caching, handler.GetBed)
		bedsGroup.GET("/:id/occupancy", caching, handler.GetOccupancy)
		bedsGroup.POST("/:id/validate-assignment", handler.ValidateAssignment)
		bedsGroup.POST("/:id/assign", requireUser, handler.AssignBed)
		bedsGroup.POST("/:id/release", requireUser, handler.ReleaseBed)
		bedsGroup.PUT("/:id/status", requireUser, handler.SetBedStatus)

		api.GET("/reports/availability.xlsx", caching, handler.GetAvailabilityReport)

		api.POST("/patients", requireUser, handler.CreatePatient)
		api.GET("/patients/:id", handler.GetPatient)

		notesGroup := api.Group("/notes")
		notesGroup.POST("", requireUser, handler.CreateNote)
		notesGroup.GET("", handler.ListNotes)
		notesGroup.GET("/groups", handler.GetNoteGroups)
		notesGroup.GET("/expiring", handler.GetExpiringNotes)
		notesGroup.GET("/:id", handler.GetNote)
		notesGroup.GET("/:id/editability", handler.GetNoteEditability)
		notesGroup.GET("/:id/audit", handler.GetNoteAudit)
		notesGroup.PUT("/:id", requireUser, handler.EditNote)
		notesGroup.DELETE("/:id", handler.DeleteNote)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}
