// Package sweeper periodically locks notes whose edit window has closed and refreshes the
// expiring-notes and occupancy gauges.
package sweeper

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"ward-status-backend/config"
	"ward-status-backend/internal/beds"
	"ward-status-backend/internal/logger"
	"ward-status-backend/internal/metrics"
	"ward-status-backend/internal/model"
	"ward-status-backend/internal/notes"
	"ward-status-backend/internal/store"
)

// Store is the subset of store.Store the sweeper needs.
type Store interface {
	LockExpiredNotes(ctx context.Context, now time.Time) (int64, error)
	ListNotes(ctx context.Context, f store.NoteFilter) ([]model.Note, error)
	CountBeds(ctx context.Context) ([]beds.AreaCount, error)
}

// Report is the outcome of one sweep.
type Report struct {
	Locked        int64
	Warning       *notes.Warning
	OccupancyRate int
}

// Service runs the sweep loop.
type Service struct {
	cfg     config.SweeperConfig
	store   Store
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates a sweeper.
func NewService(cfg config.SweeperConfig, s Store, m *metrics.Metrics) *Service {
	return &Service{cfg: cfg, store: s, metrics: m, now: time.Now}
}

// Run sweeps once immediately and then every configured interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Info("Sweeper is disabled. Not starting.")
		return
	}
	log.WithField("interval", s.cfg.Interval.String()).Info("Starting note sweeper...")

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Sweeper shutting down.")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// SweepOnce performs one round. Failures of one step are logged and do not stop the others.
func (s *Service) SweepOnce(ctx context.Context) Report {
	now := s.now()
	var report Report

	locked, err := s.store.LockExpiredNotes(ctx, now)
	if err != nil {
		log.WithError(err).Error("failed to lock expired notes")
	} else if locked > 0 {
		report.Locked = locked
		s.metrics.AddNotesLocked(locked)
		logger.Compliance("notes_locked", "system", log.Fields{"count": locked})
	}

	open, err := s.store.ListNotes(ctx, store.NoteFilter{Unlocked: true})
	if err != nil {
		log.WithError(err).Error("failed to list open notes")
	} else {
		report.Warning = notes.GetExpiringNotesWarning(open, now)
		expiring := 0
		if report.Warning != nil {
			expiring = report.Warning.Count
			ids := make([]string, 0, len(report.Warning.Notes))
			for _, n := range report.Warning.Notes {
				ids = append(ids, n.ID)
			}
			logger.Compliance("notes_expiring", "system", log.Fields{
				"count":    report.Warning.Count,
				"note_ids": ids,
				"warning":  report.Warning.Message,
			})
		}
		s.metrics.SetExpiringNotes(expiring)
	}

	rows, err := s.store.CountBeds(ctx)
	if err != nil {
		log.WithError(err).Error("failed to count beds")
	} else {
		report.OccupancyRate = beds.GenerateAvailabilitySummary(rows).OccupancyRate
		s.metrics.SetOccupancyRate(report.OccupancyRate)
	}

	return report
}
