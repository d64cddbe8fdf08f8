package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ward-status-backend/internal/beds"
	"ward-status-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	Ping(ctx context.Context) error

	CreatePatient(ctx context.Context, p *model.Patient) error
	GetPatient(ctx context.Context, id int64) (*model.Patient, error)

	UpsertBeds(ctx context.Context, items []model.Bed) ([]model.Bed, error)
	ListBeds(ctx context.Context, f BedFilter) ([]model.Bed, error)
	GetBed(ctx context.Context, id int64) (*model.Bed, error)
	CountBeds(ctx context.Context) ([]beds.AreaCount, error)
	AssignBed(ctx context.Context, bedID, patientID int64, version int, now time.Time) (*model.Bed, error)
	ReleaseBed(ctx context.Context, bedID int64, next model.BedStatus, version int, now time.Time) (*model.Bed, error)
	TransferBed(ctx context.Context, fromID, toID, patientID int64, now time.Time) (*Transfer, error)
	SetBedStatus(ctx context.Context, bedID int64, change StatusChange) (*model.Bed, error)
	ListOccupancy(ctx context.Context, bedID int64) ([]model.BedOccupancy, error)

	CreateNote(ctx context.Context, n *model.Note) error
	GetNote(ctx context.Context, id string) (*model.Note, error)
	ListNotes(ctx context.Context, f NoteFilter) ([]model.Note, error)
	EditNote(ctx context.Context, req EditRequest) (*EditOutcome, error)
	ListEditAudit(ctx context.Context, noteID string) ([]model.EditAuditEntry, error)
	LockExpiredNotes(ctx context.Context, now time.Time) (int64, error)

	SaveSubscription(ctx context.Context, sub *model.PushSubscription, areas []string) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForArea(ctx context.Context, area string) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures a gormStore.
type Option func(*gormStore)

// WithClock replaces the wall clock used to stamp and bound note dates.
func WithClock(now func() time.Time) Option {
	return func(s *gormStore) { s.now = now }
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, opts ...Option) Store {
	s := &gormStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clock returns the store's current time in UTC. Every timestamp is written in UTC so that
// SQLite's text comparison of dates agrees with their chronological order.
func (s *gormStore) clock() time.Time {
	return s.now().UTC()
}

// Ping checks that the database answers.
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// CreatePatient inserts a patient and fills in its id.
func (s *gormStore) CreatePatient(ctx context.Context, p *model.Patient) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

// GetPatient loads a patient by id.
func (s *gormStore) GetPatient(ctx context.Context, id int64) (*model.Patient, error) {
	var p model.Patient
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, "patient %d", id)
	}
	return &p, nil
}

// notFound maps gorm's missing-row error onto ErrNotFound and wraps anything else.
func notFound(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
