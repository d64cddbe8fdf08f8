package db

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ward-status-backend/config"
	"ward-status-backend/internal/model"
)

// Init opens the configured database, runs migrations and applies the compliance DDL.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if cfg.LogQueries {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("Database initialization complete.")
	return db, nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return sqlite.Open(cfg.DSN), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate creates the schema and the compliance guards on an open connection.
func Migrate(db *gorm.DB) error {
	log.Info("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Patient{},
		&model.Bed{},
		&model.BedOccupancy{},
		&model.Note{},
		&model.NoteEdit{},
		&model.EditAuditEntry{},
		&model.PushSubscription{},
		&model.SubscriptionArea{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	if err := applyComplianceDDL(db); err != nil {
		return fmt.Errorf("failed to apply compliance guards: %w", err)
	}
	return nil
}

// applyComplianceDDL makes clinical notes undeletable and the edit history and audit trail
// append-only at the database level.
func applyComplianceDDL(db *gorm.DB) error {
	var ddls []string
	switch db.Dialector.Name() {
	case "sqlite":
		ddls = []string{
			`CREATE TRIGGER IF NOT EXISTS notes_no_delete BEFORE DELETE ON notes
			BEGIN SELECT RAISE(ABORT, 'clinical notes cannot be deleted'); END;`,
			`CREATE TRIGGER IF NOT EXISTS note_edits_no_update BEFORE UPDATE ON note_edits
			BEGIN SELECT RAISE(ABORT, 'note edit history is append-only'); END;`,
			`CREATE TRIGGER IF NOT EXISTS note_edits_no_delete BEFORE DELETE ON note_edits
			BEGIN SELECT RAISE(ABORT, 'note edit history is append-only'); END;`,
			`CREATE TRIGGER IF NOT EXISTS edit_audit_no_update BEFORE UPDATE ON edit_audit_entries
			BEGIN SELECT RAISE(ABORT, 'edit audit is append-only'); END;`,
			`CREATE TRIGGER IF NOT EXISTS edit_audit_no_delete BEFORE DELETE ON edit_audit_entries
			BEGIN SELECT RAISE(ABORT, 'edit audit is append-only'); END;`,
		}
	case "postgres":
		ddls = []string{
			"CREATE OR REPLACE RULE notes_no_delete AS ON DELETE TO notes DO INSTEAD NOTHING;",
			"CREATE OR REPLACE RULE note_edits_no_update AS ON UPDATE TO note_edits DO INSTEAD NOTHING;",
			"CREATE OR REPLACE RULE note_edits_no_delete AS ON DELETE TO note_edits DO INSTEAD NOTHING;",
			"CREATE OR REPLACE RULE edit_audit_no_update AS ON UPDATE TO edit_audit_entries DO INSTEAD NOTHING;",
			"CREATE OR REPLACE RULE edit_audit_no_delete AS ON DELETE TO edit_audit_entries DO INSTEAD NOTHING;",
		}
	default:
		log.Warnf("No compliance DDL for dialect %q; notes are only protected by the application.", db.Dialector.Name())
		return nil
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
