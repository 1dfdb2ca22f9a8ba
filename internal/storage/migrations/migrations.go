package migrations

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/gravadigital/bienestar-api/internal/domain/account"
	"github.com/gravadigital/bienestar-api/internal/domain/event"
	"github.com/gravadigital/bienestar-api/internal/domain/venue"
	"github.com/gravadigital/bienestar-api/internal/logger"
)

// CapacityConstraint names the check raised by the enrollment capacity trigger
const CapacityConstraint = "event_capacity"

// Migration represents a database migration
type Migration struct {
	ID   string
	Name string
	Up   func(*gorm.DB) error
	Down func(*gorm.DB) error
}

// AllModels lists the GORM models owned by this service
func AllModels() []any {
	return []any{
		&account.Account{},
		&venue.Venue{},
		&event.Event{},
		&event.Participant{},
	}
}

// GetMigrations returns all available migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{ID: "001", Name: "create_extensions", Up: migration001Up, Down: migration001Down},
		{ID: "002", Name: "create_core_tables", Up: migration002Up, Down: migration002Down},
		{ID: "003", Name: "create_indexes", Up: migration003Up, Down: migration003Down},
		{ID: "004", Name: "create_constraints_and_triggers", Up: migration004Up, Down: migration004Down},
		{ID: "005", Name: "create_views", Up: migration005Up, Down: migration005Down},
		{ID: "006", Name: "insert_sample_data", Up: migration006Up, Down: migration006Down},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(db *gorm.DB) error {
	log := logger.Migration()

	if err := createMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range GetMigrations() {
		applied, err := hasBeenRun(db, migration.ID)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", migration.ID, err)
		}
		if applied {
			log.Debug("Migration already applied, skipping", "id", migration.ID, "name", migration.Name)
			continue
		}

		log.Info("Running migration", "id", migration.ID, "name", migration.Name)

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("failed to run migration %s: %w", migration.ID, err)
			}
			return recordMigration(tx, migration.ID, migration.Name)
		})
		if err != nil {
			return err
		}

		log.Info("Successfully applied migration", "id", migration.ID)
	}

	log.Info("All migrations completed successfully")
	return nil
}

func createMigrationsTable(db *gorm.DB) error {
	return db.Exec(`
        CREATE TABLE IF NOT EXISTS schema_migrations (
            id VARCHAR(10) PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )
    `).Error
}

func hasBeenRun(db *gorm.DB, migrationID string) (bool, error) {
	var count int64
	err := db.Raw("SELECT COUNT(*) FROM schema_migrations WHERE id = ?", migrationID).Scan(&count).Error
	return count > 0, err
}

func recordMigration(db *gorm.DB, migrationID, name string) error {
	return db.Exec("INSERT INTO schema_migrations (id, name) VALUES (?, ?)", migrationID, name).Error
}

// AppliedMigration is one row of schema_migrations
type AppliedMigration struct {
	ID   string
	Name string
}

// Applied lists applied migrations in application order
func Applied(db *gorm.DB) ([]AppliedMigration, error) {
	var rows []AppliedMigration
	err := db.Raw("SELECT id, name FROM schema_migrations ORDER BY id").Scan(&rows).Error
	return rows, err
}

// RollbackMigration rolls back the last applied migration
func RollbackMigration(db *gorm.DB) error {
	log := logger.Migration()

	var last AppliedMigration
	err := db.Raw("SELECT id, name FROM schema_migrations ORDER BY id DESC LIMIT 1").Scan(&last).Error
	if err != nil {
		return fmt.Errorf("failed to get last migration: %w", err)
	}
	if last.ID == "" {
		return errors.New("no migrations to rollback")
	}

	var target *Migration
	for _, m := range GetMigrations() {
		if m.ID == last.ID {
			target = &m
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration %s not found", last.ID)
	}

	log.Info("Rolling back migration", "id", target.ID, "name", target.Name)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := target.Down(tx); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", target.ID, err)
		}
		return tx.Exec("DELETE FROM schema_migrations WHERE id = ?", target.ID).Error
	})
	if err != nil {
		return err
	}

	log.Info("Successfully rolled back migration", "id", target.ID)
	return nil
}

func execAll(db *gorm.DB, statements []string) error {
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
