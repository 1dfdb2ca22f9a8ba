package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/gravadigital/bienestar-api/internal/config"
	"github.com/gravadigital/bienestar-api/internal/logger"
)

// Container implements RepositoryContainer on top of a GORM connection. The
// same type serves transactions: WithinTransaction hands fn a Container
// bound to the *gorm.DB of the open transaction.
type Container struct {
	db          *gorm.DB
	log         *log.Logger
	venueRepo   *PostgresVenueRepository
	eventRepo   *PostgresEventRepository
	accountRepo *PostgresAccountRepository
	inTx        bool
}

// NewContainer connects, migrates and health-checks the database
func NewContainer(cfg *config.Config) (*Container, error) {
	log := logger.Repository("postgres_container")
	log.Info("Initializing PostgreSQL repository container...")

	db, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	container := NewContainerWithDB(db)
	if err := container.Health(); err != nil {
		log.Error("Container health check failed", "error", err)
		return nil, fmt.Errorf("container health check failed: %w", err)
	}

	log.Info("PostgreSQL repository container initialized successfully")
	return container, nil
}

// NewContainerWithDB creates a container with an existing database connection
func NewContainerWithDB(db *gorm.DB) *Container {
	return &Container{
		db:          db,
		log:         logger.Repository("postgres_container"),
		venueRepo:   NewPostgresVenueRepository(db),
		eventRepo:   NewPostgresEventRepository(db),
		accountRepo: NewPostgresAccountRepository(db),
	}
}

// Venues returns the venue repository
func (c *Container) Venues() VenueRepository {
	return c.venueRepo
}

// Events returns the event repository
func (c *Container) Events() EventRepository {
	return c.eventRepo
}

// Accounts returns the account repository
func (c *Container) Accounts() AccountRepository {
	return c.accountRepo
}

// WithinTransaction runs fn inside a database transaction. Nested calls reuse
// the outer transaction.
func (c *Container) WithinTransaction(ctx context.Context, fn func(tx RepositoryContainer) error) error {
	if c.inTx {
		return fn(c)
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c.log.Debug("Database transaction started")
		txc := NewContainerWithDB(tx)
		txc.log = logger.Repository("postgres_transaction")
		txc.inTx = true
		return fn(txc)
	})
}

// Health pings the database and touches every owned table
func (c *Container) Health() error {
	if err := HealthCheck(c.db); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	metrics := GetDatabaseMetrics(c.db)
	c.log.Debug("Database connection metrics",
		"open_connections", metrics.OpenConnections,
		"in_use_connections", metrics.InUseConnections,
		"idle_connections", metrics.IdleConnections)

	for _, table := range []string{"venues", "events", "event_participants", "accounts"} {
		var count int64
		if err := c.db.Table(table).Count(&count).Error; err != nil {
			c.log.Error("Repository health check failed", "table", table, "error", err)
			return fmt.Errorf("table %s health check failed: %w", table, err)
		}
	}
	return nil
}

// Close releases the connection pool
func (c *Container) Close() error {
	if c.db == nil || c.inTx {
		return nil
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		c.log.Error("Failed to close database connection", "error", err)
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	c.log.Info("PostgreSQL repository container closed successfully")
	return nil
}

// CloseWithTimeout closes the container with a timeout
func (c *Container) CloseWithTimeout(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- c.Close()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		c.log.Error("Container close operation timed out", "timeout", timeout)
		return fmt.Errorf("container close operation timed out after %v", timeout)
	}
}
