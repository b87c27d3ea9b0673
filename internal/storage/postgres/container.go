package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/gravadigital/campuscast-api/internal/config"
	"github.com/gravadigital/campuscast-api/internal/logger"
	"github.com/gravadigital/campuscast-api/internal/storage/kv"
)

// Container owns the database connection and exposes it as a kv.Store
type Container struct {
	*KVRepository

	db  *gorm.DB
	log *log.Logger
}

var _ kv.Store = (*Container)(nil)

// NewContainer connects, runs pending migrations and checks the key-value table
func NewContainer(cfg *config.Config) (*Container, error) {
	log := logger.Repository("postgres_container")
	log.Info("Initializing PostgreSQL store...")

	db, err := Connect(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		log.Error("Failed to run migrations", "error", err)
		_ = Close(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	container := NewContainerWithDB(db)

	if err := container.Health(); err != nil {
		log.Error("Container health check failed", "error", err)
		_ = Close(db)
		return nil, fmt.Errorf("container health check failed: %w", err)
	}

	log.Info("PostgreSQL store initialized successfully")
	return container, nil
}

// NewContainerWithDB wraps an existing, already migrated connection
func NewContainerWithDB(db *gorm.DB) *Container {
	return &Container{
		KVRepository: NewKVRepository(db),
		db:           db,
		log:          logger.Repository("postgres_container"),
	}
}

// Health checks the connection and that the key-value table is queryable
func (c *Container) Health() error {
	if err := HealthCheck(c.db); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int64
	if err := c.db.WithContext(ctx).Model(&Entry{}).Count(&count).Error; err != nil {
		return fmt.Errorf("kv table check failed: %w", err)
	}

	c.log.Debug("Container health check passed", "entries", count)
	return nil
}

// Close shuts down the database connection
func (c *Container) Close() error {
	if c.db == nil {
		return nil
	}

	c.log.Info("Closing PostgreSQL store...")
	err := CloseWithTimeout(c.db, 10*time.Second)
	c.db = nil
	return err
}
