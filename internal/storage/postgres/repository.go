package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gravadigital/campuscast-api/internal/logger"
	"github.com/gravadigital/campuscast-api/internal/storage/kv"
	"github.com/gravadigital/campuscast-api/internal/storage/migrations"
)

// Entry is one row of the key-value table
type Entry struct {
	Key       string    `gorm:"column:key;primaryKey;size:255"`
	Value     []byte    `gorm:"column:value;type:bytea;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Entry) TableName() string {
	return migrations.KVTable
}

// KVRepository implements kv.Store using GORM
type KVRepository struct {
	db  *gorm.DB
	log *log.Logger
}

var _ kv.Store = (*KVRepository)(nil)

// NewKVRepository creates a key-value repository over an open connection
func NewKVRepository(db *gorm.DB) *KVRepository {
	return &KVRepository{
		db:  db,
		log: logger.Repository("kv"),
	}
}

func (r *KVRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var entry Entry
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, kv.ErrNotFound
		}
		r.log.Error("Failed to read entry", "key", key, "error", err)
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}

	r.log.Debug("Entry read", "key", key, "bytes", len(entry.Value))
	return entry.Value, nil
}

func (r *KVRepository) Put(ctx context.Context, key string, value []byte) error {
	entry := Entry{Key: key, Value: value}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		r.log.Error("Failed to write entry", "key", key, "error", err)
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}

	r.log.Debug("Entry written", "key", key, "bytes", len(value))
	return nil
}

func (r *KVRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("key = ?", key).Delete(&Entry{}).Error; err != nil {
		r.log.Error("Failed to delete entry", "key", key, "error", err)
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the connection belongs to the Container
func (r *KVRepository) Close() error {
	return nil
}
