package storage

import (
	"context"
	"fmt"

	"github.com/gravadigital/campuscast-api/internal/config"
	"github.com/gravadigital/campuscast-api/internal/logger"
	"github.com/gravadigital/campuscast-api/internal/storage/kv"
	"github.com/gravadigital/campuscast-api/internal/storage/objectstore"
	"github.com/gravadigital/campuscast-api/internal/storage/postgres"
	"github.com/gravadigital/campuscast-api/internal/storage/sqlite"
)

// StorageType represents the type of storage backend
type StorageType string

const (
	// StorageTypeMemory keeps state in process memory only
	StorageTypeMemory StorageType = "memory"
	// StorageTypeSQLite represents a local SQLite file
	StorageTypeSQLite StorageType = "sqlite"
	// StorageTypePostgres represents PostgreSQL storage
	StorageTypePostgres StorageType = "postgres"
	// StorageTypeMinIO represents an S3 compatible bucket
	StorageTypeMinIO StorageType = "minio"
)

// Factory provides a factory pattern for creating key-value stores
type Factory struct {
	storageType StorageType
}

// NewFactory creates a new storage factory
func NewFactory(storageType StorageType) *Factory {
	return &Factory{
		storageType: storageType,
	}
}

// CreateStore opens the key-value store for the configured type
func (f *Factory) CreateStore(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	logger.Storage(string(f.storageType)).Info("Opening storage backend")

	var (
		store kv.Store
		err   error
	)

	switch f.storageType {
	case StorageTypeMemory:
		store = kv.NewMemory()
	case StorageTypeSQLite:
		store, err = openSQLite(cfg)
	case StorageTypePostgres:
		store, err = openPostgres(cfg)
	case StorageTypeMinIO:
		store, err = openMinIO(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", f.storageType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", f.storageType, err)
	}
	return store, nil
}

func openSQLite(cfg *config.Config) (kv.Store, error) {
	s, err := sqlite.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openPostgres(cfg *config.Config) (kv.Store, error) {
	c, err := postgres.NewContainer(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func openMinIO(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	s, err := objectstore.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetSupportedTypes returns a list of supported storage types
func GetSupportedTypes() []StorageType {
	return []StorageType{
		StorageTypeMemory,
		StorageTypeSQLite,
		StorageTypePostgres,
		StorageTypeMinIO,
	}
}

// ValidateStorageType validates if a storage type is supported
func ValidateStorageType(storageType string) (StorageType, error) {
	st := StorageType(storageType)

	for _, supported := range GetSupportedTypes() {
		if st == supported {
			return st, nil
		}
	}

	return "", fmt.Errorf("unsupported storage type: %s. Supported types: %v", storageType, GetSupportedTypes())
}
