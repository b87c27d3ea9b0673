package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/campuscast-api/internal/config"
)

func TestValidateStorageType(t *testing.T) {
	tests := []struct {
		input   string
		want    StorageType
		wantErr bool
	}{
		{"memory", StorageTypeMemory, false},
		{"sqlite", StorageTypeSQLite, false},
		{"postgres", StorageTypePostgres, false},
		{"minio", StorageTypeMinIO, false},
		{"redis", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ValidateStorageType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFactory_CreateStore(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "factory.db")

	for _, st := range []StorageType{StorageTypeMemory, StorageTypeSQLite} {
		t.Run(string(st), func(t *testing.T) {
			store, err := NewFactory(st).CreateStore(ctx, cfg)
			require.NoError(t, err)
			defer store.Close()

			repo := NewCollectionRepository(store, "")
			require.NoError(t, repo.Save(ctx, sampleCollection()))

			loaded, err := repo.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, sampleCollection(), loaded)
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewFactory("redis").CreateStore(ctx, cfg)
		assert.Error(t, err)
	})
}
