//go:build integration
// +build integration

package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/campuscast-api/internal/config"
	"github.com/gravadigital/campuscast-api/internal/storage/kv"
)

// Integration tests that require a real PostgreSQL database
// Run with: go test -tags=integration

func testConfig() *config.Config {
	cfg := config.Load()
	if testDB := os.Getenv("TEST_DB_NAME"); testDB != "" {
		cfg.DB.Name = testDB
	}
	return cfg
}

func TestDatabaseConnection(t *testing.T) {
	db, err := Connect(testConfig())
	require.NoError(t, err, "Should be able to connect to test database")
	defer Close(db)

	assert.NoError(t, HealthCheck(db), "Should be able to ping the database")
}

func TestDatabaseMigration(t *testing.T) {
	db, err := Connect(testConfig())
	require.NoError(t, err)
	defer Close(db)

	assert.NoError(t, AutoMigrate(db), "Should be able to run migrations")
	assert.NoError(t, AutoMigrate(db), "Migrations should be idempotent")
}

func TestContainer_KeyValue(t *testing.T) {
	ctx := context.Background()

	c, err := NewContainer(testConfig())
	require.NoError(t, err)
	defer c.Close()

	key := "integration_" + t.Name()
	defer c.Delete(ctx, key)

	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, c.Put(ctx, key, []byte(`[]`)))
	require.NoError(t, c.Put(ctx, key, []byte(`[{"id":"x"}]`)))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"x"}]`, string(got))

	require.NoError(t, c.Delete(ctx, key))
	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}
