package migrations

import (
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// KVTable is the table every key-value backend on Postgres writes to
const KVTable = "kv_entries"

// migration001Up creates the key-value table
func migration001Up(db *gorm.DB) error {
	table := pq.QuoteIdentifier(KVTable)

	stmt := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            key VARCHAR(255) PRIMARY KEY,
            value BYTEA NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`, table)

	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to create %s: %w", KVTable, err)
	}
	return nil
}

func migration001Down(db *gorm.DB) error {
	return db.Exec("DROP TABLE IF EXISTS " + pq.QuoteIdentifier(KVTable)).Error
}
