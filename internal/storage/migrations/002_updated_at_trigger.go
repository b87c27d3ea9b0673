package migrations

import (
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// migration002Up keeps updated_at current on every overwrite
func migration002Up(db *gorm.DB) error {
	table := pq.QuoteIdentifier(KVTable)

	statements := []string{
		`CREATE OR REPLACE FUNCTION kv_touch_updated_at()
        RETURNS TRIGGER AS $$
        BEGIN
            NEW.updated_at = CURRENT_TIMESTAMP;
            RETURN NEW;
        END;
        $$ LANGUAGE plpgsql`,

		fmt.Sprintf(`DROP TRIGGER IF EXISTS trg_kv_touch_updated_at ON %s`, table),

		fmt.Sprintf(`CREATE TRIGGER trg_kv_touch_updated_at
            BEFORE UPDATE ON %s
            FOR EACH ROW EXECUTE FUNCTION kv_touch_updated_at()`, table),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_kv_entries_updated_at ON %s(updated_at DESC)`, table),
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func migration002Down(db *gorm.DB) error {
	table := pq.QuoteIdentifier(KVTable)

	statements := []string{
		"DROP INDEX IF EXISTS idx_kv_entries_updated_at",
		fmt.Sprintf("DROP TRIGGER IF EXISTS trg_kv_touch_updated_at ON %s", table),
		"DROP FUNCTION IF EXISTS kv_touch_updated_at()",
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
