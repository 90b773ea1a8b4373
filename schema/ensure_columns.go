package schema

import (
	"database/sql"
	"fmt"
	"log"
)

// EnsureComplaintColumns adds the optimistic-locking and feedback columns to a
// complaints table created before they existed. Only missing columns are added.
func EnsureComplaintColumns(db *sql.DB) error {
	columns := []struct{ name, spec string }{
		{"version", "INT NOT NULL DEFAULT 1 COMMENT 'Optimistic concurrency counter'"},
		{"feedback_rating", "TINYINT NULL"},
		{"feedback_comment", "TEXT NULL"},
		{"feedback_submitted_at", "DATETIME NULL"},
	}
	for _, c := range columns {
		if err := ensureColumn(db, "complaints", c.name, c.spec); err != nil {
			return err
		}
	}
	log.Println("[SCHEMA] Schema check passed")
	return nil
}

func tableExists(db *sql.DB, table string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`,
		table,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func ensureColumn(db *sql.DB, table, column, spec string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return fmt.Errorf("failed to check column %s.%s: %w", table, column, err)
	}
	if exists {
		return nil
	}
	// MySQL does not support ADD COLUMN IF NOT EXISTS; we checked above so safe to add
	query := "ALTER TABLE " + table + " ADD COLUMN " + column + " " + spec
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to add column %s.%s: %w", table, column, err)
	}
	log.Printf("[SCHEMA] Added missing column: %s.%s", table, column)
	return nil
}
