// Package schema provides startup validation of required DB columns to prevent schema-code mismatch.
package schema

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
)

// RequiredColumn defines a required column for a table.
type RequiredColumn struct {
	Table  string
	Column string
}

// DefaultRequiredColumns returns the columns the lifecycle code cannot run without.
var DefaultRequiredColumns = []RequiredColumn{
	{Table: "complaints", Column: "version"},
	{Table: "complaints", Column: "feedback_rating"},
	{Table: "complaint_sequences", Column: "last_value"},
	{Table: "complaint_timeline", Column: "department_id"},
	{Table: "notifications", Column: "delivery_status"},
	{Table: "notifications", Column: "next_retry_at"},
	{Table: "users", Column: "notify_in_app"},
}

// ValidateRequiredColumns checks that all required columns exist and lists any that are missing.
func ValidateRequiredColumns(db *sql.DB, required []RequiredColumn) error {
	if len(required) == 0 {
		required = DefaultRequiredColumns
	}
	var missing []string
	for _, rc := range required {
		exists, err := columnExists(db, rc.Table, rc.Column)
		if err != nil {
			return fmt.Errorf("failed to check column %s.%s: %w", rc.Table, rc.Column, err)
		}
		if !exists {
			missing = append(missing, rc.Table+"."+rc.Column)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns (run migrations to fix): %s", strings.Join(missing, ", "))
	}
	log.Println("[SCHEMA] Required columns verified")
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM information_schema.COLUMNS 
		 WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
