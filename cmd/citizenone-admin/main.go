// Command citizenone-admin prepares a CitizenOne database: schema creation,
// the first admin account and department seeding.
package main

import (
	"citizenone/config"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "citizenone-admin",
		Short:         "Operator tasks for a CitizenOne database",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := godotenv.Load(); err != nil {
				log.Println("Warning: .env file not found, using environment variables")
			}
		},
	}
	root.AddCommand(newMigrateCmd(), newCreateAdminCmd(), newSeedDepartmentCmd())
	return root
}

// openDB connects using the same configuration as the server
func openDB() (*sql.DB, *config.Config, error) {
	cfg := config.LoadConfig()
	dsn, err := cfg.Database.DSN()
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, cfg, nil
}
