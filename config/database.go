package config

import (
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DSN returns the MySQL connection string. DATABASE_URL wins when set; either
// way timestamps are parsed into time.Time and read as UTC.
func (d DatabaseConfig) DSN() (string, error) {
	var cfg *mysql.Config
	if d.DatabaseURL != "" {
		parsed, err := mysql.ParseDSN(d.DatabaseURL)
		if err != nil {
			return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		cfg = parsed
	} else {
		cfg = mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = d.Host + ":" + d.Port
		cfg.DBName = d.DBName
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg.FormatDSN(), nil
}
