package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
)

type Config struct {
	Port          int
	DatabaseType  string // "postgres" or "sqlite"
	DatabaseURL   string // postgres only
	SQLitePath    string // sqlite only
	SessionSecret string
	SeedDemo      bool
}

// ParseFlags validates flags, falling back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("pb-portal", flag.ContinueOnError)

	// Network and backend config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Postgres URL (postgres backend only)")
	fs.StringVar(&cfg.SQLitePath, "f", "", "SQLite file path (sqlite backend only)")
	fs.BoolVar(&cfg.SeedDemo, "seed-demo", false, "Seed demonstration data on an empty local store")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.SessionSecret, "session-secret", "", "Session cookie secret (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3326 // default
		}
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseType == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, errors.New("postgres backend requires a database URL (use -d or DATABASE_URL env)")
	}

	if cfg.SQLitePath == "" {
		cfg.SQLitePath = os.Getenv("SQLITE_PATH")
		if cfg.SQLitePath == "" {
			cfg.SQLitePath = "pb-portal.db"
		}
	}

	if !cfg.SeedDemo && os.Getenv("SEED_DEMO") == "true" {
		cfg.SeedDemo = true
	}

	// Secrets - MUST be provided
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET required")
	}

	return cfg, nil
}
