// Package database opens the SQL substrate that esikit persists credentials
// and scheduler state in. It uses pure Go drivers throughout so builds stay
// CGO-free and cross-compile cleanly.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	// Database drivers - pure Go implementations for CGO-free builds
	_ "github.com/go-sql-driver/mysql"                   // MySQL
	_ "github.com/jackc/pgx/v5/stdlib"                   // PostgreSQL via pgx
	_ "github.com/tursodatabase/libsql-client-go/libsql" // LibSQL/Turso
	_ "modernc.org/sqlite"                               // SQLite

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Common errors
var (
	ErrInvalidDriver = errors.New("invalid database driver")
	ErrInvalidConfig = errors.New("invalid database configuration")
)

// NewSQL opens a sql.DB for the configured driver and verifies the
// connection with a bounded ping.
func NewSQL(cfg Config) (*sql.DB, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var dsn string
	var driverName string

	switch cfg.Driver {
	case "mysql":
		driverName = "mysql"
		dsn = buildMySQLDSN(cfg)

	case "postgres", "postgresql":
		driverName = "pgx"
		dsn = buildPostgresDSN(cfg)

	case "sqlite", "sqlite3":
		driverName = "sqlite"
		dsn = cfg.Database
		if dsn == "" {
			dsn = "file:esikit.db?cache=shared&mode=rwc"
		}

	case "libsql", "turso":
		driverName = "libsql"
		dsn = cfg.URL
		if cfg.AuthToken != "" {
			dsn = fmt.Sprintf("%s?authToken=%s", cfg.URL, cfg.AuthToken)
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidDriver, cfg.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// NewGORM wraps an existing SQL connection in a GORM instance with the
// matching dialector.
func NewGORM(cfg Config, sqlDB *sql.DB) (*gorm.DB, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("sql.DB instance is required for GORM")
	}

	var dialector gorm.Dialector

	switch cfg.Driver {
	case "mysql":
		dialector = mysql.New(mysql.Config{Conn: sqlDB})

	case "postgres", "postgresql":
		dialector = postgres.New(postgres.Config{Conn: sqlDB})

	case "sqlite", "sqlite3", "libsql", "turso":
		dialector = sqlite.Dialector{Conn: sqlDB}

	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidDriver, cfg.Driver)
	}

	gormCfg := &gorm.Config{}
	if cfg.Debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	} else {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	return gorm.Open(dialector, gormCfg)
}

// Open is the common path: open the SQL connection and wrap it in GORM.
func Open(cfg Config) (*gorm.DB, error) {
	sqlDB, err := NewSQL(cfg)
	if err != nil {
		return nil, err
	}
	return NewGORM(cfg, sqlDB)
}

// OpenFromEnv opens a GORM instance from environment configuration.
func OpenFromEnv() (*gorm.DB, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return Open(*cfg)
}

func validateConfig(cfg Config) error {
	if cfg.Driver == "" {
		return errors.New("database driver required")
	}

	// For turso/libsql, URL is required
	if (cfg.Driver == "libsql" || cfg.Driver == "turso") && cfg.URL == "" {
		return errors.New("libsql requires URL to be set")
	}

	// Server databases need connection details unless a URL is given
	switch cfg.Driver {
	case "mysql", "postgres", "postgresql":
		if cfg.URL == "" && (cfg.Host == "" || cfg.Database == "") {
			return errors.New("database connection details required")
		}
	}

	return nil
}

func buildMySQLDSN(cfg Config) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	port := cfg.Port
	if port == "" {
		port = "3306"
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.Username, cfg.Password, cfg.Host, port, cfg.Database)
}

func buildPostgresDSN(cfg Config) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	port := cfg.Port
	if port == "" {
		port = "5432"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(cfg.Username), url.QueryEscape(cfg.Password),
		cfg.Host, port, cfg.Database, cfg.SSLMode)
}
