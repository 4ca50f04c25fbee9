// pkg/connector/sqlite.go
package connector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/David-Botos/qguide-analysis/pkg/config"
)

// SQLiteConnector implements the DatabaseConnector interface for a local
// SQLite file
type SQLiteConnector struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.SQLiteConfig
}

// NewSQLiteConnector opens (and creates if needed) the SQLite database
func NewSQLiteConnector(ctx context.Context, cfg *config.SQLiteConfig) (*SQLiteConnector, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	logger := zap.L().Named("sqlite-connector")

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	logger.Info("Opening SQLite database", zap.String("path", cfg.Path))

	db, err := sqlx.Open("sqlite3", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// One writer at a time
	ApplyConnectionSettings(db, 1, 1, 0, 0)

	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	return &SQLiteConnector{db: db, logger: logger, cfg: cfg}, nil
}

// DB returns the underlying database connection
func (c *SQLiteConnector) DB() *sqlx.DB {
	return c.db
}

// Dialect returns DialectSQLite
func (c *SQLiteConnector) Dialect() Dialect {
	return DialectSQLite
}

// Schema returns "" since SQLite has no schemas
func (c *SQLiteConnector) Schema() string {
	return ""
}

// Validate checks that the database answers queries
func (c *SQLiteConnector) Validate(ctx context.Context) error {
	var version string
	if err := c.db.GetContext(ctx, &version, "SELECT sqlite_version()"); err != nil {
		return fmt.Errorf("failed to query sqlite version: %w", err)
	}
	c.logger.Info("Connected to SQLite", zap.String("version", version), zap.String("path", c.cfg.Path))
	return nil
}

// Close closes the database connection
func (c *SQLiteConnector) Close() error {
	c.logger.Info("Closing SQLite connection")
	return c.db.Close()
}
