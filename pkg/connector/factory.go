// pkg/connector/factory.go
package connector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/qguide-analysis/pkg/config"
)

// ConnectorFactory creates database connectors
type ConnectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.Config, logger *zap.Logger) *ConnectorFactory {
	return &ConnectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// Create opens a connector by kind: postgres, snowflake or sqlite
func (f *ConnectorFactory) Create(ctx context.Context, kind string) (DatabaseConnector, error) {
	f.logger.Info("Creating database connector", zap.String("kind", kind))

	var (
		conn DatabaseConnector
		err  error
	)
	switch kind {
	case "postgres":
		conn, err = NewPostgresConnector(ctx, f.cfg.Postgres)
	case "snowflake":
		conn, err = NewSnowflakeConnector(ctx, f.cfg.Snowflake)
	case "sqlite":
		conn, err = NewSQLiteConnector(ctx, f.cfg.SQLite)
	default:
		return nil, fmt.Errorf("unsupported connector kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s connector: %w", kind, err)
	}

	if err := conn.Validate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to validate %s connector: %w", kind, err)
	}

	return conn, nil
}

// CreateSourceConnector opens the connector for RAW_SOURCE
func (f *ConnectorFactory) CreateSourceConnector(ctx context.Context) (DatabaseConnector, error) {
	return f.Create(ctx, f.cfg.RawSource)
}

// CreatePublishConnector opens the connector for PUBLISH_TARGET
func (f *ConnectorFactory) CreatePublishConnector(ctx context.Context) (DatabaseConnector, error) {
	return f.Create(ctx, f.cfg.PublishTarget)
}
