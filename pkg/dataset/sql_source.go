// pkg/dataset/sql_source.go
package dataset

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/qguide-analysis/pkg/connector"
)

// SQLSource loads the raw evaluation table from a database table
type SQLSource struct {
	conn    connector.DatabaseConnector
	table   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewSQLSource creates a source reading from table in the connector's schema
func NewSQLSource(conn connector.DatabaseConnector, table string, logger *zap.Logger) *SQLSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLSource{
		conn:    conn,
		table:   table,
		timeout: 2 * time.Minute,
		logger:  logger.Named("sql-source"),
	}
}

// Load reads every row of the table, mapping columns with the same aliases
// as the CSV reader
func (s *SQLSource) Load(ctx context.Context) (*Table, error) {
	name := connector.QualifiedName(s.conn.Dialect(), s.conn.Schema(), s.table)
	query := fmt.Sprintf("SELECT * FROM %s", name)

	s.logger.Info("Loading raw evaluations", zap.String("table", name))

	rows, cancel, err := connector.QueryWithTimeout(ctx, s.conn.DB(), query, s.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}
	defer cancel()
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
	}
	cols, err := resolveColumns(header, name)
	if err != nil {
		return nil, err
	}

	table := &Table{Source: name}
	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row %d: %w", name, len(table.Records)+1, err)
		}
		table.add(cols, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", name, err)
	}

	s.logger.Info("Loaded raw evaluations",
		zap.String("table", name),
		zap.Int("rows", len(table.Records)),
		zap.Int("malformedCells", table.MalformedCells))

	return table, nil
}
