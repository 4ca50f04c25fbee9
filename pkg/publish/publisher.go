// pkg/publish/publisher.go
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/qguide-analysis/pkg/connector"
	"github.com/David-Botos/qguide-analysis/pkg/model"
)

// maxParams keeps a batch under SQLite's bound parameter limit
const maxParams = 900

// Publisher writes the run's tables to a database
type Publisher struct {
	conn    connector.DatabaseConnector
	logger  *zap.Logger
	timeout time.Duration
}

// NewPublisher creates a publisher on an open connector
func NewPublisher(conn connector.DatabaseConnector, logger *zap.Logger) (*Publisher, error) {
	if conn == nil {
		return nil, errors.New("connector is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Publisher{conn: conn, logger: logger.Named("publisher"), timeout: 30 * time.Second}, nil
}

// Publish replaces the contents of the published tables with this run's
// rows inside one transaction and returns the rows written per table
func (p *Publisher) Publish(ctx context.Context, runID string, rows []model.AnalysisRow, models []model.ModelResult) (map[string]int64, error) {
	schema := p.conn.Schema()
	tables := []struct {
		meta   model.TableMetadata
		values [][]interface{}
	}{
		{AnalysisRowsMetadata(schema), analysisRowValues(runID, rows)},
		{CoefficientsMetadata(schema), coefficientValues(runID, models)},
		{ModelSummaryMetadata(schema), modelSummaryValues(runID, models)},
	}

	if p.conn.Dialect() == connector.DialectPostgres && schema != "" {
		if _, err := connector.ExecWithTimeout(ctx, p.conn.DB(),
			"CREATE SCHEMA IF NOT EXISTS "+connector.QuoteIdentifier(connector.DialectPostgres, schema), p.timeout); err != nil {
			return nil, fmt.Errorf("failed to ensure schema %s: %w", schema, err)
		}
	}

	tx, err := p.conn.DB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				p.logger.Warn("Rollback failed", zap.Error(rbErr))
			}
		}
	}()

	written := make(map[string]int64, len(tables))
	for _, t := range tables {
		if err = p.createTableIfNotExists(ctx, tx, t.meta); err != nil {
			return nil, err
		}

		name := connector.QualifiedName(p.conn.Dialect(), t.meta.Schema, t.meta.Table)
		if _, err = connector.ExecWithTimeout(ctx, tx, "DELETE FROM "+name, p.timeout); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", name, err)
		}

		var n int64
		n, err = p.batchInsert(ctx, tx, t.meta, t.values)
		if err != nil {
			return nil, err
		}
		written[t.meta.Table] = n
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit publish: %w", err)
	}

	if err := NewVerifier(p.conn, p.logger).WithTimeout(p.timeout).VerifyAll(ctx, written); err != nil {
		return written, err
	}

	p.logger.Info("Published tables",
		zap.String("runId", runID),
		zap.String("dialect", string(p.conn.Dialect())),
		zap.Int64("analysisRows", written[TableAnalysisRows]),
		zap.Int64("coefficients", written[TableCoefficients]),
		zap.Int64("models", written[TableModelSummary]))

	return written, nil
}

// validateMetadata checks that every primary key names a NOT NULL column
func validateMetadata(meta model.TableMetadata) error {
	if len(meta.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", meta.Table)
	}
	for _, key := range meta.PrimaryKeys {
		c := meta.GetColumnByName(key)
		if c == nil {
			return fmt.Errorf("primary key %s is not a column of %s", key, meta.Table)
		}
		if c.Nullable {
			return fmt.Errorf("primary key %s of %s is nullable", key, meta.Table)
		}
	}
	return nil
}

// createTableIfNotExists creates the table from its metadata
func (p *Publisher) createTableIfNotExists(ctx context.Context, tx *sqlx.Tx, meta model.TableMetadata) error {
	if err := validateMetadata(meta); err != nil {
		return err
	}

	d := p.conn.Dialect()
	name := connector.QualifiedName(d, meta.Schema, meta.Table)

	columnDefs := make([]string, len(meta.Columns))
	for i, c := range meta.Columns {
		def := connector.QuoteIdentifier(d, c.Name) + " " + c.SQLType
		if !c.Nullable {
			def += " NOT NULL"
		}
		columnDefs[i] = def
	}

	createSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s", name, strings.Join(columnDefs, ",\n\t"))
	if len(meta.PrimaryKeys) > 0 {
		keys := make([]string, len(meta.PrimaryKeys))
		for i, k := range meta.PrimaryKeys {
			keys[i] = connector.QuoteIdentifier(d, k)
		}
		createSQL += fmt.Sprintf(",\n\tPRIMARY KEY (%s)", strings.Join(keys, ", "))
	}
	createSQL += "\n)"

	if _, err := connector.ExecWithTimeout(ctx, tx, createSQL, p.timeout); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	p.logger.Debug("Ensured table", zap.String("table", name))
	return nil
}

// batchInsert inserts rows in multi-row INSERT statements
func (p *Publisher) batchInsert(ctx context.Context, tx *sqlx.Tx, meta model.TableMetadata, valueRows [][]interface{}) (int64, error) {
	if len(valueRows) == 0 {
		return 0, nil
	}

	d := p.conn.Dialect()
	name := connector.QualifiedName(d, meta.Schema, meta.Table)
	columns := meta.ColumnNames()
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = connector.QuoteIdentifier(d, c)
	}
	columnStr := strings.Join(quoted, ", ")
	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	batchSize := maxParams / len(columns)
	if batchSize < 1 {
		batchSize = 1
	}

	var totalRowsInserted int64
	for i := 0; i < len(valueRows); i += batchSize {
		end := i + batchSize
		if end > len(valueRows) {
			end = len(valueRows)
		}
		currentBatch := valueRows[i:end]

		placeholders := make([]string, len(currentBatch))
		args := make([]interface{}, 0, len(currentBatch)*len(columns))
		for j, row := range currentBatch {
			if len(row) != len(columns) {
				return totalRowsInserted, fmt.Errorf("row %d of %s has %d values, want %d", i+j, name, len(row), len(columns))
			}
			placeholders[j] = rowPlaceholder
			args = append(args, row...)
		}

		query := tx.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			name, columnStr, strings.Join(placeholders, ", ")))

		result, err := connector.ExecWithTimeout(ctx, tx, query, p.timeout, args...)
		if err != nil {
			return totalRowsInserted, fmt.Errorf("batch insert into %s failed: %w", name, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			p.logger.Warn("Couldn't get rows affected", zap.Error(err))
			rowsAffected = int64(len(currentBatch))
		}
		totalRowsInserted += rowsAffected
	}

	return totalRowsInserted, nil
}
