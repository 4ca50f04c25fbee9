// pkg/publish/verifier.go
package publish

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/qguide-analysis/pkg/connector"
)

// Verifier checks published tables against what the run wrote
type Verifier struct {
	conn    connector.DatabaseConnector
	logger  *zap.Logger
	timeout time.Duration
}

// NewVerifier creates a new verifier
func NewVerifier(conn connector.DatabaseConnector, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		conn:    conn,
		logger:  logger.Named("verifier"),
		timeout: time.Minute,
	}
}

// WithTimeout sets a custom timeout for verification queries
func (v *Verifier) WithTimeout(timeout time.Duration) *Verifier {
	v.timeout = timeout
	return v
}

// VerifyRowCount compares the row count of a table with the expected count
func (v *Verifier) VerifyRowCount(ctx context.Context, table string, expected int64) (bool, int64, error) {
	name := connector.QualifiedName(v.conn.Dialect(), v.conn.Schema(), table)

	rows, cancel, err := connector.QueryWithTimeout(ctx, v.conn.DB(), "SELECT COUNT(*) FROM "+name, v.timeout)
	if err != nil {
		return false, 0, fmt.Errorf("failed to count %s: %w", name, err)
	}
	defer cancel()
	defer rows.Close()

	var count int64
	if !rows.Next() {
		return false, 0, fmt.Errorf("no results returned from count query on %s", name)
	}
	if err := rows.Scan(&count); err != nil {
		return false, 0, fmt.Errorf("failed to scan count of %s: %w", name, err)
	}

	matches := count == expected
	if matches {
		v.logger.Info("Row count verification successful",
			zap.String("table", name),
			zap.Int64("count", count))
	} else {
		v.logger.Warn("Row count mismatch",
			zap.String("table", name),
			zap.Int64("expected", expected),
			zap.Int64("actual", count),
			zap.Int64("difference", expected-count))
	}
	return matches, count, nil
}

// VerifyAll checks every table in written and fails on the first mismatch
func (v *Verifier) VerifyAll(ctx context.Context, written map[string]int64) error {
	for _, table := range []string{TableAnalysisRows, TableCoefficients, TableModelSummary} {
		expected, ok := written[table]
		if !ok {
			continue
		}
		matches, count, err := v.VerifyRowCount(ctx, table, expected)
		if err != nil {
			return err
		}
		if !matches {
			return fmt.Errorf("table %s has %d rows after publish, expected %d", table, count, expected)
		}
	}
	return nil
}
