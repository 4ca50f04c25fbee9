package connector

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/David-Botos/qguide-analysis/pkg/config"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		dialect Dialect
		name    string
		want    string
	}{
		{DialectPostgres, "qguide_rows", `"qguide_rows"`},
		{DialectSQLite, `odd"name`, `"odd""name"`},
		{DialectSnowflake, "qguide_rows", `"QGUIDE_ROWS"`},
	}
	for _, tt := range tests {
		if got := QuoteIdentifier(tt.dialect, tt.name); got != tt.want {
			t.Errorf("QuoteIdentifier(%s, %q) = %s, want %s", tt.dialect, tt.name, got, tt.want)
		}
	}
}

func TestQualifiedName(t *testing.T) {
	if got := QualifiedName(DialectPostgres, "public", "rows"); got != `"public"."rows"` {
		t.Errorf("postgres = %s", got)
	}
	if got := QualifiedName(DialectSQLite, "ignored", "rows"); got != `"rows"` {
		t.Errorf("sqlite = %s", got)
	}
	if got := QualifiedName(DialectPostgres, "", "rows"); got != `"rows"` {
		t.Errorf("no schema = %s", got)
	}
}

func TestFactoryRejectsUnknownKind(t *testing.T) {
	f := NewConnectorFactory(&config.Config{}, zap.NewNop())
	if _, err := f.Create(context.Background(), "oracle"); err == nil {
		t.Errorf("expected error for unknown kind")
	}
	if _, err := f.Create(context.Background(), "postgres"); err == nil {
		t.Errorf("expected error for missing postgres config")
	}
}

func TestSQLiteConnector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "qguide.db")
	f := NewConnectorFactory(&config.Config{SQLite: &config.SQLiteConfig{Path: path}}, zap.NewNop())

	conn, err := f.Create(context.Background(), "sqlite")
	if err != nil {
		t.Skipf("sqlite unavailable in this build: %v", err)
	}
	defer conn.Close()

	if conn.Dialect() != DialectSQLite || conn.Schema() != "" {
		t.Errorf("dialect/schema = %s/%q", conn.Dialect(), conn.Schema())
	}
	if _, err := conn.DB().Exec(`CREATE TABLE t (x INTEGER)`); err != nil {
		t.Fatalf("create: %v", err)
	}
}
