package publish

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/David-Botos/qguide-analysis/pkg/config"
	"github.com/David-Botos/qguide-analysis/pkg/connector"
	"github.com/David-Botos/qguide-analysis/pkg/model"
)

func openSQLite(t *testing.T) connector.DatabaseConnector {
	t.Helper()
	path := filepath.Join(t.TempDir(), "publish.db")
	conn, err := connector.NewSQLiteConnector(context.Background(), &config.SQLiteConfig{Path: path})
	if err != nil {
		t.Skipf("sqlite unavailable in this build: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sampleRows() []model.AnalysisRow {
	enrollment := 300
	logEnrollment := math.Log(300)
	return []model.AnalysisRow{
		{Line: 1, CourseID: "CS50", LecturerName: "Jane Doe", FirstNameKey: "jane", Gender: model.GenderFemale,
			Female: 1, CourseScore: 4.2, LecturerScore: 4.5, Enrollment: &enrollment, LogEnrollment: &logEnrollment,
			Department: "Computer Science", MatchMode: model.MatchExact},
		{Line: 2, CourseID: "EC10", LecturerName: "John Smith", FirstNameKey: "john", Gender: model.GenderMale,
			CourseScore: 3.8, LecturerScore: 3.9, MatchMode: model.MatchLoose},
	}
}

func sampleModels() []model.ModelResult {
	return []model.ModelResult{
		{Name: "lecturer_gender", Outcome: "lecturer_score_mean", N: 2, K: 2, RSquared: 1, AdjRSquared: math.NaN(),
			Terms: []model.Coefficient{
				{Term: "(Intercept)", Estimate: 3.9, StdErr: math.NaN(), TStat: math.NaN(), PValue: math.NaN()},
				{Term: "female", Estimate: 0.6, StdErr: math.NaN(), TStat: math.NaN(), PValue: math.NaN()},
			}},
		{Name: "lecturer_controls", Outcome: "lecturer_score_mean", Err: "too few observations"},
	}
}

func count(t *testing.T, conn connector.DatabaseConnector, table string) int {
	t.Helper()
	var n int
	if err := conn.DB().Get(&n, "SELECT COUNT(*) FROM "+connector.QuoteIdentifier(conn.Dialect(), table)); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestPublishReplacesTables(t *testing.T) {
	conn := openSQLite(t)
	p, err := NewPublisher(conn, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}

	ctx := context.Background()
	for _, runID := range []string{"run-1", "run-2"} {
		written, err := p.Publish(ctx, runID, sampleRows(), sampleModels())
		if err != nil {
			t.Fatalf("Publish(%s): %v", runID, err)
		}
		if written[TableAnalysisRows] != 2 || written[TableCoefficients] != 2 || written[TableModelSummary] != 2 {
			t.Errorf("written = %v", written)
		}
	}

	if got := count(t, conn, TableAnalysisRows); got != 2 {
		t.Errorf("analysis rows = %d, want 2 after republish", got)
	}

	var runIDs []string
	if err := conn.DB().Select(&runIDs, "SELECT DISTINCT run_id FROM "+TableModelSummary); err != nil {
		t.Fatal(err)
	}
	if len(runIDs) != 1 || runIDs[0] != "run-2" {
		t.Errorf("run ids = %v, want [run-2]", runIDs)
	}

	var status string
	if err := conn.DB().Get(&status, "SELECT status FROM "+TableModelSummary+" WHERE model = ?", "lecturer_controls"); err != nil {
		t.Fatal(err)
	}
	if status != "failed" {
		t.Errorf("status = %s, want failed", status)
	}

	var nullSE int
	if err := conn.DB().Get(&nullSE, "SELECT COUNT(*) FROM "+TableCoefficients+" WHERE std_error IS NULL"); err != nil {
		t.Fatal(err)
	}
	if nullSE != 2 {
		t.Errorf("NaN standard errors should be NULL, got %d nulls", nullSE)
	}
}

func TestBatchInsertSplitsLargeInputs(t *testing.T) {
	conn := openSQLite(t)
	p, _ := NewPublisher(conn, zap.NewNop())

	rows := make([]model.AnalysisRow, 250)
	for i := range rows {
		rows[i] = model.AnalysisRow{Line: i + 1, FirstNameKey: "jane", Gender: model.GenderFemale, Female: 1,
			CourseScore: 4, LecturerScore: 4, MatchMode: model.MatchExact}
	}

	written, err := p.Publish(context.Background(), "big", rows, nil)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if written[TableAnalysisRows] != 250 {
		t.Errorf("written = %d, want 250", written[TableAnalysisRows])
	}
	if got := count(t, conn, TableAnalysisRows); got != 250 {
		t.Errorf("count = %d, want 250", got)
	}
}

func TestVerifierDetectsMismatch(t *testing.T) {
	conn := openSQLite(t)
	p, _ := NewPublisher(conn, zap.NewNop())
	ctx := context.Background()

	written, err := p.Publish(ctx, "run", sampleRows(), sampleModels())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	v := NewVerifier(conn, nil)
	if err := v.VerifyAll(ctx, written); err != nil {
		t.Errorf("VerifyAll: %v", err)
	}

	matches, count, err := v.VerifyRowCount(ctx, TableAnalysisRows, 5)
	if err != nil {
		t.Fatal(err)
	}
	if matches || count != 2 {
		t.Errorf("matches = %v, count = %d", matches, count)
	}
	if err := v.VerifyAll(ctx, map[string]int64{TableCoefficients: 7}); err == nil {
		t.Errorf("mismatch not reported")
	}
}

func TestNewPublisherValidates(t *testing.T) {
	if _, err := NewPublisher(nil, zap.NewNop()); err == nil {
		t.Errorf("nil connector accepted")
	}
}

func TestValidateMetadata(t *testing.T) {
	for _, meta := range []model.TableMetadata{
		AnalysisRowsMetadata("public"),
		CoefficientsMetadata(""),
		ModelSummaryMetadata(""),
	} {
		if err := validateMetadata(meta); err != nil {
			t.Errorf("%s: %v", meta.Table, err)
		}
	}

	tests := []struct {
		name string
		meta model.TableMetadata
	}{
		{"no columns", model.TableMetadata{Table: "t"}},
		{"unknown key", model.TableMetadata{Table: "t", Columns: []model.Column{col("a", "TEXT", false)}, PrimaryKeys: []string{"b"}}},
		{"nullable key", model.TableMetadata{Table: "t", Columns: []model.Column{col("a", "TEXT", true)}, PrimaryKeys: []string{"A"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateMetadata(tt.meta); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}
