package dataset

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/David-Botos/qguide-analysis/pkg/config"
	"github.com/David-Botos/qguide-analysis/pkg/connector"
	"github.com/David-Botos/qguide-analysis/pkg/runerrors"
)

func openSQLite(t *testing.T) connector.DatabaseConnector {
	t.Helper()
	conn, err := connector.NewSQLiteConnector(context.Background(),
		&config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "raw.db")})
	if err != nil {
		t.Skipf("sqlite unavailable in this build: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSQLSourceLoad(t *testing.T) {
	conn := openSQLite(t)
	db := conn.DB()

	stmts := []string{
		`CREATE TABLE evaluations (course_title TEXT, course_teacher TEXT, course_score REAL, teacher_score TEXT, enrollment INTEGER, subject TEXT)`,
		`INSERT INTO evaluations VALUES ('CS50', 'Jane Doe', 4.2, '4.5', 300, 'Computer Science')`,
		`INSERT INTO evaluations VALUES ('CS51', 'John Smith', NULL, 'NA', NULL, 'Computer Science')`,
		`INSERT INTO evaluations VALUES ('CS52', 'Al Lee', 3.9, 'abc', 40, 'History')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}

	table, err := NewSQLSource(conn, "evaluations", zap.NewNop()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(table.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(table.Records))
	}

	first := table.Records[0]
	if first.CourseID != "CS50" || first.LecturerName != "Jane Doe" {
		t.Errorf("first = %+v", first)
	}
	if first.CourseScore == nil || *first.CourseScore != 4.2 {
		t.Errorf("course score = %v", first.CourseScore)
	}
	if first.LecturerScore == nil || *first.LecturerScore != 4.5 {
		t.Errorf("lecturer score = %v", first.LecturerScore)
	}
	if first.Enrollment == nil || *first.Enrollment != 300 {
		t.Errorf("enrollment = %v", first.Enrollment)
	}

	second := table.Records[1]
	if second.CourseScore != nil || second.LecturerScore != nil || second.Enrollment != nil {
		t.Errorf("second should have missing values: %+v", second)
	}

	if table.Records[2].LecturerScore != nil {
		t.Errorf("malformed score should be missing")
	}
	if table.MalformedCells != 1 {
		t.Errorf("malformed = %d, want 1", table.MalformedCells)
	}
}

func TestSQLSourceMissingColumns(t *testing.T) {
	conn := openSQLite(t)
	if _, err := conn.DB().Exec(`CREATE TABLE evaluations (course_id TEXT, lecturer_name TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := NewSQLSource(conn, "evaluations", nil).Load(context.Background())
	var missing *runerrors.MissingDataError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingDataError", err)
	}
	if len(missing.Columns) != 2 {
		t.Errorf("columns = %v, want both score columns", missing.Columns)
	}
}
