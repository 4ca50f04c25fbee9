package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/David-Botos/qguide-analysis/pkg/model"
)

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestCommitCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := NewDirWriter(dir, nil)
	if err != nil {
		t.Fatalf("NewDirWriter: %v", err)
	}

	if err := w.Commit([]File{{Name: "a.txt", Write: writeString("first")}}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil || string(got) != "first" {
		t.Fatalf("a.txt = %q, %v", got, err)
	}
}

func TestCommitReplacesWholeSet(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "out")
	w, _ := NewDirWriter(dir, nil)

	if err := w.Commit([]File{
		{Name: "a.txt", Write: writeString("old")},
		{Name: "stale.txt", Write: writeString("stale")},
	}); err != nil {
		t.Fatalf("first Commit: %v", err)
	}
	if err := w.Commit([]File{{Name: "a.txt", Write: writeString("new")}}); err != nil {
		t.Fatalf("second Commit: %v", err)
	}

	got, _ := os.ReadFile(filepath.Join(dir, "a.txt"))
	if string(got) != "new" {
		t.Errorf("a.txt = %q, want new", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "stale.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stale file from previous run survived: %v", err)
	}
	assertNoLeftovers(t, parent)
}

func TestCommitFailureKeepsPreviousOutputs(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "out")
	w, _ := NewDirWriter(dir, nil)

	if err := w.Commit([]File{{Name: "a.txt", Write: writeString("good")}}); err != nil {
		t.Fatalf("first Commit: %v", err)
	}

	boom := errors.New("boom")
	err := w.Commit([]File{
		{Name: "a.txt", Write: writeString("partial")},
		{Name: "b.txt", Write: func(io.Writer) error { return boom }},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Commit error = %v, want boom", err)
	}

	got, _ := os.ReadFile(filepath.Join(dir, "a.txt"))
	if string(got) != "good" {
		t.Errorf("a.txt = %q, previous output was modified", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("partial file installed")
	}
	assertNoLeftovers(t, parent)
}

func TestCommitRejectsBadNames(t *testing.T) {
	w, _ := NewDirWriter(filepath.Join(t.TempDir(), "out"), nil)
	for _, name := range []string{"", "../x", "sub/x"} {
		if err := w.Commit([]File{{Name: name, Write: writeString("x")}}); err == nil {
			t.Errorf("Commit(%q) succeeded", name)
		}
	}
	dup := []File{{Name: "a", Write: writeString("1")}, {Name: "a", Write: writeString("2")}}
	if err := w.Commit(dup); err == nil {
		t.Errorf("duplicate names accepted")
	}
}

func assertNoLeftovers(t *testing.T, parent string) {
	t.Helper()
	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Errorf("leftover %s", e.Name())
		}
	}
}

func TestTablesLeaveUndefinedStatisticsEmpty(t *testing.T) {
	comparisons := []model.GroupComparison{{
		Outcome:    "lecturer_score_mean",
		Female:     model.GroupStats{Group: "female", N: 1, Mean: 4.5, StdDev: math.NaN(), StdErr: math.NaN(), CI95Low: math.NaN(), CI95Hi: math.NaN()},
		Male:       model.GroupStats{Group: "male", N: 1, Mean: 3.9, StdDev: math.NaN(), StdErr: math.NaN(), CI95Low: math.NaN(), CI95Hi: math.NaN()},
		Difference: 0.6,
		TStat:      math.NaN(), DF: math.NaN(), PValue: math.NaN(), CI95Low: math.NaN(), CI95Hi: math.NaN(),
		Err: "too few observations",
	}}

	var buf bytes.Buffer
	if err := WriteGroupMeans(&buf, comparisons); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("group means lines = %d, want 3", len(lines))
	}
	if lines[1] != "lecturer_score_mean,female,1,4.500000,,,," {
		t.Errorf("female row = %q", lines[1])
	}

	buf.Reset()
	if err := WriteGroupTests(&buf, comparisons); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "lecturer_score_mean,1,1,0.600000,,,,,,too few observations") {
		t.Errorf("group tests = %q", buf.String())
	}
}

func TestModelTables(t *testing.T) {
	models := []model.ModelResult{
		{
			Name: "lecturer_gender", Outcome: "lecturer_score_mean", N: 10, K: 2,
			RSquared: 0.25, AdjRSquared: 0.15, ResidualStdErr: 0.3,
			Terms: []model.Coefficient{
				{Term: "(Intercept)", Estimate: 3.9, StdErr: 0.1, TStat: 39, PValue: 0},
				{Term: "female", Estimate: 0.6, StdErr: 0.2, TStat: 3, PValue: 0.017},
			},
		},
		{Name: "lecturer_ideology", Outcome: "lecturer_score_mean", Err: "too few observations"},
	}

	var buf bytes.Buffer
	if err := WriteCoefficients(&buf, models); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 3 {
		t.Errorf("coefficient lines = %d, want 3", got)
	}

	buf.Reset()
	if err := WriteModelSummary(&buf, models); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "lecturer_gender,lecturer_score_mean,10,2,0.250000,0.150000,0.300000,ok,") {
		t.Errorf("ok row missing: %q", out)
	}
	if !strings.Contains(out, "lecturer_ideology,lecturer_score_mean,0,0,,,,failed,too few observations") {
		t.Errorf("failed row missing: %q", out)
	}
}

func TestRunSummaryJSONHasNoNaN(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	acct := model.Accounting{RawRows: 4, CleanRows: 2, DroppedMissingScore: 1, DroppedUnresolvedGender: 1}
	comparisons := []model.GroupComparison{{
		Outcome: "lecturer_score_mean",
		Female:  model.GroupStats{N: 1, Mean: 4.5},
		Male:    model.GroupStats{N: 1, Mean: 3.9},
		PValue:  math.NaN(),
		Err:     "too few observations",
	}}
	models := []model.ModelResult{{Name: "lecturer_gender", Err: "too few observations"}}

	s := NewRunSummary("run-1", "raw.csv", start, start.Add(1500*time.Millisecond), acct, comparisons, models)
	s.Errors["ModelFit"] = 1
	s.ErrorSamples["ModelFit"] = []string{"[ModelFit] lecturer_gender: model lecturer_gender fit failed: too few observations"}
	s.Unresolved = []string{"pat"}

	var buf bytes.Buffer
	if err := s.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["balanced"] != true {
		t.Errorf("balanced = %v", decoded["balanced"])
	}
	samples := decoded["error_samples"].(map[string]interface{})["ModelFit"].([]interface{})
	if len(samples) != 1 {
		t.Errorf("error_samples = %v", decoded["error_samples"])
	}
	if decoded["duration"] != "1.50s" {
		t.Errorf("duration = %v", decoded["duration"])
	}
	tests := decoded["group_tests"].([]interface{})
	if _, ok := tests[0].(map[string]interface{})["p_value"]; ok {
		t.Errorf("NaN p_value should be omitted")
	}

	text := s.Text()
	for _, want := range []string{"Raw Rows:                4", "Clean Rows:              2 (50.0%)", "lecturer_gender: failed", "pat", "ModelFit: 1 (100.0%)", "    [ModelFit] lecturer_gender: model lecturer_gender fit failed"} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}

func TestOutputFilesMatchNames(t *testing.T) {
	o := &Output{Summary: NewRunSummary("r", "s", time.Now(), time.Now(), model.Accounting{}, nil, nil)}
	files := o.Files()
	names := FileNames()
	if len(files) != len(names) {
		t.Fatalf("files = %d, names = %d", len(files), len(names))
	}
	for i := range files {
		if files[i].Name != names[i] {
			t.Errorf("file %d = %s, want %s", i, files[i].Name, names[i])
		}
	}

	dir := filepath.Join(t.TempDir(), "out")
	w, _ := NewDirWriter(dir, nil)
	if err := w.Commit(files); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
