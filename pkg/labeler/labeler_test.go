package labeler

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/David-Botos/qguide-analysis/pkg/model"
	"github.com/David-Botos/qguide-analysis/pkg/runerrors"
)

// stubInferrer answers from a fixed map and counts calls per name
type stubInferrer struct {
	answers map[string]Inference
	fail    map[string]bool
	calls   map[string]int
}

func newStub() *stubInferrer {
	return &stubInferrer{
		answers: map[string]Inference{
			"jane":    {ProbabilityFemale: 0.98, Count: 1200, Found: true},
			"john":    {ProbabilityFemale: 0.01, Count: 5000, Found: true},
			"al":      {ProbabilityFemale: 0.5, Count: 40, Found: true},
			"o'brien": {ProbabilityFemale: 0.2, Count: 3, Found: true},
		},
		fail:  map[string]bool{},
		calls: map[string]int{},
	}
}

func (s *stubInferrer) Infer(ctx context.Context, name string) (Inference, error) {
	s.calls[name]++
	if s.fail[name] {
		return Inference{}, errors.New("connection refused")
	}
	return s.answers[name], nil
}

func (s *stubInferrer) totalCalls() int {
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return b
}

func runLabeler(t *testing.T, inf Inferrer, opts Options, in []string) *Result {
	t.Helper()
	l, err := New(inf, opts, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := l.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestRunLabelsEveryNameWithAValidCategory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "labels.csv")
	res := runLabeler(t, newStub(), Options{OutputPath: out}, []string{"Jane", "JOHN", " al ", "Zed"})

	want := map[string]model.Gender{
		"jane": model.GenderFemale,
		"john": model.GenderMale,
		"al":   model.GenderUnknown,
		"zed":  model.GenderUnknown,
	}
	for name, gender := range want {
		label, ok := res.Table.Lookup(name)
		if !ok {
			t.Fatalf("missing label for %q", name)
		}
		if label.Gender != gender {
			t.Errorf("%s: gender = %s, want %s", name, label.Gender, gender)
		}
	}

	if zed, _ := res.Table.Lookup("zed"); zed.Source != model.SourceNoResult {
		t.Errorf("zed source = %s, want no_result", zed.Source)
	}

	table, err := LoadLabelsFile(out)
	if err != nil {
		t.Fatalf("LoadLabelsFile: %v", err)
	}
	for _, label := range table.Labels() {
		switch label.Gender {
		case model.GenderFemale, model.GenderMale, model.GenderUnknown:
		default:
			t.Errorf("label %q has invalid gender %q", label.Name, label.Gender)
		}
	}
	if res.Inferred != 3 || res.NoResult != 1 {
		t.Errorf("inferred/noResult = %d/%d, want 3/1", res.Inferred, res.NoResult)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	in := []string{"jane", "john", "al", "o'brien"}

	first := filepath.Join(dir, "first.csv")
	second := filepath.Join(dir, "second.csv")
	runLabeler(t, newStub(), Options{OutputPath: first}, in)
	runLabeler(t, newStub(), Options{OutputPath: second}, in)
	if !bytes.Equal(readFile(t, first), readFile(t, second)) {
		t.Fatalf("independent runs produced different tables")
	}

	before := readFile(t, first)
	runLabeler(t, newStub(), Options{OutputPath: first, Refresh: true}, in)
	if !bytes.Equal(before, readFile(t, first)) {
		t.Fatalf("re-running over an existing table changed it:\n%s\n---\n%s", before, readFile(t, first))
	}
}

func TestRunReusesPreviousLabels(t *testing.T) {
	out := filepath.Join(t.TempDir(), "labels.csv")
	runLabeler(t, newStub(), Options{OutputPath: out}, []string{"jane", "john"})

	stub := newStub()
	res := runLabeler(t, stub, Options{OutputPath: out}, []string{"jane", "john", "al"})
	if stub.totalCalls() != 1 || stub.calls["al"] != 1 {
		t.Errorf("calls = %v, want only al to be queried", stub.calls)
	}
	if res.Reused != 2 || res.Queried != 1 {
		t.Errorf("reused/queried = %d/%d, want 2/1", res.Reused, res.Queried)
	}

	stub = newStub()
	runLabeler(t, stub, Options{OutputPath: out, Refresh: true}, []string{"jane", "john", "al"})
	if stub.totalCalls() != 3 {
		t.Errorf("refresh should query every name, calls = %v", stub.calls)
	}
}

func TestOverridesWin(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "labels.csv")
	overrides := filepath.Join(dir, "overrides.csv")
	writeFile(t, overrides, "name,gender,note\nJane,male,confirmed on faculty page\nAl,female,\n")

	res := runLabeler(t, newStub(), Options{OutputPath: out, OverridesPath: overrides}, []string{"jane", "john", "al"})

	for name, want := range map[string]model.Gender{"jane": model.GenderMale, "al": model.GenderFemale, "john": model.GenderMale} {
		label, _ := res.Table.Lookup(name)
		if label.Gender != want {
			t.Errorf("%s = %s, want %s", name, label.Gender, want)
		}
	}
	jane, _ := res.Table.Lookup("jane")
	if jane.Source != model.SourceManual || jane.Confidence != 1 {
		t.Errorf("override should be manual with confidence 1, got %+v", jane)
	}
	if len(res.Unresolved) != 0 {
		t.Errorf("unresolved = %v, want none", res.Unresolved)
	}
}

func TestManualRowsSurviveRegeneration(t *testing.T) {
	out := filepath.Join(t.TempDir(), "labels.csv")
	writeFile(t, out, strings.Join([]string{
		"first_name,gender,source,confidence,count",
		"jane,male,manual,1.0000,0",
		"pat,female,,,",
		"john,female,inferred,0.9000,10",
	}, "\n")+"\n")

	stub := newStub()
	res := runLabeler(t, stub, Options{OutputPath: out, Refresh: true}, []string{"jane", "john"})

	if jane, _ := res.Table.Lookup("jane"); jane.Gender != model.GenderMale || jane.Source != model.SourceManual {
		t.Errorf("manual jane was overwritten: %+v", jane)
	}
	if pat, ok := res.Table.Lookup("pat"); !ok || pat.Gender != model.GenderFemale {
		t.Errorf("hand-added pat should survive as manual, got %+v (present=%v)", pat, ok)
	}
	if john, _ := res.Table.Lookup("john"); john.Gender != model.GenderMale {
		t.Errorf("inferred john should be refreshed, got %+v", john)
	}
	if stub.calls["jane"] != 0 {
		t.Errorf("manual names must not be queried")
	}
	if res.Manual != 2 {
		t.Errorf("manual = %d, want 2", res.Manual)
	}
}

func TestRefreshReportsChangedInferredLabels(t *testing.T) {
	out := filepath.Join(t.TempDir(), "labels.csv")
	writeFile(t, out, strings.Join([]string{
		"first_name,gender,source,confidence,count",
		"jane,male,inferred,0.9800,1200",
		"john,male,inferred,0.9900,5000",
		"al,female,manual,1.0000,0",
	}, "\n")+"\n")

	stub := newStub()
	res := runLabeler(t, stub, Options{OutputPath: out, Refresh: true}, []string{"jane", "john", "al"})

	if res.Changed != 1 {
		t.Errorf("changed = %d, want 1", res.Changed)
	}
	if jane, _ := res.Table.Lookup("jane"); jane.Gender != model.GenderFemale || jane.Source != model.SourceInferred {
		t.Errorf("jane = %+v, want refreshed inference", jane)
	}
	if al, _ := res.Table.Lookup("al"); al.Gender != model.GenderFemale || stub.calls["al"] != 0 {
		t.Errorf("manual al = %+v, calls = %d", al, stub.calls["al"])
	}

	res = runLabeler(t, newStub(), Options{OutputPath: out}, []string{"jane", "john", "al"})
	if res.Changed != 0 || res.Queried != 0 {
		t.Errorf("changed/queried = %d/%d without refresh, want 0/0", res.Changed, res.Queried)
	}
}

func TestFailedLookupDoesNotAbortRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "labels.csv")
	stub := newStub()
	stub.fail["john"] = true
	collector := runerrors.NewCollector(nil)

	res := runLabeler(t, stub, Options{OutputPath: out, Collector: collector}, []string{"jane", "john", "jon"})

	john, _ := res.Table.Lookup("john")
	if john.Gender != model.GenderUnknown || john.Source != model.SourceLookupUnavailable {
		t.Errorf("john = %+v, want unknown/lookup_unavailable", john)
	}
	if jane, _ := res.Table.Lookup("jane"); jane.Gender != model.GenderFemale {
		t.Errorf("jane should still be labeled, got %+v", jane)
	}
	if res.Unavailable != 1 {
		t.Errorf("unavailable = %d, want 1", res.Unavailable)
	}
	if collector.Count(runerrors.CategoryLookupUnavailable) != 1 {
		t.Errorf("collector did not record the lookup failure")
	}

	var names []string
	for _, u := range res.Unresolved {
		names = append(names, u.Name)
	}
	if !reflect.DeepEqual(names, []string{"john", "jon"}) {
		t.Errorf("unresolved = %v, want [john jon]", names)
	}
	if collector.Count(runerrors.CategoryUnresolvedName) != 2 {
		t.Errorf("unresolved count = %d, want 2", collector.Count(runerrors.CategoryUnresolvedName))
	}

	// a failed lookup is retried on the next run
	stub.fail["john"] = false
	res = runLabeler(t, stub, Options{OutputPath: out}, []string{"jane", "john", "jon"})
	if john, _ := res.Table.Lookup("john"); john.Gender != model.GenderMale {
		t.Errorf("john should be resolved on retry, got %+v", john)
	}
}

func TestUnresolvedSuggestions(t *testing.T) {
	out := filepath.Join(t.TempDir(), "labels.csv")
	res := runLabeler(t, newStub(), Options{OutputPath: out}, []string{"jane", "john", "jon"})

	if len(res.Unresolved) != 1 || res.Unresolved[0].Name != "jon" {
		t.Fatalf("unresolved = %+v, want jon", res.Unresolved)
	}
	if !reflect.DeepEqual(res.Unresolved[0].Suggestions, []string{"john"}) {
		t.Errorf("suggestions = %v, want [john]", res.Unresolved[0].Suggestions)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	l, err := New(newStub(), Options{OutputPath: filepath.Join(t.TempDir(), "labels.csv")}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Run(ctx, []string{"jane"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestNewRequiresInferrerAndOutput(t *testing.T) {
	if _, err := New(nil, Options{OutputPath: "x.csv"}, nil); err == nil {
		t.Errorf("expected error for nil inferrer")
	}
	if _, err := New(newStub(), Options{}, nil); err == nil {
		t.Errorf("expected error for empty output path")
	}
}
