// pkg/labeler/labeler.go
package labeler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/texttheater/golang-levenshtein/levenshtein"
	"go.uber.org/zap"

	"github.com/David-Botos/qguide-analysis/pkg/model"
	"github.com/David-Botos/qguide-analysis/pkg/names"
	"github.com/David-Botos/qguide-analysis/pkg/runerrors"
)

const (
	maxSuggestions     = 3
	maxSuggestDistance = 2
)

// Options configures a Labeler
type Options struct {
	OutputPath    string
	OverridesPath string
	Thresholds    Thresholds
	// Refresh re-queries names that already carry an inferred label in the
	// existing table. Manual rows are never re-queried, so a hand correction
	// must set source to manual (or leave it empty) to survive a refresh.
	Refresh   bool
	Collector *runerrors.Collector
}

// Labeler builds the name -> gender table
type Labeler struct {
	inferrer  Inferrer
	opts      Options
	logger    *zap.Logger
	collector *runerrors.Collector
}

// UnresolvedName is a name left unknown after overrides were merged
type UnresolvedName struct {
	Name        string            `json:"name"`
	Source      model.LabelSource `json:"source"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

// Result describes one labeling run
type Result struct {
	Table       *model.LabelTable
	Names       int
	Queried     int
	Reused      int
	Inferred    int
	NoResult    int
	Unavailable int
	Manual      int
	Overridden  int
	// Changed counts refreshed names whose gender differs from the
	// previous table
	Changed    int
	Unresolved []UnresolvedName
}

// New creates a labeler around an inferrer
func New(inferrer Inferrer, opts Options, logger *zap.Logger) (*Labeler, error) {
	if inferrer == nil {
		return nil, errors.New("inferrer is required")
	}
	if opts.OutputPath == "" {
		return nil, errors.New("label table output path is required")
	}
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	collector := opts.Collector
	if collector == nil {
		collector = runerrors.NewCollector(logger)
	}

	return &Labeler{
		inferrer:  inferrer,
		opts:      opts,
		logger:    logger.Named("labeler"),
		collector: collector,
	}, nil
}

// Run labels the given first names and writes the table to the output path.
// Lookups run one at a time; a failed lookup labels that name unknown and
// the run continues. Manual rows already in the table survive, and the
// override file is merged last.
func (l *Labeler) Run(ctx context.Context, rawNames []string) (*Result, error) {
	keys := names.Distinct(rawNames)
	l.logger.Info("Starting gender labeling",
		zap.Int("names", len(keys)),
		zap.String("output", l.opts.OutputPath))

	overrides, err := LoadOverridesFile(l.opts.OverridesPath)
	if err != nil {
		return nil, err
	}
	for _, name := range overrides.Duplicates {
		l.logger.Warn("Override listed more than once, last row wins", zap.String("name", name))
	}

	previous, err := l.loadPrevious()
	if err != nil {
		return nil, err
	}

	result := &Result{Table: NewTable(), Names: len(keys)}

	for _, label := range previous.Labels() {
		if label.Source == model.SourceManual {
			result.Table.Set(label)
			result.Manual++
		}
	}

	for i, name := range keys {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("labeling cancelled: %w", err)
		}
		if _, manual := result.Table.Lookup(name); manual {
			continue
		}
		if prev, ok := previous.Lookup(name); ok && !l.opts.Refresh && reusable(prev) {
			result.Table.Set(prev)
			result.Reused++
			continue
		}

		label := l.label(ctx, name)
		result.Queried++
		if prev, ok := previous.Lookup(name); ok && label.Source == model.SourceInferred && prev.Gender != label.Gender {
			result.Changed++
			l.logger.Warn("Refreshed label differs from the existing table, set source to manual to keep an edit",
				zap.String("name", name),
				zap.String("previous", string(prev.Gender)),
				zap.String("current", string(label.Gender)))
		}
		switch label.Source {
		case model.SourceInferred:
			result.Inferred++
		case model.SourceNoResult:
			result.NoResult++
		case model.SourceLookupUnavailable:
			result.Unavailable++
		}
		result.Table.Set(label)

		if (i+1)%25 == 0 {
			l.logger.Info("Labeling progress",
				zap.Int("processed", i+1),
				zap.Int("total", len(keys)),
				zap.String("last", name))
		}
	}

	for _, ov := range overrides.All() {
		label, _ := result.Table.Lookup(ov.Name)
		label.Name = ov.Name
		label.Gender = ov.Gender
		label.Source = model.SourceManual
		label.Confidence = 1
		result.Table.Set(label)
		result.Overridden++
	}

	result.Unresolved = unresolved(result.Table, keys)
	for _, u := range result.Unresolved {
		l.collector.Add(&runerrors.UnresolvedNameError{Name: u.Name, Reason: string(u.Source)}, u.Name)
		l.logger.Warn("Unresolved name needs manual review",
			zap.String("name", u.Name),
			zap.String("source", string(u.Source)),
			zap.Strings("suggestions", u.Suggestions))
	}

	if err := WriteLabelsFile(l.opts.OutputPath, result.Table); err != nil {
		return nil, err
	}

	l.logger.Info("Gender labeling complete",
		zap.Int("labels", result.Table.Len()),
		zap.Int("queried", result.Queried),
		zap.Int("reused", result.Reused),
		zap.Int("inferred", result.Inferred),
		zap.Int("noResult", result.NoResult),
		zap.Int("unavailable", result.Unavailable),
		zap.Int("manual", result.Manual),
		zap.Int("overridden", result.Overridden),
		zap.Int("changed", result.Changed),
		zap.Int("unresolved", len(result.Unresolved)))

	return result, nil
}

// label queries the inferrer for one name and never fails
func (l *Labeler) label(ctx context.Context, name string) model.NameGenderLabel {
	inf, err := l.inferrer.Infer(ctx, name)
	if err != nil {
		var unavailable *runerrors.LookupUnavailableError
		if !errors.As(err, &unavailable) {
			err = &runerrors.LookupUnavailableError{Name: name, Attempts: 1, Err: err}
		}
		l.collector.Add(err, name)
		return model.NameGenderLabel{
			Name:   name,
			Gender: model.GenderUnknown,
			Source: model.SourceLookupUnavailable,
		}
	}

	gender, confidence := l.opts.Thresholds.Classify(inf)
	source := model.SourceInferred
	if !inf.Found {
		source = model.SourceNoResult
	}
	return model.NameGenderLabel{
		Name:       name,
		Gender:     gender,
		Source:     source,
		Confidence: confidence,
		Count:      inf.Count,
	}
}

func (l *Labeler) loadPrevious() (*model.LabelTable, error) {
	previous, err := LoadLabelsFile(l.opts.OutputPath)
	if errors.Is(err, fs.ErrNotExist) {
		return NewTable(), nil
	}
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Loaded existing label table", zap.Int("labels", previous.Len()))
	return previous, nil
}

// reusable reports whether a previous automated label can stand without a
// new lookup. Failed lookups are always retried.
func reusable(label model.NameGenderLabel) bool {
	return label.Source == model.SourceInferred || label.Source == model.SourceNoResult
}

func unresolved(table *model.LabelTable, keys []string) []UnresolvedName {
	known := make([]string, 0, table.Len())
	for _, label := range table.Labels() {
		if label.Gender.Known() {
			known = append(known, label.Name)
		}
	}

	var out []UnresolvedName
	for _, name := range keys {
		label, ok := table.Lookup(name)
		if !ok || label.Gender.Known() {
			continue
		}
		out = append(out, UnresolvedName{
			Name:        name,
			Source:      label.Source,
			Suggestions: suggest(name, known),
		})
	}
	return out
}

// suggest returns the closest known names by edit distance
func suggest(name string, known []string) []string {
	type candidate struct {
		name     string
		distance int
	}

	source := []rune(name)
	var candidates []candidate
	for _, k := range known {
		d := levenshtein.DistanceForStrings(source, []rune(k), levenshtein.DefaultOptions)
		if d > 0 && d <= maxSuggestDistance {
			candidates = append(candidates, candidate{name: k, distance: d})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].name < candidates[j].name
	})

	var out []string
	for i := 0; i < len(candidates) && i < maxSuggestions; i++ {
		out = append(out, candidates[i].name)
	}
	return out
}
