// Package analysis runs the evaluation analysis end to end: load, join to
// the label table, derive covariates, compare groups, fit models and write
// the output set.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/qguide-analysis/pkg/cleaner"
	"github.com/David-Botos/qguide-analysis/pkg/dataset"
	"github.com/David-Botos/qguide-analysis/pkg/features"
	"github.com/David-Botos/qguide-analysis/pkg/labeler"
	"github.com/David-Botos/qguide-analysis/pkg/model"
	"github.com/David-Botos/qguide-analysis/pkg/report"
	"github.com/David-Botos/qguide-analysis/pkg/runerrors"
)

// Source loads the raw evaluation table
type Source interface {
	Load(ctx context.Context) (*dataset.Table, error)
}

// CSVSource reads the raw table from a CSV file
type CSVSource struct {
	Path string
}

// Load reads the file; a missing file is a MissingDataError
func (s CSVSource) Load(ctx context.Context) (*dataset.Table, error) {
	table, err := dataset.ReadEvaluationsFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &runerrors.MissingDataError{Source: s.Path, Err: err}
	}
	return table, err
}

// TableSource serves a table that is already loaded
type TableSource struct {
	Table *dataset.Table
}

// Load returns the table
func (s TableSource) Load(ctx context.Context) (*dataset.Table, error) {
	if s.Table == nil {
		return nil, errors.New("no raw table loaded")
	}
	return s.Table, nil
}

// TablePublisher writes the run's tables to a database
type TablePublisher interface {
	Publish(ctx context.Context, runID string, rows []model.AnalysisRow, models []model.ModelResult) (map[string]int64, error)
}

// Uploader copies the written output files elsewhere
type Uploader interface {
	UploadFiles(ctx context.Context, runID, dir string, names []string) ([]string, error)
}

// Options configures a Pipeline
type Options struct {
	RunID        string // generated when empty
	Source       Source
	LabelsPath   string
	IdeologyPath string
	OutputDir    string
	Workers      int

	// Optional sinks, run after the outputs are written
	Publisher TablePublisher
	Uploader  Uploader
}

// Pipeline runs one analysis
type Pipeline struct {
	opts      Options
	logger    *zap.Logger
	collector *runerrors.Collector
	writer    *report.DirWriter
}

// Result is everything one run produced
type Result struct {
	Summary   *report.RunSummary
	Output    *report.Output
	Published map[string]int64
	Uploaded  []string
}

// NewPipeline validates options and creates a pipeline
func NewPipeline(opts Options, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if opts.Source == nil {
		return nil, errors.New("raw source is required")
	}
	if opts.LabelsPath == "" {
		return nil, errors.New("label table path is required")
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	writer, err := report.NewDirWriter(opts.OutputDir, logger)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		opts:      opts,
		logger:    logger.Named("pipeline").With(zap.String("runId", opts.RunID)),
		collector: runerrors.NewCollector(logger),
		writer:    writer,
	}, nil
}

// RunID returns the identifier of this run
func (p *Pipeline) RunID() string {
	return p.opts.RunID
}

// Collector returns the run's error collector
func (p *Pipeline) Collector() *runerrors.Collector {
	return p.collector
}

// Run executes the analysis. Missing inputs abort before anything is
// written; failed models and untestable groups are reported in the outputs.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	p.logger.Info("Starting analysis run")

	raw, err := p.opts.Source.Load(ctx)
	if err != nil {
		p.collector.Add(err, "raw")
		return nil, fmt.Errorf("failed to load raw evaluations: %w", err)
	}

	labels, err := labeler.LoadLabelsFile(p.opts.LabelsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = &runerrors.MissingDataError{Source: p.opts.LabelsPath, Err: err}
		}
		p.collector.Add(err, "labels")
		return nil, fmt.Errorf("failed to load label table: %w", err)
	}

	ideology, err := dataset.ReadIdeologyFile(p.opts.IdeologyPath)
	if err != nil {
		p.collector.Add(err, "ideology")
		return nil, fmt.Errorf("failed to load ideology scores: %w", err)
	}

	c, err := cleaner.NewDataCleaner(labels, p.logger, p.collector)
	if err != nil {
		return nil, err
	}
	cleaned, err := c.Clean(raw.Records)
	if err != nil {
		return nil, err
	}

	rows := features.Build(cleaned.Rows, ideology)
	comparisons := Compare(rows)

	specs := DefaultSpecs(ideology != nil)
	models, err := FitAll(ctx, rows, specs, p.opts.Workers, p.collector, p.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to fit models: %w", err)
	}

	summary := report.NewRunSummary(p.opts.RunID, raw.Source, start, time.Now(), cleaned.Accounting, comparisons, models)
	summary.LooseMatches = cleaned.LooseMatches
	summary.MalformedCells = raw.MalformedCells
	for reason, n := range cleaned.DropReasons {
		summary.DropReasons[reason] = n
	}
	summary.Unresolved = unresolvedNames(cleaned.Drops)
	for category, n := range p.collector.Summary() {
		summary.Errors[category.String()] = n
	}
	for category, records := range p.collector.Samples() {
		for _, r := range records {
			summary.ErrorSamples[category.String()] = append(summary.ErrorSamples[category.String()], r.String())
		}
	}

	output := &report.Output{
		Rows:        rows,
		Drops:       cleaned.Drops,
		Comparisons: comparisons,
		Models:      models,
		Summary:     summary,
	}
	if err := p.writer.Commit(output.Files()); err != nil {
		return nil, fmt.Errorf("failed to write outputs: %w", err)
	}

	result := &Result{Summary: summary, Output: output}

	if p.opts.Publisher != nil {
		result.Published, err = p.opts.Publisher.Publish(ctx, p.opts.RunID, rows, models)
		if err != nil {
			return result, fmt.Errorf("failed to publish tables: %w", err)
		}
	}

	if p.opts.Uploader != nil {
		result.Uploaded, err = p.opts.Uploader.UploadFiles(ctx, p.opts.RunID, p.writer.Dir(), report.FileNames())
		if err != nil {
			return result, fmt.Errorf("failed to upload outputs: %w", err)
		}
	}

	failed := 0
	for _, m := range models {
		if !m.OK() {
			failed++
		}
	}
	p.logger.Info("Analysis run completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("rawRows", cleaned.Accounting.RawRows),
		zap.Int("cleanRows", cleaned.Accounting.CleanRows),
		zap.Int("models", len(models)),
		zap.Int("failedModels", failed),
		zap.Strings("errors", p.collector.Lines()),
		zap.String("outputDir", p.writer.Dir()))

	return result, nil
}

// unresolvedNames lists the distinct first-name keys of rows dropped for an
// unresolved gender; rows without any first name are listed by full name
func unresolvedNames(drops []model.DropRecord) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, d := range drops {
		if d.Category != model.DropUnresolvedGender {
			continue
		}
		name := d.FirstNameKey
		if name == "" {
			name = d.LecturerName
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
