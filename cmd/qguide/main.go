// cmd/qguide/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/David-Botos/qguide-analysis/pkg/analysis"
	"github.com/David-Botos/qguide-analysis/pkg/config"
	"github.com/David-Botos/qguide-analysis/pkg/connector"
	"github.com/David-Botos/qguide-analysis/pkg/dataset"
	"github.com/David-Botos/qguide-analysis/pkg/labeler"
	"github.com/David-Botos/qguide-analysis/pkg/logging"
	"github.com/David-Botos/qguide-analysis/pkg/publish"
	"github.com/David-Botos/qguide-analysis/pkg/storage"
)

const usage = "usage: qguide [label|analyze|all]"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	stage := "all"
	if len(os.Args) > 1 {
		stage = os.Args[1]
	}
	if len(os.Args) > 2 || (stage != "label" && stage != "analyze" && stage != "all") {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, stage, logger); err != nil {
		logger.Error("Run failed", zap.String("stage", stage), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, stage string, logger *zap.Logger) error {
	factory := connector.NewConnectorFactory(cfg, logger)

	raw, closeSource, err := loadRaw(ctx, cfg, factory, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	if stage == "label" || stage == "all" {
		if err := runLabeler(ctx, cfg, raw, logger); err != nil {
			return err
		}
	}

	if stage == "analyze" || stage == "all" {
		if err := runAnalysis(ctx, cfg, factory, raw, logger); err != nil {
			return err
		}
	}

	return nil
}

// loadRaw reads the raw table once so both stages see the same rows
func loadRaw(ctx context.Context, cfg *config.Config, factory *connector.ConnectorFactory, logger *zap.Logger) (*dataset.Table, func(), error) {
	if cfg.RawSource == "csv" {
		table, err := analysis.CSVSource{Path: cfg.RawInput}.Load(ctx)
		return table, func() {}, err
	}

	conn, err := factory.CreateSourceConnector(ctx)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := conn.Close(); err != nil {
			logger.Warn("Failed to close source connection", zap.Error(err))
		}
	}

	table, err := dataset.NewSQLSource(conn, cfg.RawTable, logger).Load(ctx)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return table, closeFn, nil
}

func newInferrer(cfg *config.Config, logger *zap.Logger) (labeler.Inferrer, error) {
	var inner labeler.Inferrer
	switch cfg.GenderSource {
	case "dictionary":
		dict, err := labeler.LoadDictionaryFile(cfg.GenderDictionary)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded gender dictionary", zap.String("path", cfg.GenderDictionary), zap.Int("names", dict.Len()))
		inner = dict
	default:
		client, err := labeler.NewGenderizeClient(labeler.GenderizeOptions{
			BaseURL:    cfg.GenderizeURL,
			APIKey:     cfg.GenderizeAPIKey,
			Timeout:    cfg.LookupTimeout,
			Delay:      cfg.LookupDelay,
			MaxRetries: cfg.LookupMaxRetries,
		}, logger)
		if err != nil {
			return nil, err
		}
		inner = client
	}
	return labeler.NewCachedInferrer(inner, cfg.LookupCacheTTL), nil
}

func runLabeler(ctx context.Context, cfg *config.Config, raw *dataset.Table, logger *zap.Logger) error {
	inferrer, err := newInferrer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create gender inferrer: %w", err)
	}

	l, err := labeler.New(inferrer, labeler.Options{
		OutputPath:    cfg.LabelsPath,
		OverridesPath: cfg.OverridesPath,
		Thresholds: labeler.Thresholds{
			Female:   cfg.FemaleThreshold,
			Male:     cfg.MaleThreshold,
			MinCount: cfg.MinCount,
		},
		Refresh: cfg.LabelRefresh,
	}, logger)
	if err != nil {
		return err
	}

	res, err := l.Run(ctx, raw.FirstNames())
	if err != nil {
		return fmt.Errorf("labeling failed: %w", err)
	}

	for _, u := range res.Unresolved {
		logger.Info("Unresolved name",
			zap.String("name", u.Name),
			zap.String("source", string(u.Source)),
			zap.Strings("suggestions", u.Suggestions))
	}
	return nil
}

func runAnalysis(ctx context.Context, cfg *config.Config, factory *connector.ConnectorFactory, raw *dataset.Table, logger *zap.Logger) error {
	opts := analysis.Options{
		Source:       analysis.TableSource{Table: raw},
		LabelsPath:   cfg.LabelsPath,
		IdeologyPath: cfg.IdeologyPath,
		OutputDir:    cfg.OutputDir,
		Workers:      cfg.ModelWorkers,
	}

	if cfg.PublishTarget != "" && cfg.PublishTarget != "none" {
		conn, err := factory.CreatePublishConnector(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		publisher, err := publish.NewPublisher(conn, logger)
		if err != nil {
			return err
		}
		opts.Publisher = publisher
	}

	if cfg.S3 != nil {
		uploader, err := storage.NewS3Uploader(ctx, cfg.S3, logger)
		if err != nil {
			return err
		}
		opts.Uploader = uploader
	}

	p, err := analysis.NewPipeline(opts, logger)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Print(res.Summary.Text())
	return nil
}
