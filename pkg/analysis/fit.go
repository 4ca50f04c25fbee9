// pkg/analysis/fit.go
package analysis

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/qguide-analysis/pkg/features"
	"github.com/David-Botos/qguide-analysis/pkg/model"
	"github.com/David-Botos/qguide-analysis/pkg/runerrors"
	"github.com/David-Botos/qguide-analysis/pkg/stats"
)

// ModelJob is one regression waiting to be fitted
type ModelJob struct {
	Index int
	Spec  features.Spec
}

// ModelOutcome is the fitted result of a job
type ModelOutcome struct {
	Index    int
	Result   model.ModelResult
	Duration time.Duration
	WorkerID int
}

// FitWorker fits models from a job channel
type FitWorker struct {
	ID        int
	rows      []model.AnalysisRow
	collector *runerrors.Collector
	logger    *zap.Logger
}

// NewFitWorker creates a worker over a shared, read-only row set
func NewFitWorker(id int, rows []model.AnalysisRow, collector *runerrors.Collector, logger *zap.Logger) *FitWorker {
	return &FitWorker{
		ID:        id,
		rows:      rows,
		collector: collector,
		logger:    logger.With(zap.Int("workerID", id)),
	}
}

// Start processes jobs until the channel closes or ctx is cancelled
func (w *FitWorker) Start(ctx context.Context, jobs <-chan ModelJob, results chan<- ModelOutcome) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			outcome := w.process(job)

			select {
			case results <- outcome:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *FitWorker) process(job ModelJob) ModelOutcome {
	start := time.Now()
	outcome := ModelOutcome{
		Index:    job.Index,
		Result:   Fit(w.rows, job.Spec),
		WorkerID: w.ID,
	}
	outcome.Duration = time.Since(start)

	if !outcome.Result.OK() {
		w.collector.Add(&runerrors.ModelFitError{Model: job.Spec.Name, Reason: outcome.Result.Err}, job.Spec.Name)
	} else {
		w.logger.Debug("Fitted model",
			zap.String("model", job.Spec.Name),
			zap.Int("n", outcome.Result.N),
			zap.Duration("duration", outcome.Duration))
	}
	return outcome
}

// Fit estimates one spec. A degenerate design marks the result failed
// instead of returning an error.
func Fit(rows []model.AnalysisRow, spec features.Spec) model.ModelResult {
	result := model.ModelResult{Name: spec.Name, Outcome: spec.Outcome}

	m, err := features.Design(rows, spec)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	result.N = len(m.Y)
	result.K = len(m.Names)

	ols, err := stats.OLS(m.Y, m.X, m.Names)
	if err != nil {
		var fitErr *runerrors.ModelFitError
		if errors.As(err, &fitErr) {
			result.Err = fitErr.Reason
		} else {
			result.Err = err.Error()
		}
		return result
	}

	result.Terms = ols.Terms
	result.RSquared = ols.RSquared
	result.AdjRSquared = ols.AdjRSquared
	result.ResidualStdErr = ols.ResidualStdErr
	return result
}

// FitAll fits every spec in order. With more than one worker the fits run
// in a pool; results keep the order of specs either way and one failed
// model never stops the others.
func FitAll(ctx context.Context, rows []model.AnalysisRow, specs []features.Spec, workers int,
	collector *runerrors.Collector, logger *zap.Logger) ([]model.ModelResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if collector == nil {
		collector = runerrors.NewCollector(logger)
	}

	if workers <= 1 {
		w := NewFitWorker(1, rows, collector, logger)
		out := make([]model.ModelResult, len(specs))
		for i, spec := range specs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i] = w.process(ModelJob{Index: i, Spec: spec}).Result
		}
		return out, nil
	}
	workers = calculateOptimalWorkerCount(workers, len(specs))

	jobs := make(chan ModelJob)
	results := make(chan ModelOutcome, len(specs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		w := NewFitWorker(i+1, rows, collector, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Start(ctx, jobs, results)
		}()
	}

	go func() {
		defer close(jobs)
		for i, spec := range specs {
			select {
			case jobs <- ModelJob{Index: i, Spec: spec}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]model.ModelResult, len(specs))
	received := 0
	for r := range results {
		out[r.Index] = r.Result
		received++
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if received != len(specs) {
		return nil, errors.New("model fitting stopped before every model finished")
	}
	return out, nil
}

// calculateOptimalWorkerCount caps the pool at the CPU and job counts
func calculateOptimalWorkerCount(requested, jobs int) int {
	n := requested
	if cpus := runtime.NumCPU(); cpus < n {
		n = cpus
	}
	if jobs < n {
		n = jobs
	}
	if n < 1 {
		n = 1
	}
	return n
}
