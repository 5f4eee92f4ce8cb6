package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/liststat/internal/config"
	"github.com/nao1215/liststat/internal/model"
)

// Factory builds a fresh pipeline for one list. Each list gets its own
// pipeline so that per-list settings and connection pools never mix.
type Factory func(listName string) (*Pipeline, error)

// BatchProcessor runs the pipelines of several lists concurrently.
// A failing list does not stop the others; its error is kept on its Run.
type BatchProcessor struct {
	factory     Factory
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of lists processed at once.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: config.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch runs every list and returns their runs in input order.
// Lists not started because ctx was cancelled have no run (nil entry).
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, lists []string) ([]*model.Run, error) {
	runs := make([]*model.Run, len(lists))
	err := bp.ProcessBatchWithCallback(ctx, lists, func(run *model.Run, index int) {
		runs[index] = run
	})
	return runs, err
}

// ProcessBatchWithCallback runs every list and calls callback as each run
// finishes, successful or not. The callback is called from worker
// goroutines and must be safe for concurrent use.
//
// The returned error is non-nil only when ctx was cancelled.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	lists []string,
	callback func(run *model.Run, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_lists", len(lists),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, name := range lists {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			bp.logger.Info("processing list",
				"list", name,
				"index", i+1,
				"total", len(lists),
			)

			run := bp.runList(ctx, name)
			callback(run, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_lists", len(lists),
		"elapsed", time.Since(startTime),
	)

	return err
}

// runList builds and executes the pipeline of one list.
func (bp *BatchProcessor) runList(ctx context.Context, name string) *model.Run {
	run := model.NewRun(name)

	p, err := bp.factory(name)
	if err != nil {
		run.Fail(fmt.Errorf("failed to set up pipeline: %w", err))
		run.FinishedAt = time.Now()
		return run
	}
	defer func() {
		if err := p.Close(); err != nil {
			bp.logger.Warn("failed to release pipeline resources", "list", name, "error", err)
		}
	}()

	if err := p.Execute(ctx, run); err != nil {
		bp.logger.Warn("list failed",
			"list", name,
			"error", err,
		)
		return run
	}

	bp.logger.Info("list completed",
		"list", name,
		"months", run.MonthCount(),
		"elapsed", run.Duration(),
	)
	return run
}
