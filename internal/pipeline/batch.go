package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tagquorum/tagquorum/internal/model"
	"golang.org/x/sync/errgroup"
)

// BatchProcessor handles concurrent processing of multiple task batches.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Concurrency across tasks is safe because every task gets a fresh pipeline
// and with it a fresh consensus processor; nothing mutable is shared.
// Within one task, processing stays strictly sequential.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each task file.
	// We use a factory to ensure each task gets a fresh pipeline
	// instance.
	pipelineFactory func(path string) *Pipeline

	// concurrency is the maximum number of concurrent tasks.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed task results.
	// Access is synchronized via mutex.
	results []*model.TaskResult
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent tasks.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each task file to create a
// fresh pipeline instance, so pipeline state never leaks between tasks.
func NewBatchProcessor(pipelineFactory func(path string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
		results:         make([]*model.TaskResult, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch processes multiple task batch files concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a hand-rolled
// worker pool because it's simpler and handles the concurrency correctly.
// Each task gets its own goroutine, but only 'concurrency' goroutines run
// simultaneously.
//
// Returns all results in input order, even for tasks that failed; a failed
// task's result carries its error. The error return indicates cancellation,
// not individual task failure.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, paths []string) ([]*model.TaskResult, error) {
	bp.logger.Info("starting batch processing",
		"total_tasks", len(paths),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.TaskResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("processing task batch",
				"path", path,
				"index", i+1,
				"total", len(paths),
			)

			result := model.NewTaskResult("")
			result.SourcePath = path

			p := bp.pipelineFactory(path)
			err := p.Execute(ctx, result)

			// Store the result regardless of error; a failed run
			// carries its error message.
			bp.mu.Lock()
			bp.results[i] = result
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("task processing failed",
					"path", path,
					"error", err,
				)
				// Don't fail the errgroup - other tasks should
				// still run. The error is recorded in the result.
				return nil
			}

			bp.logger.Info("task processed",
				"path", path,
				"task_uuid", result.TaskUUID,
				"rows", len(result.Rows),
			)

			return nil
		})
	}

	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch processing complete",
		"total_tasks", len(paths),
		"elapsed", elapsed,
	)

	return bp.results, err
}
