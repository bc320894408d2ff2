package pipeline

import (
	"context"
	"log/slog"

	"github.com/tagquorum/tagquorum/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the accumulated
// result from previous steps.
//
// Design decision: We use an interface rather than function types because
// it allows steps to carry configuration state and provides a Name() method
// for logging and debugging.
type Step interface {
	// Do executes the pipeline step.
	// It receives the context for cancellation, and the result to modify.
	// Returns an error if the step fails critically; non-critical errors
	// should be recorded in the result and return nil.
	Do(ctx context.Context, result *model.TaskResult) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
// This follows the functional options pattern for clean API design.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution even
// when a step fails. Failed steps are logged and their errors recorded in
// the result, but subsequent steps still execute.
//
// The default is to stop on error: a batch that failed to load or that
// violated a consistency invariant must not be persisted or reported as if
// it produced trustworthy consensus.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:           make([]Step, 0),
		continueOnError: false,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
// It respects context cancellation and logs each step's execution.
//
// Design decision: We check context.Done() before each step rather than
// during, because steps are short and synchronous; checking between steps
// keeps cancellation points at clean boundaries.
//
// Returns the first error encountered if continueOnError is false, or nil
// if all steps complete (errors are recorded in the result).
func (p *Pipeline) Execute(ctx context.Context, result *model.TaskResult) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"task_uuid", result.TaskUUID,
		)

		if err := step.Do(ctx, result); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"task_uuid", result.TaskUUID,
				"error", err,
			)

			result.Err = err
			result.ErrorMessage = err.Error()

			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"task_uuid", result.TaskUUID,
			)
		}

		result.PerformedSteps = append(result.PerformedSteps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
