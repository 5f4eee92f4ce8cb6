package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/liststat/internal/model"
)

// Step is one stage of an archive run. Steps run in sequence on the same
// Run, each reading what earlier steps stored on it.
type Step interface {
	// Do executes the step. A returned error ends the run.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order and stops at the first failure, so a
// run either completes every step or produces nothing.
type Pipeline struct {
	steps     []Step
	logger    *slog.Logger
	resources []io.Closer
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithResource registers a resource released by Close, typically the
// fetcher whose connection pool the steps share.
func WithResource(c io.Closer) Option {
	return func(p *Pipeline) {
		p.resources = append(p.resources, c)
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
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
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence on run. Cancellation is checked
// before each step. The first error is recorded on run and returned.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	defer func() {
		run.FinishedAt = time.Now()
	}()

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"list", run.ListName,
				"reason", err,
			)
			run.Fail(err)
			return err
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"list", run.ListName,
		)

		if err := step.Do(ctx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"list", run.ListName,
				"error", err,
			)
			run.Fail(err)
			return err
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"list", run.ListName,
		)
		run.PerformedSteps = append(run.PerformedSteps, step.Name())
	}

	return nil
}

// Close releases the resources registered with WithResource.
func (p *Pipeline) Close() error {
	var errs []error
	for _, r := range p.resources {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.resources = nil
	return errors.Join(errs...)
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
