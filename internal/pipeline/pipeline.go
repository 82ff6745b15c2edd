package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/socaudit/internal/model"
)

// Step is one collection stage. Steps run in sequence, each filling its own
// section of the snapshot.
type Step interface {
	// Do executes the step. Non-critical failures should be recorded in the
	// snapshot and nil returned.
	Do(ctx context.Context, snapshot *model.Snapshot) error

	// Name identifies the step in logs and in Snapshot.StepErrors.
	Name() string
}

// Pipeline runs collection steps over a snapshot.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged and recorded in
// Snapshot.StepErrors, but subsequent steps still execute.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
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

// Execute runs the steps in order against snapshot. Every log line carries
// the snapshot's host name.
//
// Cancellation is checked before each step; the step that did not start is
// recorded in StepErrors and ctx.Err() is returned. Without continueOnError
// the first step error is returned.
func (p *Pipeline) Execute(ctx context.Context, snapshot *model.Snapshot) error {
	logger := p.logger.With("host", snapshot.Hostname)
	started := time.Now()

	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			logger.Warn("collection cancelled",
				"step", step.Name(),
				"remaining", len(p.steps)-i,
				"reason", err,
			)
			snapshot.AddStepError(step.Name(), err)
			return err
		}

		if err := p.runStep(ctx, logger, step, snapshot); err != nil && !p.continueOnError {
			return err
		}
	}

	logger.Info("collection steps done",
		"performed", len(snapshot.PerformedSteps),
		"failed", len(snapshot.StepErrors),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return nil
}

// runStep runs one step and files its outcome on the snapshot.
func (p *Pipeline) runStep(ctx context.Context, logger *slog.Logger, step Step, snapshot *model.Snapshot) error {
	name := step.Name()
	logger.Info("executing step", "step", name)

	start := time.Now()
	err := step.Do(ctx, snapshot)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		logger.Error("step failed", "step", name, "elapsed", elapsed, "error", err)
		snapshot.AddStepError(name, err)
		return err
	}

	logger.Debug("step completed", "step", name, "elapsed", elapsed)
	snapshot.PerformedSteps = append(snapshot.PerformedSteps, name)
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
