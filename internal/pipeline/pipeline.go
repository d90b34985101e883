package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/crawlgraph/internal/model"
)

// Step is one stage of a crawl pipeline.
type Step interface {
	// Do runs the step. Non-critical problems should be logged and nil
	// returned; a returned error stops the pipeline unless it continues on error.
	Do(ctx context.Context, crawl *model.Crawl) error

	// Name identifies the step in logs and in Crawl.PerformedSteps.
	Name() string
}

// FinalStep is a Step that runs even after the pipeline stopped early.
// It receives a context that is not cancelled with the pipeline's.
type FinalStep interface {
	Step
	Final() bool
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running later steps after one fails.
// The last error is still recorded on the crawl and returned.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

func isFinal(step Step) bool {
	f, ok := step.(FinalStep)
	return ok && f.Final()
}

// Execute runs the steps against crawl. Once the pipeline stops, because of
// cancellation or a failed step, only final steps still run.
func (p *Pipeline) Execute(ctx context.Context, crawl *model.Crawl) error {
	var firstErr error
	stopped := false

	for _, step := range p.steps {
		if !stopped && ctx.Err() != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "seed", crawl.Seed, "reason", ctx.Err())
			crawl.TimedOut = true
			firstErr = ctx.Err()
			stopped = true
		}

		stepCtx := ctx
		if stopped {
			if !isFinal(step) {
				continue
			}
			stepCtx = context.WithoutCancel(ctx)
		}

		p.logger.Info("executing step", "step", step.Name(), "crawl_id", crawl.ID, "seed", crawl.Seed)

		if err := step.Do(stepCtx, crawl); err != nil {
			p.logger.Error("step failed", "step", step.Name(), "crawl_id", crawl.ID, "error", err)
			crawl.Error = err.Error()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				crawl.TimedOut = true
			}
			if firstErr == nil {
				firstErr = err
			}
			if !p.continueOnError {
				stopped = true
			}
		} else {
			p.logger.Debug("step completed", "step", step.Name(), "crawl_id", crawl.ID)
		}

		crawl.PerformedSteps = append(crawl.PerformedSteps, step.Name())
	}

	return firstErr
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
