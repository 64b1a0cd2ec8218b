package processors

import (
	"context"
	"fmt"
	"time"

	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/observability"
	"github.com/wudi/accesspdf/plan"
)

// Pipeline runs registered processors over a plan.
type Pipeline struct {
	registry *Registry
	logger   observability.Logger
}

type PipelineOption func(*Pipeline)

func WithLogger(l observability.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = observability.OrNop(l) }
}

func NewPipeline(reg *Registry, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{registry: reg, logger: observability.NopLogger{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every processor in order. A failing processor is recorded as
// StatusFailed with one warning, keeps only its checkpointed edits, and does
// not stop later processors. Run returns an error only when ctx is done.
func (pl *Pipeline) Run(ctx context.Context, res *analyzer.Result, p *plan.Plan) ([]Result, error) {
	var results []Result
	for _, proc := range pl.registry.Processors() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		log := pl.logger.With(observability.String(observability.KeyProcessor, proc.Name()))
		start := time.Now()

		draft := p.Begin()
		before := len(draft.Warnings)
		r, err := runSafely(ctx, proc, res, draft)
		r.Processor = proc.Name()
		if err != nil {
			perr := &ProcessorError{Processor: proc.Name(), Err: err}
			kept := p.CommitCheckpoint(draft)
			msg := fmt.Sprintf("%s failed: %v", proc.Name(), err)
			p.Warn(msg)
			r = Result{Processor: proc.Name(), Status: StatusFailed, Warnings: []string{msg}, Err: perr.Error()}
			log.Warn("processor failed",
				observability.Error("error", perr),
				observability.Bool("partial", kept))
			results = append(results, r)
			continue
		}
		r.Status = StatusOK
		r.Warnings = append([]string(nil), draft.Warnings[before:]...)
		p.Commit(draft)
		log.Debug("processor done",
			observability.Int("changes", r.Changes),
			observability.Duration(observability.KeyElapsed, time.Since(start)))
		results = append(results, r)
	}
	return results, nil
}

func runSafely(ctx context.Context, proc Processor, res *analyzer.Result, p *plan.Plan) (r Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return proc.Run(ctx, res, p)
}
