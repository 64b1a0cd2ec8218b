// Package remediate wires the analyzer, the processor pipeline, the alt-text
// sidecar and the writer into the check, fix, batch and generate operations.
package remediate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/compliance"
	"github.com/wudi/accesspdf/compliance/pdfua"
	"github.com/wudi/accesspdf/ir/semantic"
	"github.com/wudi/accesspdf/observability"
	"github.com/wudi/accesspdf/processors"
	"github.com/wudi/accesspdf/writer"
)

// DefaultSuffix is inserted before the extension of derived output paths.
const DefaultSuffix = "_accessible"

// DocumentExt is the extension of documents picked up from directories.
const DocumentExt = ".json"

// Job is one document to fix. An empty Output derives the path from Input.
type Job struct {
	Input  string
	Output string
}

// Engine runs the remediation operations. It is safe for concurrent use as
// long as the configured components are.
type Engine struct {
	analyzer  *analyzer.Analyzer
	pipeline  *processors.Pipeline
	writer    writer.Writer
	validator compliance.Validator
	logger    observability.Logger
	now       func() time.Time
	suffix    string
	workers   int
}

type Option func(*Engine)

func WithAnalyzer(a *analyzer.Analyzer) Option {
	return func(e *Engine) { e.analyzer = a }
}

func WithPipeline(p *processors.Pipeline) Option {
	return func(e *Engine) { e.pipeline = p }
}

func WithWriter(w writer.Writer) Option {
	return func(e *Engine) { e.writer = w }
}

func WithValidator(v compliance.Validator) Option {
	return func(e *Engine) { e.validator = v }
}

func WithLogger(l observability.Logger) Option {
	return func(e *Engine) { e.logger = observability.OrNop(l) }
}

// WithClock sets the time stamped on new sidecars.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithSuffix(s string) Option {
	return func(e *Engine) {
		if s != "" {
			e.suffix = s
		}
	}
}

// WithWorkers bounds the number of documents a batch processes at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		logger:  observability.NopLogger{},
		now:     time.Now,
		suffix:  DefaultSuffix,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.analyzer == nil {
		e.analyzer = analyzer.New(analyzer.WithLogger(e.logger))
	}
	if e.pipeline == nil {
		e.pipeline = processors.NewPipeline(processors.Default(processors.DefaultConfig()), processors.WithLogger(e.logger))
	}
	if e.writer == nil {
		e.writer = (&writer.WriterBuilder{}).WithLogger(e.logger).Build()
	}
	if e.validator == nil {
		e.validator = pdfua.NewValidator()
	}
	return e
}

// OutputPath derives the output path for in: "dir/a.json" becomes
// "dir/a_accessible.json".
func (e *Engine) OutputPath(in string) string {
	ext := filepath.Ext(in)
	return strings.TrimSuffix(in, ext) + e.suffix + ext
}

// Jobs expands paths into jobs. Directories contribute their documents,
// skipping files that already carry the output suffix. When outDir is set
// outputs are placed there under their derived names.
func (e *Engine) Jobs(paths []string, outDir string) ([]Job, error) {
	var inputs []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			inputs = append(inputs, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, ent := range entries {
			name := ent.Name()
			if ent.IsDir() || filepath.Ext(name) != DocumentExt {
				continue
			}
			if strings.HasSuffix(strings.TrimSuffix(name, DocumentExt), e.suffix) {
				continue
			}
			inputs = append(inputs, filepath.Join(p, name))
		}
	}
	sort.Strings(inputs)

	jobs := make([]Job, 0, len(inputs))
	for _, in := range inputs {
		out := e.OutputPath(in)
		if outDir != "" {
			out = filepath.Join(outDir, filepath.Base(out))
		}
		jobs = append(jobs, Job{Input: in, Output: out})
	}
	return jobs, nil
}

func (e *Engine) load(ctx context.Context, path string) (*semantic.Document, *analyzer.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	doc, err := semantic.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	res, err := e.analyzer.Analyze(ctx, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("analyze %s: %w", path, err)
	}
	return doc, res, nil
}

func (e *Engine) validate(ctx context.Context, doc *semantic.Document) (*compliance.Report, error) {
	rep, err := e.validator.Validate(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return rep, nil
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
