// Package writer applies a remediation plan and the reviewed alt text to a
// document, producing a new tagged document. The input is never modified.
package writer

import (
	"context"
	"time"

	"github.com/wudi/accesspdf/alttext"
	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/ir/semantic"
	"github.com/wudi/accesspdf/observability"
	"github.com/wudi/accesspdf/plan"
)

type Config struct {
	// Deterministic leaves the modification date untouched so that equal
	// inputs produce byte-identical output.
	Deterministic bool
}

// Result summarises one write.
type Result struct {
	// TreeBuilt is set when a fresh structure tree replaced the input's.
	TreeBuilt   bool
	Elements    int
	AltInjected int
	Decorative  int
	Pending     int
	Warnings    []string
}

func (r *Result) warn(msg string) { r.Warnings = append(r.Warnings, msg) }

type Writer interface {
	// Write returns the remediated copy of doc.
	Write(ctx context.Context, doc *semantic.Document, res *analyzer.Result, p *plan.Plan, sc *alttext.Sidecar) (*semantic.Document, *Result, error)
	// WriteFile writes the remediated document to out after checking that
	// out does not resolve to in.
	WriteFile(ctx context.Context, in, out string, doc *semantic.Document, res *analyzer.Result, p *plan.Plan, sc *alttext.Sidecar) (*semantic.Document, *Result, error)
}

// Interceptor observes each structure element before it joins the output
// tree.
type Interceptor interface {
	BeforeAppend(ctx context.Context, parent, child *semantic.StructureElement) error
}

type WriterBuilder struct {
	interceptors []Interceptor
	cfg          Config
	now          func() time.Time
	logger       observability.Logger
}

func (b *WriterBuilder) WithInterceptor(i Interceptor) *WriterBuilder {
	b.interceptors = append(b.interceptors, i)
	return b
}

func (b *WriterBuilder) WithConfig(cfg Config) *WriterBuilder {
	b.cfg = cfg
	return b
}

// WithClock overrides the source of the modification date.
func (b *WriterBuilder) WithClock(now func() time.Time) *WriterBuilder {
	b.now = now
	return b
}

func (b *WriterBuilder) WithLogger(l observability.Logger) *WriterBuilder {
	b.logger = l
	return b
}

func (b *WriterBuilder) Build() Writer {
	now := b.now
	if now == nil {
		now = time.Now
	}
	return &impl{
		interceptors: append([]Interceptor(nil), b.interceptors...),
		cfg:          b.cfg,
		now:          now,
		logger:       observability.OrNop(b.logger),
	}
}

// New returns a writer with the default configuration.
func New() Writer { return (&WriterBuilder{}).Build() }
