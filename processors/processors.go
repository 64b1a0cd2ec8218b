// Package processors turns an analysis result into a remediation plan. Each
// Processor handles one concern; the Pipeline runs them in priority order
// and isolates their failures.
package processors

import (
	"context"
	"fmt"
	"sort"

	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/plan"
)

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Result is the outcome of one processor run.
type Result struct {
	Processor string
	Status    Status
	Changes   int
	Warnings  []string
	Err       string
}

// Processor edits a plan draft from a read-only analysis result. Processors
// must be deterministic: the same analysis yields the same edits.
type Processor interface {
	Name() string
	Priority() int
	Run(ctx context.Context, res *analyzer.Result, p *plan.Plan) (Result, error)
}

// ProcessorError wraps an error or panic raised by a processor.
type ProcessorError struct {
	Processor string
	Err       error
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor %s: %v", e.Processor, e.Err)
}

func (e *ProcessorError) Unwrap() error { return e.Err }

// Registry holds processors sorted by priority.
type Registry struct {
	procs []Processor
}

func NewRegistry() *Registry { return &Registry{} }

// Register adds a processor. Names must be unique.
func (r *Registry) Register(p Processor) error {
	for _, existing := range r.procs {
		if existing.Name() == p.Name() {
			return fmt.Errorf("processor %q already registered", p.Name())
		}
	}
	r.procs = append(r.procs, p)
	sort.SliceStable(r.procs, func(i, j int) bool { return r.procs[i].Priority() < r.procs[j].Priority() })
	return nil
}

// Processors returns the registered processors in run order.
func (r *Registry) Processors() []Processor {
	return append([]Processor(nil), r.procs...)
}

// Default priorities.
const (
	PriorityReadingOrder = 100
	PriorityTagger       = 200
	PriorityMetadata     = 300
	PriorityHeadings     = 400
	PriorityTables       = 500
	PriorityLinks        = 600
	PriorityBookmarks    = 700
)

// Default returns the standard processor set.
func Default(cfg Config) *Registry {
	cfg = cfg.normalize()
	r := NewRegistry()
	for _, p := range []Processor{
		&ReadingOrder{ColumnGap: cfg.ColumnGap},
		&Tagger{},
		&Metadata{DefaultLang: cfg.DefaultLang},
		&Headings{MaxLevel: cfg.MaxHeadingLevel, MinRatio: cfg.HeadingMinRatio, DropCapMaxRunes: cfg.DropCapMaxRunes},
		&Tables{Tolerance: cfg.TableTolerance, HeaderShortfall: cfg.HeaderShortfall},
		&Links{},
		&Bookmarks{},
	} {
		// Names are distinct.
		_ = r.Register(p)
	}
	return r
}

// Config tunes the default processors.
type Config struct {
	ColumnGap       float64
	DefaultLang     string
	MaxHeadingLevel int
	HeadingMinRatio float64
	DropCapMaxRunes int
	TableTolerance  float64
	HeaderShortfall float64
}

func DefaultConfig() Config {
	return Config{
		ColumnGap:       4,
		DefaultLang:     "en-US",
		MaxHeadingLevel: 6,
		HeadingMinRatio: 1.0,
		DropCapMaxRunes: 2,
		TableTolerance:  analyzer.DefaultTableTolerance,
		HeaderShortfall: 0.5,
	}
}

func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.ColumnGap <= 0 {
		c.ColumnGap = d.ColumnGap
	}
	if c.DefaultLang == "" {
		c.DefaultLang = d.DefaultLang
	}
	if c.MaxHeadingLevel <= 0 || c.MaxHeadingLevel > 6 {
		c.MaxHeadingLevel = d.MaxHeadingLevel
	}
	if c.HeadingMinRatio < 1 {
		c.HeadingMinRatio = d.HeadingMinRatio
	}
	if c.DropCapMaxRunes <= 0 {
		c.DropCapMaxRunes = d.DropCapMaxRunes
	}
	if c.TableTolerance <= 0 {
		c.TableTolerance = d.TableTolerance
	}
	if c.HeaderShortfall <= 0 || c.HeaderShortfall >= 1 {
		c.HeaderShortfall = d.HeaderShortfall
	}
	return c
}
