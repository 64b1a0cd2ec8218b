package processors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/ir/semantic"
	"github.com/wudi/accesspdf/plan"
)

type fakeProcessor struct {
	name     string
	priority int
	run      func(p *plan.Plan) (Result, error)
}

func (f *fakeProcessor) Name() string  { return f.name }
func (f *fakeProcessor) Priority() int { return f.priority }
func (f *fakeProcessor) Run(_ context.Context, _ *analyzer.Result, p *plan.Plan) (Result, error) {
	return f.run(p)
}

func analyze(t *testing.T, doc *semantic.Document) *analyzer.Result {
	t.Helper()
	res, err := analyzer.New().Analyze(context.Background(), doc)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return res
}

func TestRegistryOrdersByPriority(t *testing.T) {
	r := NewRegistry()
	for _, p := range []Processor{
		&fakeProcessor{name: "c", priority: 30},
		&fakeProcessor{name: "a", priority: 10},
		&fakeProcessor{name: "b", priority: 20},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Register(&fakeProcessor{name: "a", priority: 5}); err == nil {
		t.Fatalf("expected duplicate name to be rejected")
	}
	var names []string
	for _, p := range r.Processors() {
		names = append(names, p.Name())
	}
	if strings.Join(names, ",") != "a,b,c" {
		t.Fatalf("unexpected order %v", names)
	}
}

func TestDefaultOrder(t *testing.T) {
	var names []string
	for _, p := range Default(Config{}).Processors() {
		names = append(names, p.Name())
	}
	want := "reading-order,tagger,metadata,headings,tables,links,bookmarks"
	if strings.Join(names, ",") != want {
		t.Fatalf("default order %v", names)
	}
}

func TestPipelineIsolatesFailures(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeProcessor{name: "first", priority: 1, run: func(p *plan.Plan) (Result, error) {
		p.Tag(0, "P")
		return Result{Changes: 1}, nil
	}})
	_ = r.Register(&fakeProcessor{name: "partial", priority: 2, run: func(p *plan.Plan) (Result, error) {
		p.Tables = append(p.Tables, plan.Table{Rows: 2, Columns: 2})
		p.Checkpoint()
		p.Tables = append(p.Tables, plan.Table{Rows: 9, Columns: 9})
		return Result{}, errors.New("grid exploded")
	}})
	_ = r.Register(&fakeProcessor{name: "panicky", priority: 3, run: func(p *plan.Plan) (Result, error) {
		p.Tag(0, "H1")
		panic("index out of range")
	}})
	_ = r.Register(&fakeProcessor{name: "last", priority: 4, run: func(p *plan.Plan) (Result, error) {
		p.Warn("last ran")
		return Result{Changes: 1}, nil
	}})

	p := plan.New()
	results, err := NewPipeline(r).Run(context.Background(), &analyzer.Result{}, p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	want := []Status{StatusOK, StatusFailed, StatusFailed, StatusOK}
	for i, r := range results {
		if r.Status != want[i] {
			t.Errorf("%s status = %s, want %s", r.Processor, r.Status, want[i])
		}
	}
	if len(results[1].Warnings) != 1 || !strings.Contains(results[1].Warnings[0], "grid exploded") {
		t.Fatalf("failed processor should carry one warning: %v", results[1].Warnings)
	}
	if !strings.Contains(results[2].Err, "panic") {
		t.Fatalf("panic not reported: %q", results[2].Err)
	}
	if len(p.Tables) != 1 || p.Tables[0].Rows != 2 {
		t.Fatalf("expected only checkpointed table, got %+v", p.Tables)
	}
	if p.Tags[0] != "P" {
		t.Fatalf("panicking processor edits leaked: %v", p.Tags)
	}
	if len(results[3].Warnings) != 1 || results[3].Warnings[0] != "last ran" {
		t.Fatalf("unexpected warnings for last: %v", results[3].Warnings)
	}
}

func TestPipelineHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRegistry()
	_ = r.Register(&fakeProcessor{name: "cancel", priority: 1, run: func(p *plan.Plan) (Result, error) {
		cancel()
		return Result{}, nil
	}})
	_ = r.Register(&fakeProcessor{name: "never", priority: 2, run: func(p *plan.Plan) (Result, error) {
		t.Fatalf("processor after cancellation must not run")
		return Result{}, nil
	}})
	results, err := NewPipeline(r).Run(ctx, &analyzer.Result{}, plan.New())
	if !errors.Is(err, context.Canceled) || len(results) != 1 {
		t.Fatalf("expected cancellation after first processor, got %v %d", err, len(results))
	}
}

func TestProcessorErrorUnwraps(t *testing.T) {
	base := errors.New("boom")
	err := error(&ProcessorError{Processor: "x", Err: base})
	if !errors.Is(err, base) {
		t.Fatalf("ProcessorError should unwrap")
	}
}
