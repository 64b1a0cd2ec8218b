package alttext

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/cache"
	"github.com/wudi/accesspdf/ir/semantic"
	"github.com/wudi/accesspdf/ir/semantic/semantictest"
	"github.com/wudi/accesspdf/providers"
)

type fakeProvider struct {
	mu       sync.Mutex
	calls    []providers.Request
	text     string
	fail     map[string]error
	onCall   func()
	blocking bool
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "v1" }

func (f *fakeProvider) Describe(ctx context.Context, req providers.Request) (providers.Description, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall()
	}
	if f.blocking {
		<-ctx.Done()
		return providers.Description{}, &providers.ProviderError{Provider: "fake", Kind: providers.KindTimeout, Err: ctx.Err()}
	}
	if err := f.fail[req.ImageID]; err != nil {
		return providers.Description{}, err
	}
	return providers.Description{Text: f.text + " " + req.ImageID, Provider: "fake", Model: "v1"}, nil
}

func (f *fakeProvider) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fixture builds a two-image document, its analysis and a reconciled sidecar.
func fixture(t *testing.T) (*semantic.Document, *analyzer.Result, *Sidecar) {
	t.Helper()
	page := semantictest.Page(
		semantictest.Run("Quarterly results", 72, 700, 18),
		semantictest.Run("Revenue grew in every region.", 72, 560, 11),
		semantictest.Run("Figure 1: Revenue by quarter", 72, 380, 9),
	)
	page.Images = []semantic.Image{
		semantictest.Image("Im0", 72, 400, 200, 150, pngBytes(t, color.RGBA{R: 200, A: 255})),
		semantictest.Image("Im1", 400, 100, 50, 50, pngBytes(t, color.RGBA{B: 200, A: 255})),
	}
	doc := semantictest.Doc("results", page)
	doc.Info = &semantic.DocumentInfo{Title: "Results 2026"}
	res, err := analyzer.New().Analyze(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	sc, _ := Reconcile(New("results.json", testNow), res.Images)
	return doc, res, sc
}

func TestGenerateDraftsAndCaches(t *testing.T) {
	doc, res, sc := fixture(t)
	p := &fakeProvider{text: "draft"}
	c := cache.New(cache.NewMemoryStore())

	rep, err := NewGenerator(p, c).Generate(context.Background(), doc, res, sc)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(rep.Generated) != 2 || p.count() != 2 {
		t.Fatalf("expected two generated drafts, got %+v (%d calls)", rep, p.count())
	}
	for _, e := range sc.Images {
		if e.AIDraft != "draft "+e.ID || e.Status != StatusNeedsReview {
			t.Fatalf("unexpected entry after generation %+v", e)
		}
	}

	first := p.calls[0]
	if first.MediaType != "image/png" || first.DocumentTitle != "Results 2026" || first.Caption != "Figure 1: Revenue by quarter" {
		t.Fatalf("unexpected request context %+v", first)
	}

	// A second sidecar for the same images hits the cache.
	_, _, fresh := fixture(t)
	rep, err = NewGenerator(p, c).Generate(context.Background(), doc, res, fresh)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Cached) != 2 || p.count() != 2 {
		t.Fatalf("expected cache hits without provider calls, got %+v (%d calls)", rep, p.count())
	}

	// Entries that already carry a draft are left alone.
	rep, _ = NewGenerator(p, c).Generate(context.Background(), doc, res, fresh)
	if len(rep.Skipped) != 2 || rep.Drafted() != 0 {
		t.Fatalf("drafted entries must be skipped, got %+v", rep)
	}
}

func TestGenerateFailureLeavesEntryForReview(t *testing.T) {
	doc, res, sc := fixture(t)
	failID := sc.Images[0].ID
	boom := &providers.ProviderError{Provider: "fake", Kind: providers.KindUnavailable, Err: errors.New("overloaded")}
	p := &fakeProvider{text: "draft", fail: map[string]error{failID: boom}}
	store := cache.NewMemoryStore()

	rep, err := NewGenerator(p, cache.New(store)).Generate(context.Background(), doc, res, sc)
	if err != nil {
		t.Fatalf("a failing image must not fail the pass: %v", err)
	}
	if len(rep.Failed) != 1 || rep.Failed[0].ID != failID || !errors.Is(rep.Failed[0].Err, boom) {
		t.Fatalf("unexpected failures %+v", rep.Failed)
	}
	e, _ := sc.Entry(failID)
	if e.AIDraft != "" || e.Status != StatusNeedsReview {
		t.Fatalf("failed entry changed: %+v", e)
	}
	if store.Len() != 1 {
		t.Fatalf("only the successful draft should be cached, got %d", store.Len())
	}
}

func TestGenerateTimeout(t *testing.T) {
	doc, res, sc := fixture(t)
	p := &fakeProvider{blocking: true}
	rep, err := NewGenerator(p, nil, WithTimeout(10*time.Millisecond)).Generate(context.Background(), doc, res, sc)
	if err != nil {
		t.Fatalf("timeouts are per image, got %v", err)
	}
	if len(rep.Failed) != 2 || !providers.IsKind(rep.Failed[0].Err, providers.KindTimeout) {
		t.Fatalf("expected two timeouts, got %+v", rep.Failed)
	}
}

func TestGenerateCancellation(t *testing.T) {
	doc, res, sc := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &fakeProvider{text: "draft"}
	p.onCall = func() {
		if p.count() == 2 {
			cancel()
		}
	}

	rep, err := NewGenerator(p, nil).Generate(ctx, doc, res, sc)
	if !errors.Is(err, context.Canceled) || !rep.Canceled {
		t.Fatalf("expected cancellation, got %v %+v", err, rep)
	}
	if len(rep.Generated) != 1 {
		t.Fatalf("the first draft should be committed, got %+v", rep)
	}
	if sc.Images[0].AIDraft == "" || sc.Images[1].AIDraft != "" {
		t.Fatalf("in-flight draft must be dropped: %+v", sc.Images)
	}
}

func TestGenerateEmptyDraftIsReported(t *testing.T) {
	doc, res, sc := fixture(t)
	store := cache.NewMemoryStore()
	rep, err := NewGenerator(providers.Noop{}, cache.New(store)).Generate(context.Background(), doc, res, sc)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Failed) != 2 || store.Len() != 0 {
		t.Fatalf("empty drafts must be reported as failed and not cached, got %+v", rep)
	}
	for _, f := range rep.Failed {
		if !errors.Is(f.Err, errNoDraft) {
			t.Fatalf("unexpected failure %v", f.Err)
		}
	}
	if sc.Images[0].AIDraft != "" || sc.Images[0].Status != StatusNeedsReview {
		t.Fatalf("entry must stay open for review: %+v", sc.Images[0])
	}
}

func TestPromptHashStable(t *testing.T) {
	if PromptHash() != PromptHash() || len(PromptHash()) != 16 {
		t.Fatalf("prompt hash must be stable")
	}
}
