package alttext

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/cache"
	"github.com/wudi/accesspdf/ir/semantic"
	"github.com/wudi/accesspdf/observability"
	"github.com/wudi/accesspdf/providers"
)

// DefaultTimeout bounds one provider call.
const DefaultTimeout = 60 * time.Second

// contextDistance is how far, in points, text may sit from an image and still
// count as its surrounding text.
const contextDistance = 72.0

const maxSurroundingRunes = 500

// errNoDraft marks an empty provider answer. It is never cached and the
// image is reported as failed.
var errNoDraft = errors.New("provider returned no draft")

// Failure records an image whose draft could not be produced.
type Failure struct {
	ID  string
	Err error
}

// GenerateReport summarises a generation pass. Each id appears in exactly
// one list.
type GenerateReport struct {
	Generated []string
	Cached    []string
	Skipped   []string
	Failed    []Failure
	// Canceled is set when the pass stopped before visiting every entry.
	Canceled bool
}

// Drafted counts entries that received a draft in this pass.
func (r GenerateReport) Drafted() int { return len(r.Generated) + len(r.Cached) }

// Generator drafts descriptions for entries awaiting review.
type Generator struct {
	provider    providers.Provider
	cache       *cache.Cache
	timeout     time.Duration
	maxImageDim int
	logger      observability.Logger
}

type GeneratorOption func(*Generator)

func WithLogger(l observability.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = observability.OrNop(l) }
}

// WithTimeout bounds each provider call. Zero keeps DefaultTimeout.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMaxImageDim caps the image size sent to the provider.
func WithMaxImageDim(n int) GeneratorOption {
	return func(g *Generator) { g.maxImageDim = n }
}

// NewGenerator builds a generator. A nil cache uses a private in-memory one.
func NewGenerator(p providers.Provider, c *cache.Cache, opts ...GeneratorOption) *Generator {
	if c == nil {
		c = cache.New(cache.NewMemoryStore())
	}
	g := &Generator{
		provider:    p,
		cache:       c,
		timeout:     DefaultTimeout,
		maxImageDim: providers.DefaultMaxImageDim,
		logger:      observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Provider returns the provider drafts are requested from.
func (g *Generator) Provider() providers.Provider { return g.provider }

// PromptHash is the prompt fingerprint used in cache keys.
func PromptHash() string { return cache.PromptHash(providers.PromptParts()...) }

// Generate drafts a description for every needs_review entry of sc that has
// no draft yet. Drafts are written into sc as they complete. Failed images are
// reported and left for manual review. When ctx is canceled the pass stops at
// the next image boundary, keeps the drafts already committed and returns
// ctx.Err().
func (g *Generator) Generate(ctx context.Context, doc *semantic.Document, res *analyzer.Result, sc *Sidecar) (GenerateReport, error) {
	var rep GenerateReport
	promptHash := PromptHash()
	for i := range sc.Images {
		e := &sc.Images[i]
		if e.Status != StatusNeedsReview || e.AIDraft != "" {
			rep.Skipped = append(rep.Skipped, e.ID)
			continue
		}
		if err := ctx.Err(); err != nil {
			rep.Canceled = true
			return rep, err
		}
		img, ok := findImage(res, e.Hash)
		if !ok {
			rep.Skipped = append(rep.Skipped, e.ID)
			continue
		}
		req, err := g.request(doc, res, img)
		if err != nil {
			rep.Failed = append(rep.Failed, Failure{ID: e.ID, Err: err})
			g.logger.Warn("image preparation failed", observability.String(observability.KeyImage, e.ID), observability.Error("error", err))
			continue
		}

		key := cache.Key{
			ContentHash: e.Hash,
			Provider:    g.provider.Name(),
			Model:       g.provider.Model(),
			PromptHash:  promptHash,
		}
		start := time.Now()
		rec, hit, err := g.cache.GetOrGenerate(ctx, key, func(ctx context.Context) (string, error) {
			callCtx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()
			desc, err := g.provider.Describe(callCtx, req)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(desc.Text) == "" {
				return "", errNoDraft
			}
			return desc.Text, nil
		})
		if ctx.Err() != nil {
			// Uncommitted drafts are dropped on cancellation.
			rep.Canceled = true
			return rep, ctx.Err()
		}
		if err != nil {
			rep.Failed = append(rep.Failed, Failure{ID: e.ID, Err: err})
			g.logger.Warn("description failed",
				observability.String(observability.KeyImage, e.ID),
				observability.String(observability.KeyProvider, key.Provider),
				observability.Error("error", err))
			continue
		}
		e.AIDraft = strings.TrimSpace(rec.Text)
		if hit {
			rep.Cached = append(rep.Cached, e.ID)
		} else {
			rep.Generated = append(rep.Generated, e.ID)
		}
		g.logger.Debug("description drafted",
			observability.String(observability.KeyImage, e.ID),
			observability.Bool("cached", hit),
			observability.Duration(observability.KeyElapsed, time.Since(start)))
	}
	return rep, nil
}

func findImage(res *analyzer.Result, hash string) (analyzer.ImageRef, bool) {
	for _, img := range res.Images {
		if img.Hash == hash {
			return img, true
		}
	}
	return analyzer.ImageRef{}, false
}

func (g *Generator) request(doc *semantic.Document, res *analyzer.Result, img analyzer.ImageRef) (providers.Request, error) {
	if len(img.Placements) == 0 {
		return providers.Request{}, fmt.Errorf("image %s has no placement", img.ID)
	}
	ref := img.Placements[0]
	if ref.Page < 0 || ref.Page >= len(doc.Pages) || ref.Index < 0 || ref.Index >= len(doc.Pages[ref.Page].Images) {
		return providers.Request{}, fmt.Errorf("image %s: placement out of range", img.ID)
	}
	src := doc.Pages[ref.Page].Images[ref.Index]
	data := src.Data
	if src.MediaType() == "" {
		var err error
		if data, err = src.PNG(); err != nil {
			return providers.Request{}, fmt.Errorf("image %s: %w", img.ID, err)
		}
	}
	data, mediaType, err := providers.Prepare(data, g.maxImageDim)
	if err != nil {
		return providers.Request{}, fmt.Errorf("image %s: %w", img.ID, err)
	}
	return providers.Request{
		ImageID:         img.ID,
		Image:           data,
		MediaType:       mediaType,
		Page:            img.Page,
		Caption:         img.Caption,
		SurroundingText: surroundingText(res, img),
		DocumentTitle:   doc.Title(),
	}, nil
}

// surroundingText joins the runs on the image's page that lie within
// contextDistance of it, in document order, excluding the caption.
func surroundingText(res *analyzer.Result, img analyzer.ImageRef) string {
	var parts []string
	n := 0
	for _, r := range res.Runs {
		if r.Page != img.Page || r.Text == img.Caption {
			continue
		}
		if verticalDistance(r, img) > contextDistance {
			continue
		}
		parts = append(parts, strings.TrimSpace(r.Text))
		n += len([]rune(r.Text))
		if n >= maxSurroundingRunes {
			break
		}
	}
	return strings.Join(parts, " ")
}

func verticalDistance(r analyzer.TextRun, img analyzer.ImageRef) float64 {
	switch {
	case r.BBox.Y0 > img.BBox.Y1:
		return r.BBox.Y0 - img.BBox.Y1
	case r.BBox.Y1 < img.BBox.Y0:
		return img.BBox.Y0 - r.BBox.Y1
	}
	return 0
}
