// Package tesseract registers an offline provider that drafts descriptions
// from the text Tesseract recognises in an image. Import it for its side
// effect:
//
//	import _ "github.com/wudi/accesspdf/providers/tesseract"
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/wudi/accesspdf/providers"
)

// Name is the registry name of the provider.
const Name = "tesseract"

// MinConfidence drops words Tesseract is unsure about.
const MinConfidence = 0.5

func init() {
	providers.Register(providers.Info{Name: Name, DefaultModel: "eng", Local: true},
		func(cfg providers.Config) (providers.Provider, error) { return New(cfg.Model), nil })
}

// Provider implements providers.Provider with a gosseract client per call.
// The model string holds Tesseract language codes joined by "+".
type Provider struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

func New(model string) *Provider {
	var langs []string
	for _, l := range strings.Split(model, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return &Provider{languages: langs, clientFactory: gosseract.NewClient}
}

func (p *Provider) Name() string  { return Name }
func (p *Provider) Model() string { return strings.Join(p.languages, "+") }

func (p *Provider) Describe(ctx context.Context, req providers.Request) (providers.Description, error) {
	if err := ctx.Err(); err != nil {
		return providers.Description{}, &providers.ProviderError{Provider: Name, Kind: providers.KindTimeout, Err: err}
	}
	text, err := p.recognize(req.Image)
	if err != nil {
		return providers.Description{}, &providers.ProviderError{Provider: Name, Kind: providers.KindResponse, Err: err}
	}
	if text == "" {
		return providers.Description{}, &providers.ProviderError{Provider: Name, Kind: providers.KindResponse, Err: fmt.Errorf("no text recognised")}
	}
	return providers.Description{Text: Draft(text), Provider: Name, Model: p.Model()}, nil
}

func (p *Provider) recognize(data []byte) (string, error) {
	c := p.clientFactory()
	defer c.Close()
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(p.languages) > 0 {
		if err := c.SetLanguage(p.languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	words := make([]string, 0, len(boxes))
	for _, b := range boxes {
		if b.Confidence/100.0 < MinConfidence {
			continue
		}
		if w := strings.TrimSpace(b.Word); w != "" {
			words = append(words, w)
		}
	}
	return strings.Join(words, " "), nil
}

// Draft turns recognised text into a description a reviewer can refine.
func Draft(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}
	return fmt.Sprintf("Image containing the text: %q", text)
}
