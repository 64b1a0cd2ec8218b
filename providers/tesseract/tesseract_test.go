package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os/exec"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/accesspdf/providers"
)

func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func TestRegistered(t *testing.T) {
	info, ok := providers.Lookup(Name)
	if !ok || info.NeedsKey() || info.DefaultModel != "eng" {
		t.Fatalf("unexpected registration: %+v %v", info, ok)
	}
}

func TestNewSplitsLanguages(t *testing.T) {
	p := New("eng + deu")
	if p.Model() != "eng+deu" {
		t.Fatalf("model = %q", p.Model())
	}
}

func TestDraft(t *testing.T) {
	if got := Draft("  Quarterly\n  Revenue "); got != `Image containing the text: "Quarterly Revenue"` {
		t.Fatalf("Draft() = %s", got)
	}
	if Draft(" \n") != "" {
		t.Fatalf("blank text must yield no draft")
	}
}

func TestDescribeRecognizesText(t *testing.T) {
	ensureTesseractAvailable(t)

	img := image.NewRGBA(image.Rect(0, 0, 200, 80))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: img, Src: image.Black, Face: basicfont.Face7x13, Dot: fixed.P(10, 50)}
	d.DrawString("Hello PDF")

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	desc, err := New("eng").Describe(context.Background(), providers.Request{Image: buf.Bytes(), MediaType: "image/png"})
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if !strings.Contains(strings.ToLower(desc.Text), "hello") {
		t.Fatalf("unexpected draft %q", desc.Text)
	}
}
