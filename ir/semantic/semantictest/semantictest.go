// Package semantictest provides document builders for tests.
package semantictest

import (
	"github.com/wudi/accesspdf/geo"
	"github.com/wudi/accesspdf/ir/semantic"
)

// Letter is a US Letter media box.
var Letter = geo.Rect(0, 0, 612, 792)

// Run builds a text run whose baseline box starts at (x, y). The width is
// estimated from the text length.
func Run(text string, x, y, size float64) semantic.TextRun {
	w := float64(len([]rune(text))) * size * 0.5
	return semantic.TextRun{
		Text:     text,
		BBox:     geo.Rect(x, y, x+w, y+size),
		FontName: "Helvetica",
		FontSize: size,
	}
}

// RunW is Run with an explicit width.
func RunW(text string, x, y, w, size float64) semantic.TextRun {
	r := Run(text, x, y, size)
	r.BBox.X1 = x + w
	return r
}

// Image builds a placed image with the given payload.
func Image(name string, x, y, w, h float64, data []byte) semantic.Image {
	return semantic.Image{
		ResourceName: name,
		BBox:         geo.Rect(x, y, x+w, y+h),
		Width:        int(w),
		Height:       int(h),
		Data:         data,
	}
}

// HRule and VRule build ruling lines.
func HRule(x0, x1, y float64) geo.Line { return geo.Line{X0: x0, Y0: y, X1: x1, Y1: y} }
func VRule(x, y0, y1 float64) geo.Line { return geo.Line{X0: x, Y0: y0, X1: x, Y1: y1} }

// Doc builds a document from pages, fixing up page indices.
func Doc(name string, pages ...*semantic.Page) *semantic.Document {
	for i, p := range pages {
		p.Index = i
		if p.MediaBox.IsEmpty() {
			p.MediaBox = Letter
		}
	}
	return &semantic.Document{Name: name, Pages: pages}
}

// Page builds a page holding the given runs.
func Page(runs ...semantic.TextRun) *semantic.Page {
	return &semantic.Page{MediaBox: Letter, Runs: runs}
}

// TwoColumnPage lays out left and right paragraphs in two columns. Lines
// are emitted interleaved row by row, as content streams often do.
func TwoColumnPage(left, right []string) *semantic.Page {
	p := &semantic.Page{MediaBox: Letter}
	for i := 0; i < max(len(left), len(right)); i++ {
		y := 700 - float64(i)*14
		if i < len(left) {
			p.Runs = append(p.Runs, RunW(left[i], 72, y, 220, 10))
		}
		if i < len(right) {
			p.Runs = append(p.Runs, RunW(right[i], 320, y, 220, 10))
		}
	}
	return p
}

// Grid lays out a ruled table with the top-left corner at (x, top). Empty
// cells are skipped. Rules are drawn between rows and around the table.
func Grid(p *semantic.Page, x, top, colW, rowH float64, rows [][]string) {
	width := colW * float64(maxCols(rows))
	for i, row := range rows {
		y := top - float64(i+1)*rowH
		for c, cell := range row {
			if cell == "" {
				continue
			}
			p.Runs = append(p.Runs, RunW(cell, x+float64(c)*colW+4, y+4, colW-12, 10))
		}
	}
	for i := 0; i <= len(rows); i++ {
		p.Rules = append(p.Rules, HRule(x, x+width, top-float64(i)*rowH))
	}
}

func maxCols(rows [][]string) int {
	n := 0
	for _, r := range rows {
		n = max(n, len(r))
	}
	return n
}
