package analyzer

import (
	"math"

	"github.com/wudi/accesspdf/ir/semantic"
)

// WCAG 2.1 AA thresholds.
const (
	ContrastNormal = 4.5
	ContrastLarge  = 3.0
)

var white = semantic.Color{R: 255, G: 255, B: 255}

func linearize(c uint8) float64 {
	s := float64(c) / 255
	if s <= 0.03928 {
		return s / 12.92
	}
	return math.Pow((s+0.055)/1.055, 2.4)
}

// Luminance returns the WCAG relative luminance of c.
func Luminance(c semantic.Color) float64 {
	return 0.2126*linearize(c.R) + 0.7152*linearize(c.G) + 0.0722*linearize(c.B)
}

// ContrastRatio returns the WCAG contrast ratio between two colours, 1..21.
func ContrastRatio(fg, bg semantic.Color) float64 {
	l1, l2 := Luminance(fg), Luminance(bg)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}

// IsLargeText applies the WCAG large-text rule: 18pt, or 14pt bold.
func IsLargeText(size float64, bold bool) bool {
	return size >= 18 || (bold && size >= 14)
}

// RequiredContrast returns the AA threshold for text of the given size.
func RequiredContrast(size float64, bold bool) float64 {
	if IsLargeText(size, bold) {
		return ContrastLarge
	}
	return ContrastNormal
}

func checkContrast(doc *semantic.Document, runs []TextRun) []ContrastIssue {
	var issues []ContrastIssue
	for _, r := range runs {
		src := doc.Pages[r.Ref.Page].Runs[r.Ref.Index]
		if src.Color == nil {
			continue
		}
		bg := white
		if src.Background != nil {
			bg = *src.Background
		}
		ratio := ContrastRatio(*src.Color, bg)
		required := RequiredContrast(r.FontSize, r.Bold)
		if ratio < required {
			issues = append(issues, ContrastIssue{
				Run:        r.Index,
				Page:       r.Page,
				Foreground: *src.Color,
				Background: bg,
				Ratio:      math.Round(ratio*100) / 100,
				Required:   required,
			})
		}
	}
	return issues
}
