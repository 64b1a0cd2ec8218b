package processors

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"

	"github.com/wudi/accesspdf/analyzer"
	"github.com/wudi/accesspdf/plan"
)

const (
	minDetectChars = 20
	maxDetectChars = 5000
	maxTitleRunes  = 200
)

// regional picks the customary region for bare language codes.
var regional = map[string]string{
	"en": "en-US",
	"fr": "fr-FR",
	"de": "de-DE",
	"es": "es-ES",
	"it": "it-IT",
	"pt": "pt-BR",
	"nl": "nl-NL",
	"ja": "ja-JP",
	"ko": "ko-KR",
	"zh": "zh-CN",
}

// Metadata plans the document language and title. An existing language or
// title is kept. The language is otherwise detected from the text, falling
// back to DefaultLang; the title is taken from the most prominent text on
// the first page.
type Metadata struct {
	DefaultLang string
}

func (*Metadata) Name() string  { return "metadata" }
func (*Metadata) Priority() int { return PriorityMetadata }

func (m *Metadata) Run(ctx context.Context, res *analyzer.Result, p *plan.Plan) (Result, error) {
	changes := 0
	if res.Lang != "" {
		p.Lang = res.Lang
	} else {
		p.Lang = detectLanguage(res, m.defaultLang())
		changes++
	}
	if res.Title != "" {
		p.Title = res.Title
	} else if t := deriveTitle(res, p); t != "" {
		p.Title = t
		changes++
	} else {
		p.Warn("no text found to derive a document title")
	}
	if p.Title != "" && !p.DisplayDocTitle {
		p.DisplayDocTitle = true
		changes++
	}
	return Result{Changes: changes}, nil
}

func (m *Metadata) defaultLang() string {
	if m.DefaultLang == "" {
		return DefaultConfig().DefaultLang
	}
	tag, err := language.Parse(m.DefaultLang)
	if err != nil {
		return DefaultConfig().DefaultLang
	}
	return tag.String()
}

func detectLanguage(res *analyzer.Result, fallback string) string {
	var b strings.Builder
	for _, r := range res.Runs {
		if b.Len() >= maxDetectChars {
			break
		}
		b.WriteString(r.Text)
		b.WriteByte(' ')
	}
	text := strings.TrimSpace(b.String())
	if utf8.RuneCountInString(text) < minDetectChars {
		return fallback
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return fallback
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return fallback
	}
	if tag, ok := regional[code]; ok {
		return tag
	}
	tag, err := language.Parse(code)
	if err != nil {
		return fallback
	}
	return tag.String()
}

// deriveTitle returns the largest text on the first page that has text,
// preferring the earliest run in reading order on ties.
func deriveTitle(res *analyzer.Result, p *plan.Plan) string {
	order := p.ReadingOrder
	if len(order) == 0 {
		for _, r := range res.Runs {
			order = append(order, r.Index)
		}
	}
	page := -1
	var best *analyzer.TextRun
	for _, idx := range order {
		r := res.Runs[idx]
		text := strings.TrimSpace(r.Text)
		if utf8.RuneCountInString(text) <= 2 {
			continue
		}
		if page == -1 {
			page = r.Page
		}
		if r.Page != page {
			continue
		}
		if best == nil || r.FontSize > best.FontSize {
			best = &res.Runs[idx]
		}
	}
	if best == nil {
		return ""
	}
	title := strings.Join(strings.Fields(best.Text), " ")
	if utf8.RuneCountInString(title) > maxTitleRunes {
		title = string([]rune(title)[:maxTitleRunes])
	}
	return title
}
