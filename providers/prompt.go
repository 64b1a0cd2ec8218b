package providers

import (
	"strings"
	"unicode/utf8"
)

// SystemPrompt is shared by every chat-style provider.
const SystemPrompt = "You are an accessibility expert. Write concise, factual alt text for the " +
	"image provided. The alt text should be suitable for a screen reader. " +
	"Describe what the image shows in 1-3 sentences. Do not start with " +
	"'This image shows' or 'Image of'. Just describe the content directly."

// UserPrompt opens the user turn. Context lines from the request follow it.
const UserPrompt = "Describe this image for accessibility purposes."

// DefaultMaxTokens bounds the length of a draft.
const DefaultMaxTokens = 300

const maxContextRunes = 1000

// PromptParts lists the fixed prompt text. Cache keys hash these, so editing a
// prompt invalidates earlier drafts.
func PromptParts() []string {
	return []string{SystemPrompt, UserPrompt}
}

// UserText renders the user turn for req.
func UserText(req Request) string {
	var b strings.Builder
	b.WriteString(UserPrompt)
	line := func(label, v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		b.WriteString("\n\n")
		b.WriteString(label)
		b.WriteString(`: "`)
		b.WriteString(truncate(v, maxContextRunes))
		b.WriteString(`"`)
	}
	line("The image has a caption", req.Caption)
	line("Surrounding text", req.SurroundingText)
	line("Document title", req.DocumentTitle)
	return b.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// cleanDraft strips whitespace and wrapping quotes some models add.
func cleanDraft(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
