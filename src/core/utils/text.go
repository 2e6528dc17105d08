package utils

import (
	"strings"
	"unicode"
)

// CleanForSpeech strips markup the narration model tends to emit so the
// synthesizer does not read it aloud: markdown emphasis, header markers,
// code fences and bracketed stage directions like [rolls d20].
func CleanForSpeech(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inBracket := false
	for _, r := range text {
		switch {
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
			// drop stage direction content
		case r == '*' || r == '#' || r == '`' || r == '_':
			// markdown markup
		default:
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(collapseSpaces(b.String()))
}

// collapseSpaces squeezes runs of whitespace into single spaces while
// keeping line breaks, which synthesizers treat as pauses.
func collapseSpaces(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := false
	for _, r := range text {
		if r == '\n' {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
