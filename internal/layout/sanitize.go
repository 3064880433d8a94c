package layout

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var punctuation = strings.NewReplacer(
	"…", "...",
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
	"œ", "oe",
	"Œ", "OE",
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// Sanitize prepares translated text for rendering with a font.
//
// Typographic punctuation is replaced with ASCII equivalents, line breaks
// become spaces and the text is NFC-normalized. Control characters and any
// rune hasGlyph rejects are dropped, then runs of whitespace collapse to a
// single space. A nil hasGlyph keeps every printable rune.
func Sanitize(text string, hasGlyph func(rune) bool) string {
	s := norm.NFC.String(punctuation.Replace(text))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.IsControl(r), r == unicode.ReplacementChar:
		case hasGlyph != nil && !hasGlyph(r):
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
