package layout

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Wrap breaks text into lines no wider than maxWidth pixels when drawn
// with face.
//
// Line breaks in text count as spaces. Words are appended greedily, each
// candidate line measured as a whole. A word wider than maxWidth on its own
// gets a line to itself; words are never split or dropped.
func Wrap(text string, face font.Face, maxWidth int) []string {
	limit := fixed.I(maxWidth)

	var lines []string
	var line string
	for _, word := range strings.Fields(text) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if font.MeasureString(face, candidate) <= limit {
			line = candidate
			continue
		}
		if line != "" {
			lines = append(lines, line)
			line = word
			continue
		}
		lines = append(lines, word)
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
