package translate

import (
	"context"
	"regexp"
	"strings"

	"github.com/ironsheep/page-compositor/internal/detection"
	"github.com/ironsheep/page-compositor/internal/layout"
)

var (
	thinkBlock = regexp.MustCompile(`(?is)<think>.*?</think>`)

	// A label only counts when followed by a separator; "English is hard"
	// and "enough" are left alone.
	answerLabel = regexp.MustCompile(`(?i)^(text|translation|english|en|output|response)\s*[:\-]\s*`)
)

// CleanOutput turns a raw model answer into renderable text.
//
// Reasoning blocks (<think>...</think>) are removed, then one leading label
// such as "Translation:" or "EN -", then surrounding quotes. The remainder is
// passed through layout.Sanitize without a glyph filter; the font-specific
// filter runs at draw time.
func CleanOutput(raw string) string {
	s := strings.TrimSpace(thinkBlock.ReplaceAllString(raw, ""))
	s = answerLabel.ReplaceAllString(s, "")
	s = strings.Trim(strings.TrimSpace(s), `"'“”‘’`)
	return layout.Sanitize(s, nil)
}

// Cleaned wraps t so every answer passes through CleanOutput.
func Cleaned(t Translator) Translator {
	return cleaned{t}
}

type cleaned struct{ next Translator }

func (c cleaned) Translate(ctx context.Context, index int, region detection.BoundingBox) (string, error) {
	text, err := c.next.Translate(ctx, index, region)
	if err != nil {
		return "", err
	}
	return CleanOutput(text), nil
}
