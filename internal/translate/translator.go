package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ironsheep/page-compositor/internal/detection"
)

// ErrInvalidTranslations is returned when a translations document is
// neither a JSON array of strings nor an object of strings.
var ErrInvalidTranslations = errors.New("invalid translations document")

// Translator returns the translated text for one consolidated region.
//
// index is the region's position in consolidation order. An error skips the
// region entirely: it is neither cleaned nor drawn.
type Translator interface {
	Translate(ctx context.Context, index int, region detection.BoundingBox) (string, error)
}

// Func adapts a plain function to Translator.
type Func func(ctx context.Context, index int, region detection.BoundingBox) (string, error)

// Translate calls f.
func (f Func) Translate(ctx context.Context, index int, region detection.BoundingBox) (string, error) {
	return f(ctx, index, region)
}

// Static serves translations known ahead of time.
//
// Entries are looked up by region key ("x1,y1,x2,y2") first and by index
// second. A region with neither translates to the empty string.
type Static struct {
	byIndex []string
	byKey   map[string]string
}

// NewStatic builds a Static from an index-ordered list.
func NewStatic(texts ...string) *Static {
	return &Static{byIndex: texts, byKey: map[string]string{}}
}

// NewStaticMap builds a Static keyed by region ("x1,y1,x2,y2").
func NewStaticMap(byKey map[string]string) *Static {
	s := &Static{byKey: make(map[string]string, len(byKey))}
	for k, v := range byKey {
		s.byKey[normalizeKey(k)] = v
	}
	return s
}

// ParseStatic decodes a translations document. Both of these are accepted:
//
//	["first region", "second region"]
//	{"0,0,120,40": "first region", "10,200,90,260": "second region"}
func ParseStatic(data []byte) (*Static, error) {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return NewStatic(list...), nil
	}
	var byKey map[string]string
	if err := json.Unmarshal(data, &byKey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTranslations, err)
	}
	return NewStaticMap(byKey), nil
}

// LoadStatic reads a translations document from path.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read translations: %w", err)
	}
	s, err := ParseStatic(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return s, nil
}

// Translate implements Translator. It never fails.
func (s *Static) Translate(_ context.Context, index int, region detection.BoundingBox) (string, error) {
	if text, ok := s.byKey[region.Key()]; ok {
		return text, nil
	}
	if index >= 0 && index < len(s.byIndex) {
		return s.byIndex[index], nil
	}
	return "", nil
}

// Len is the number of entries.
func (s *Static) Len() int { return len(s.byIndex) + len(s.byKey) }

// normalizeKey drops whitespace so "0, 0, 10, 10" matches "0,0,10,10".
func normalizeKey(k string) string {
	return strings.Join(strings.Fields(k), "")
}
