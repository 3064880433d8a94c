package layout

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// ErrFontUnavailable is returned by LoadFonts when the configured font
// cannot be read or parsed. The returned Fonts then uses the built-in
// fallback face.
var ErrFontUnavailable = errors.New("font unavailable")

// Fonts hands out faces of one typeface at the sizes the fitting loop asks
// for. Faces are created on first use and kept.
type Fonts struct {
	mu       sync.Mutex
	font     *truetype.Font
	name     string
	fallback bool
	faces    map[int]font.Face
}

// LoadFonts parses the TrueType font at path.
//
// If path is empty, unreadable or not a valid font, LoadFonts returns the
// built-in Go Regular font together with an error wrapping
// ErrFontUnavailable. The returned *Fonts is never nil, so callers may log
// the error and carry on.
func LoadFonts(path string) (*Fonts, error) {
	if path == "" {
		return fallbackFonts(), fmt.Errorf("%w: no font path configured", ErrFontUnavailable)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fallbackFonts(), fmt.Errorf("%w: %v", ErrFontUnavailable, err)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return fallbackFonts(), fmt.Errorf("%w: failed to parse %s: %v", ErrFontUnavailable, path, err)
	}
	return &Fonts{font: f, name: path, faces: make(map[int]font.Face)}, nil
}

// DefaultFonts returns the built-in fallback font.
func DefaultFonts() *Fonts { return fallbackFonts() }

func fallbackFonts() *Fonts {
	// goregular.TTF is embedded and known to parse.
	f, _ := truetype.Parse(goregular.TTF)
	return &Fonts{font: f, name: "goregular", fallback: true, faces: make(map[int]font.Face)}
}

// Name is the font path, or "goregular" for the fallback.
func (f *Fonts) Name() string { return f.name }

// Fallback reports whether the built-in font is in use.
func (f *Fonts) Fallback() bool { return f.fallback }

// Face returns the face for size (pixels at 72 DPI).
func (f *Fonts) Face(size int) font.Face {
	f.mu.Lock()
	defer f.mu.Unlock()
	if face, ok := f.faces[size]; ok {
		return face
	}
	face := truetype.NewFace(f.font, &truetype.Options{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	f.faces[size] = face
	return face
}

// HasGlyph reports whether the font maps r to a real glyph.
func (f *Fonts) HasGlyph(r rune) bool {
	return f.font.Index(r) != 0
}
