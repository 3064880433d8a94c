package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gobold"
)

func TestLoadFonts_FallsBack(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "broken.ttf")
	require.NoError(t, os.WriteFile(garbage, []byte("not a font"), 0o644))

	tests := []struct {
		name string
		path string
	}{
		{name: "empty path", path: ""},
		{name: "missing file", path: filepath.Join(dir, "missing.ttf")},
		{name: "invalid data", path: garbage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fonts, err := LoadFonts(tt.path)

			assert.ErrorIs(t, err, ErrFontUnavailable)
			require.NotNil(t, fonts)
			assert.True(t, fonts.Fallback())
			assert.Equal(t, "goregular", fonts.Name())
			assert.NotNil(t, fonts.Face(16))
		})
	}
}

func TestLoadFonts_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bold.ttf")
	require.NoError(t, os.WriteFile(path, gobold.TTF, 0o644))

	fonts, err := LoadFonts(path)

	require.NoError(t, err)
	assert.False(t, fonts.Fallback())
	assert.Equal(t, path, fonts.Name())
}

func TestFonts_FaceCached(t *testing.T) {
	fonts := DefaultFonts()

	a := fonts.Face(18)
	b := fonts.Face(18)
	c := fonts.Face(19)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestFonts_FaceScalesWithSize(t *testing.T) {
	fonts := DefaultFonts()

	small := lineHeightOf(fonts.Face(12))
	large := lineHeightOf(fonts.Face(24))

	assert.Greater(t, large, small)
}

func TestFonts_HasGlyph(t *testing.T) {
	fonts := DefaultFonts()

	assert.True(t, fonts.HasGlyph('A'))
	assert.True(t, fonts.HasGlyph('é'))
	assert.False(t, fonts.HasGlyph('\U0001F600'))
}
