package layout

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/page-compositor/internal/detection"
)

const sample = "The quick brown fox jumps over the lazy dog while the translator keeps typing"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(DefaultConfig(), DefaultFonts(), nil)
}

func solidPage(w, h int, c color.RGBA) *image.RGBA {
	page := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			page.SetRGBA(x, y, c)
		}
	}
	return page
}

func countColor(page *image.RGBA, r image.Rectangle, c color.RGBA) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if page.RGBAAt(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestUsableArea(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name string
		r    image.Rectangle
		want image.Rectangle
	}{
		// 15% of 100 beats the 8px floor; 2% of 50 loses to the 4px floor.
		{name: "percent x floor y", r: image.Rect(0, 0, 100, 50), want: image.Rect(15, 4, 85, 46)},
		{name: "floors", r: image.Rect(10, 10, 40, 30), want: image.Rect(18, 14, 32, 26)},
		{name: "large", r: image.Rect(0, 0, 400, 400), want: image.Rect(60, 8, 340, 392)},
		{name: "clamped to zero", r: image.Rect(0, 0, 10, 6), want: image.Rect(8, 4, 8, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UsableArea(tt.r, cfg)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got.Dx(), 0)
			assert.GreaterOrEqual(t, got.Dy(), 0)
		})
	}
}

func TestFit_StartSizeWhenRoomy(t *testing.T) {
	e := newTestEngine(t)

	l, err := e.Fit("Hello world", detection.Box(0, 0, 400, 300))

	require.NoError(t, err)
	assert.Equal(t, 20, l.Size)
	assert.False(t, l.Overflow)
	assert.Equal(t, []string{"Hello world"}, l.Lines)
	assert.NoError(t, l.Err())
}

func TestFit_OverflowRendersAtMinimum(t *testing.T) {
	e := newTestEngine(t)
	region := detection.Box(0, 0, 80, 30)

	l, err := e.Fit(sample, region)

	require.NoError(t, err)
	assert.True(t, l.Overflow)
	assert.ErrorIs(t, l.Err(), ErrOverflow)
	assert.Equal(t, 14, l.Size)
	assert.NotEmpty(t, l.Lines)
	assert.Equal(t, Wrap(sample, e.Fonts().Face(14), l.Usable.Dx()), l.Lines)
}

func TestFit_ZeroUsableAreaStillLaysOut(t *testing.T) {
	e := newTestEngine(t)

	l, err := e.Fit("tiny bubble", detection.Box(0, 0, 12, 6))

	require.NoError(t, err)
	assert.True(t, l.Overflow)
	assert.Equal(t, []string{"tiny", "bubble"}, l.Lines)
}

func TestFit_PicksLargestFittingSize(t *testing.T) {
	e := newTestEngine(t)
	cfg := e.Config()

	for _, height := range []int{40, 60, 80, 100, 140, 200} {
		region := detection.Box(0, 0, 160, height)
		l, err := e.Fit(sample, region)
		require.NoError(t, err)

		usableH := float64(UsableArea(region.Rect(), cfg).Dy())
		if l.Overflow {
			for s := cfg.StartSize; s >= cfg.MinSize; s-- {
				assert.Greater(t, e.layoutAt(sample, s, l.Usable).BlockHeight, usableH, "height %d size %d", height, s)
			}
			continue
		}
		assert.LessOrEqual(t, l.BlockHeight, usableH, "height %d", height)
		for s := l.Size + 1; s <= cfg.StartSize; s++ {
			assert.Greater(t, e.layoutAt(sample, s, l.Usable).BlockHeight, usableH,
				"height %d: larger size %d would also fit", height, s)
		}
	}
}

func TestFit_BlockHeight(t *testing.T) {
	e := newTestEngine(t)
	l, err := e.Fit(sample, detection.Box(0, 0, 200, 200))
	require.NoError(t, err)

	m := e.Fonts().Face(l.Size).Metrics()
	wantLine := m.Ascent.Ceil() + m.Descent.Ceil()
	assert.Equal(t, wantLine, l.LineHeight)
	assert.InDelta(t, float64(wantLine)*0.9, l.Pitch, 1e-9)
	assert.InDelta(t, l.Pitch*float64(len(l.Lines)), l.BlockHeight, 1e-9)
}

func TestFit_Deterministic(t *testing.T) {
	region := detection.Box(5, 5, 150, 90)
	first, err := newTestEngine(t).Fit(sample, region)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := newTestEngine(t).Fit(sample, region)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestFit_StepLargerThanRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SizeStep = 4 // 20, 16; never lands on 14
	e := NewEngine(cfg, nil, nil)

	l, err := e.Fit(sample, detection.Box(0, 0, 80, 30))

	require.NoError(t, err)
	assert.True(t, l.Overflow)
	assert.Equal(t, 14, l.Size)
}

func TestFit_StepSkippingMinimumStillTriesIt(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SizeStep = 4 // 20, 16, then 14 as the floor
	e := NewEngine(cfg, nil, nil)
	region := detection.Box(0, 0, 200, 24)
	usable := UsableArea(region.Rect(), e.Config())
	require.Equal(t, 16, usable.Dy())
	require.Greater(t, e.layoutAt("Hi", 16, usable).BlockHeight, float64(usable.Dy()), "16px must not fit")
	require.LessOrEqual(t, e.layoutAt("Hi", 14, usable).BlockHeight, float64(usable.Dy()), "14px must fit")

	l, err := e.Fit("Hi", region)

	require.NoError(t, err)
	assert.Equal(t, 14, l.Size)
	assert.False(t, l.Overflow)
	assert.NoError(t, l.Err())
}

func TestFit_Degenerate(t *testing.T) {
	_, err := newTestEngine(t).Fit("text", detection.Box(10, 10, 10, 20))
	assert.ErrorIs(t, err, ErrDegenerateRegion)
}

func TestWrap_Law(t *testing.T) {
	face := DefaultFonts().Face(16)
	texts := []string{
		sample,
		"one\ntwo\r\nthree   four",
		"supercalifragilisticexpialidocious is long",
		"",
		"a b c d e f g h i j k l m n o p",
	}
	for _, text := range texts {
		for _, width := range []int{0, 10, 40, 120, 1000} {
			lines := Wrap(text, face, width)

			words := []string{}
			for _, line := range lines {
				words = append(words, strings.Fields(line)...)
				if len(strings.Fields(line)) > 1 {
					assert.LessOrEqual(t, font.MeasureString(face, line), fixed.I(width),
						"line %q exceeds width %d", line, width)
				}
			}
			assert.Equal(t, strings.Fields(text), words, "text %q width %d", text, width)
		}
	}
}

func TestWrap_OverlongWordOnItsOwnLine(t *testing.T) {
	face := DefaultFonts().Face(16)
	lines := Wrap("go supercalifragilisticexpialidocious go", face, 60)

	assert.Equal(t, []string{"go", "supercalifragilisticexpialidocious", "go"}, lines)
}

func TestDraw_WritesOnlyInsideRegion(t *testing.T) {
	e := newTestEngine(t)
	white := color.RGBA{255, 255, 255, 255}
	page := solidPage(240, 160, white)
	region := detection.Box(30, 20, 210, 140)

	l, err := e.Draw(page, "HELLO THERE", region)

	require.NoError(t, err)
	assert.Equal(t, 20, l.Size)
	inside := region.Rect()
	assert.Less(t, countColor(page, inside, white), inside.Dx()*inside.Dy(), "nothing drawn")
	for y := 0; y < 160; y++ {
		for x := 0; x < 240; x++ {
			if image.Pt(x, y).In(inside) {
				continue
			}
			require.Equal(t, white, page.RGBAAt(x, y), "pixel (%d,%d) outside region changed", x, y)
		}
	}
}

func TestDraw_OverflowStillRenders(t *testing.T) {
	e := newTestEngine(t)
	white := color.RGBA{255, 255, 255, 255}
	page := solidPage(200, 100, white)
	region := detection.Box(50, 30, 130, 60)

	l, err := e.Draw(page, sample, region)

	require.NoError(t, err)
	assert.True(t, l.Overflow)
	inside := region.Rect()
	assert.Less(t, countColor(page, inside, white), inside.Dx()*inside.Dy(), "overflowing text not drawn")
	assert.Equal(t, 200*100-region.Width()*region.Height(),
		countColor(page, page.Bounds(), white)-countColor(page, region.Rect(), white))
}

func TestDraw_StrokeOutlinesText(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg, nil, nil)
	black := color.RGBA{0, 0, 0, 255}
	page := solidPage(200, 100, black)

	_, err := e.Draw(page, "Outline", detection.Box(10, 10, 190, 90))
	require.NoError(t, err)
	assert.Positive(t, countColor(page, page.Bounds(), color.RGBA{255, 255, 255, 255}))

	cfg.StrokeWidth = 0
	plain := solidPage(200, 100, black)
	_, err = NewEngine(cfg, nil, nil).Draw(plain, "Outline", detection.Box(10, 10, 190, 90))
	require.NoError(t, err)
	assert.Equal(t, 200*100, countColor(plain, plain.Bounds(), black), "black text on black page without stroke should be invisible")
}

func TestDraw_NoOps(t *testing.T) {
	white := color.RGBA{255, 255, 255, 255}
	tests := []struct {
		name   string
		text   string
		region detection.BoundingBox
	}{
		{name: "empty text", text: "", region: detection.Box(0, 0, 50, 50)},
		{name: "only unsupported runes", text: "\U0001F600\u0007", region: detection.Box(0, 0, 50, 50)},
		{name: "degenerate", text: "hi", region: detection.Box(10, 10, 5, 20)},
		{name: "off page", text: "hi", region: detection.Box(100, 100, 150, 150)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := solidPage(60, 60, white)
			l, err := newTestEngine(t).Draw(page, tt.text, tt.region)
			assert.NoError(t, err)
			assert.Empty(t, l.Lines)
			assert.Equal(t, 60*60, countColor(page, page.Bounds(), white))
		})
	}
}

func TestDraw_RegionPartlyOffPage(t *testing.T) {
	white := color.RGBA{255, 255, 255, 255}
	page := solidPage(100, 60, white)

	l, err := newTestEngine(t).Draw(page, "edge", detection.Box(40, 10, 160, 50))

	require.NoError(t, err)
	assert.NotEmpty(t, l.Lines)
	assert.Equal(t, image.Rect(58, 14, 142, 46), l.Usable)
}
