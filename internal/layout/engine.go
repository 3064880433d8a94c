package layout

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
	"golang.org/x/image/font"

	"github.com/ironsheep/page-compositor/internal/detection"
	"github.com/ironsheep/page-compositor/internal/imaging"
)

var (
	// ErrDegenerateRegion is returned by Fit for regions with non-positive
	// area. Draw treats such regions as a silent no-op.
	ErrDegenerateRegion = errors.New("degenerate region")

	// ErrOverflow marks a layout that did not fit even at the minimum size.
	// The text is still drawn; see Layout.Overflow.
	ErrOverflow = errors.New("text overflows region at minimum size")
)

// Config is the immutable layout configuration shared by all regions of a
// run.
type Config struct {
	FontPath string

	StartSize int
	MinSize   int
	SizeStep  int

	PaddingXPct float64
	PaddingYPct float64
	PaddingXMin int
	PaddingYMin int

	LineSpacing float64

	StrokeWidth int
	StrokeColor color.NRGBA
	FillColor   color.NRGBA
}

// DefaultConfig returns the settings tuned for manga speech bubbles.
func DefaultConfig() Config {
	return Config{
		StartSize:   20,
		MinSize:     14,
		SizeStep:    1,
		PaddingXPct: 0.15,
		PaddingYPct: 0.02,
		PaddingXMin: 8,
		PaddingYMin: 4,
		LineSpacing: 0.9,
		StrokeWidth: 2,
		StrokeColor: color.NRGBA{255, 255, 255, 255},
		FillColor:   color.NRGBA{0, 0, 0, 255},
	}
}

// Layout is the outcome of fitting text into a region.
type Layout struct {
	// Size is the chosen font size in pixels.
	Size int `json:"size"`

	Lines []string `json:"lines"`

	// LineHeight is ascent plus descent at Size; Pitch is LineHeight scaled
	// by the line spacing and is the distance between line tops.
	LineHeight int     `json:"line_height"`
	Pitch      float64 `json:"pitch"`

	// BlockHeight is Pitch times the number of lines.
	BlockHeight float64 `json:"block_height"`

	// Usable is the padded drawing area in page coordinates. It may be
	// empty.
	Usable image.Rectangle `json:"usable"`

	// Overflow is set when no size fit and the minimum-size wrap was used.
	Overflow bool `json:"overflow"`
}

// Err returns ErrOverflow for an overflowing layout and nil otherwise.
func (l Layout) Err() error {
	if l.Overflow {
		return ErrOverflow
	}
	return nil
}

// Engine fits and draws translated text into cleaned regions.
//
// Draw serializes calls internally; faces are not safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	fonts  *Fonts
	logger *zap.Logger
}

// NewEngine creates an engine for cfg using fonts. A nil fonts selects the
// built-in font and a nil logger discards logs.
func NewEngine(cfg Config, fonts *Fonts, logger *zap.Logger) *Engine {
	if fonts == nil {
		fonts = DefaultFonts()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SizeStep <= 0 {
		cfg.SizeStep = 1
	}
	if cfg.MinSize < 1 {
		cfg.MinSize = 1
	}
	if cfg.StartSize < cfg.MinSize {
		cfg.StartSize = cfg.MinSize
	}
	if cfg.LineSpacing <= 0 {
		cfg.LineSpacing = 1
	}
	return &Engine{cfg: cfg, fonts: fonts, logger: logger}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Fonts returns the engine's font set.
func (e *Engine) Fonts() *Fonts { return e.fonts }

// UsableArea shrinks r by the configured padding on each axis. Padding is
// the larger of the pixel floor and the percentage of the dimension. The
// result never has negative size.
func UsableArea(r image.Rectangle, cfg Config) image.Rectangle {
	w, h := r.Dx(), r.Dy()
	padX := max(cfg.PaddingXMin, int(cfg.PaddingXPct*float64(w)))
	padY := max(cfg.PaddingYMin, int(cfg.PaddingYPct*float64(h)))
	uw := max(0, w-2*padX)
	uh := max(0, h-2*padY)
	at := image.Pt(r.Min.X+padX, r.Min.Y+padY)
	return image.Rectangle{Min: at, Max: at.Add(image.Pt(uw, uh))}
}

// Fit chooses the largest font size from start down to min whose wrapped
// block fits the usable height, falling back to the minimum-size wrap. The
// minimum is always tried, even when the step does not land on it.
//
// text is used as given; Draw sanitizes before calling Fit. The result
// depends only on text, region, the configuration and the font.
func (e *Engine) Fit(text string, region detection.BoundingBox) (Layout, error) {
	if !region.Valid() {
		return Layout{}, ErrDegenerateRegion
	}
	usable := UsableArea(region.Rect(), e.cfg)

	last := 0
	for size := e.cfg.StartSize; size >= e.cfg.MinSize; size -= e.cfg.SizeStep {
		l := e.layoutAt(text, size, usable)
		if l.BlockHeight <= float64(usable.Dy()) {
			return l, nil
		}
		last = size
	}
	l := e.layoutAt(text, e.cfg.MinSize, usable)
	// A step that skips past the minimum still gets to try it.
	if last != e.cfg.MinSize && l.BlockHeight <= float64(usable.Dy()) {
		return l, nil
	}
	l.Overflow = true
	return l, nil
}

func (e *Engine) layoutAt(text string, size int, usable image.Rectangle) Layout {
	face := e.fonts.Face(size)
	lines := Wrap(text, face, usable.Dx())
	lineHeight := lineHeightOf(face)
	pitch := float64(lineHeight) * e.cfg.LineSpacing
	return Layout{
		Size:        size,
		Lines:       lines,
		LineHeight:  lineHeight,
		Pitch:       pitch,
		BlockHeight: pitch * float64(len(lines)),
		Usable:      usable,
	}
}

func lineHeightOf(face font.Face) int {
	m := face.Metrics()
	return m.Ascent.Ceil() + m.Descent.Ceil()
}

// Draw sanitizes text, fits it into region and draws it onto page.
//
// Lines are centered vertically as a block in the usable area and each line
// horizontally by its own width. The stroke, if any, is drawn under the
// fill. Nothing outside region is modified.
//
// Degenerate regions, regions off the page and text that sanitizes to
// nothing are no-ops returning an empty Layout and a nil error. An
// overflowing layout is drawn and returned with a nil error; check
// Layout.Overflow.
func (e *Engine) Draw(page draw.Image, text string, region detection.BoundingBox) (Layout, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !region.Valid() {
		return Layout{}, nil
	}
	clip, ok := imaging.ClipRegion(page.Bounds(), region.Rect())
	if !ok {
		return Layout{}, nil
	}
	clean := Sanitize(text, e.fonts.HasGlyph)
	if clean == "" {
		return Layout{}, nil
	}

	l, err := e.Fit(clean, region)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to fit text: %w", err)
	}
	if l.Overflow {
		e.logger.Debug("text overflows region at minimum size",
			zap.Stringer("region", region),
			zap.Int("size", l.Size),
			zap.Int("lines", len(l.Lines)))
	}

	canvas := imaging.NewRegionCanvas(page, clip)
	e.render(canvas, clip.Min, l)
	imaging.PasteRegion(page, clip.Min, canvas)
	return l, nil
}

// render draws l onto canvas, whose origin sits at page position origin.
func (e *Engine) render(canvas *image.RGBA, origin image.Point, l Layout) {
	face := e.fonts.Face(l.Size)
	ascent := float64(face.Metrics().Ascent.Ceil())

	dc := gg.NewContextForRGBA(canvas)
	dc.SetFontFace(face)

	ux := float64(l.Usable.Min.X - origin.X)
	uy := float64(l.Usable.Min.Y - origin.Y)
	top := uy + (float64(l.Usable.Dy())-l.BlockHeight)/2

	sw := e.cfg.StrokeWidth
	for i, line := range l.Lines {
		width := float64(font.MeasureString(face, line)) / 64
		x := ux + (float64(l.Usable.Dx())-width)/2
		y := top + float64(i)*l.Pitch + ascent

		if sw > 0 {
			dc.SetColor(e.cfg.StrokeColor)
			for dy := -sw; dy <= sw; dy++ {
				for dx := -sw; dx <= sw; dx++ {
					if (dx == 0 && dy == 0) || dx*dx+dy*dy > sw*sw {
						continue
					}
					dc.DrawString(line, x+float64(dx), y+float64(dy))
				}
			}
		}
		dc.SetColor(e.cfg.FillColor)
		dc.DrawString(line, x, y)
	}
}
