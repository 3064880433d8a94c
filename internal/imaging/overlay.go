package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DrawRegionOverlay returns a copy of page with each region outlined and
// labeled with its index, for inspecting consolidation results.
//
// Outlines are drawn just inside each region so they never spill onto
// neighboring artwork in the copy. The source page is not modified.
func DrawRegionOverlay(page image.Image, regions []image.Rectangle, outline color.Color, thickness int) *image.RGBA {
	bounds := page.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, page, bounds.Min, draw.Src)

	if thickness < 1 {
		thickness = 1
	}
	labelColor := color.RGBA{255, 255, 255, 255}
	bgColor := color.RGBA{0, 0, 0, 180}

	for i, r := range regions {
		r = r.Intersect(bounds)
		if r.Empty() {
			continue
		}
		t := min(thickness, r.Dx()/2+1, r.Dy()/2+1)
		// Top, bottom, left, right bands.
		for _, band := range []image.Rectangle{
			image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
			image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
			image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
			image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
		} {
			draw.Draw(result, band, image.NewUniform(outline), image.Point{}, draw.Src)
		}
		drawLabel(result, r.Min.X+t+1, r.Min.Y+t+1, strconv.Itoa(i), labelColor, bgColor)
	}
	return result
}

// drawLabel draws text on a filled background box whose top-left text
// origin is (x, y), using the 7x13 bitmap face.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(fg), Face: face}

	box := image.Rect(x-1, y-1, x+d.MeasureString(text).Ceil()+1, y+face.Height)
	draw.Draw(img, box.Intersect(img.Bounds()), image.NewUniform(bg), image.Point{}, draw.Src)

	d.Dot = fixed.P(x, y+face.Ascent)
	d.DrawString(text)
}
