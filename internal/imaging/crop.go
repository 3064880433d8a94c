package imaging

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// ClipRegion intersects a region with the page bounds.
//
// It returns false when nothing of the region lies on the page, including
// regions with non-positive width or height.
func ClipRegion(page, r image.Rectangle) (image.Rectangle, bool) {
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return image.Rectangle{}, false
	}
	clipped := r.Intersect(page)
	if clipped.Empty() {
		return image.Rectangle{}, false
	}
	return clipped, true
}

// CropRegion copies the pixels of a region into a new image whose origin is
// (0, 0).
//
// The region must lie inside the page and have positive area; callers clip
// with ClipRegion first.
func CropRegion(page image.Image, r image.Rectangle) (*image.NRGBA, error) {
	bounds := page.Bounds()
	if r.Min.X < bounds.Min.X || r.Min.Y < bounds.Min.Y || r.Max.X > bounds.Max.X || r.Max.Y > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}
	return imaging.Crop(page, r), nil
}

// BlendMasked writes src onto dst at offset, but only where mask is
// foreground. Pixels outside the mask keep their exact original bytes.
//
// src and mask share the same origin-based coordinate space; offset is the
// position of their (0, 0) on dst. Writes are clipped to dst's bounds.
func BlendMasked(dst draw.Image, offset image.Point, src image.Image, mask *image.Gray) int {
	mb := mask.Bounds()
	sb := src.Bounds()
	db := dst.Bounds()
	written := 0
	for y := mb.Min.Y; y < mb.Max.Y; y++ {
		row := mask.Pix[mask.PixOffset(mb.Min.X, y):]
		for x := mb.Min.X; x < mb.Max.X; x++ {
			if row[x-mb.Min.X] == 0 {
				continue
			}
			p := image.Pt(x, y)
			if !p.In(sb) {
				continue
			}
			q := p.Add(offset)
			if !q.In(db) {
				continue
			}
			dst.Set(q.X, q.Y, src.At(x, y))
			written++
		}
	}
	return written
}

// PasteRegion copies an origin-based crop back onto dst at offset.
func PasteRegion(dst draw.Image, offset image.Point, src image.Image) {
	sb := src.Bounds()
	draw.Draw(dst, image.Rectangle{Min: offset, Max: offset.Add(sb.Size())}, src, sb.Min, draw.Src)
}

// NewRegionCanvas returns a mutable origin-based copy of a page region,
// suitable for drawing with coordinates local to the region.
func NewRegionCanvas(page image.Image, r image.Rectangle) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(canvas, canvas.Bounds(), page, r.Min, draw.Src)
	return canvas
}
