package detection

import (
	"fmt"
	"image"
	"sort"
)

// BoundingBox represents a rectangular text box in pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
//
// A box is valid only when X2 > X1 and Y2 > Y1. Invalid boxes are filtered
// by Consolidate and never propagated to later stages.
type BoundingBox struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge (exclusive)
	Y2 int `json:"y2"` // Bottom edge (exclusive)
}

// Box is a convenience constructor mirroring the [x1, y1, x2, y2] layout
// detectors emit.
func Box(x1, y1, x2, y2 int) BoundingBox {
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// FromRect converts an image.Rectangle into a BoundingBox.
func FromRect(r image.Rectangle) BoundingBox {
	return BoundingBox{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Valid reports whether the box has positive width and height.
func (b BoundingBox) Valid() bool {
	return b.X2 > b.X1 && b.Y2 > b.Y1
}

// Width returns X2 - X1.
func (b BoundingBox) Width() int { return b.X2 - b.X1 }

// Height returns Y2 - Y1.
func (b BoundingBox) Height() int { return b.Y2 - b.Y1 }

// Rect returns the box as an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Expand grows the box by d pixels on every side.
func (b BoundingBox) Expand(d int) BoundingBox {
	return BoundingBox{X1: b.X1 - d, Y1: b.Y1 - d, X2: b.X2 + d, Y2: b.Y2 + d}
}

// Overlaps reports strict overlap on both axes. Boxes that only share an
// edge do not overlap.
func (b BoundingBox) Overlaps(o BoundingBox) bool {
	return b.X1 < o.X2 && b.X2 > o.X1 && b.Y1 < o.Y2 && b.Y2 > o.Y1
}

// Union returns the smallest box containing both b and o.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return BoundingBox{
		X1: min(b.X1, o.X1),
		Y1: min(b.Y1, o.Y1),
		X2: max(b.X2, o.X2),
		Y2: max(b.Y2, o.Y2),
	}
}

// Key returns the "x1,y1,x2,y2" form used to address a region in JSON maps.
func (b BoundingBox) Key() string {
	return fmt.Sprintf("%d,%d,%d,%d", b.X1, b.Y1, b.X2, b.Y2)
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%d,%d,%d,%d]", b.X1, b.Y1, b.X2, b.Y2)
}

// SortBoxes orders boxes top-to-bottom, then left-to-right, so outputs are
// stable regardless of the order boxes were produced in.
func SortBoxes(boxes []BoundingBox) {
	sort.Slice(boxes, func(i, j int) bool {
		a, b := boxes[i], boxes[j]
		if a.Y1 != b.Y1 {
			return a.Y1 < b.Y1
		}
		if a.X1 != b.X1 {
			return a.X1 < b.X1
		}
		if a.Y2 != b.Y2 {
			return a.Y2 < b.Y2
		}
		return a.X2 < b.X2
	})
}
