// Package detection turns raw text-detector output into page regions.
//
// A detector (Tesseract, a neural text detector, or a hand-made box list)
// emits many small, often fragmented boxes: one per word, glyph cluster, or
// line. This package consolidates them into one box per translatable text
// unit, the region that is later cleaned and re-typeset.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
//
// # Merge Rule
//
// Two boxes are adjacent when expanding one by the distance threshold on
// every side makes it strictly overlap the other. Touching edges do not
// count as overlap. Regions are the bounding-box unions of the connected
// components of this adjacency relation, computed with union-find so the
// result is independent of input order.
//
// # Thread Safety
//
// All functions are pure and safe for concurrent use.
package detection
