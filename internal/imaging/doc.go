// Package imaging provides the raster operations behind region compositing.
//
// This package implements page loading and saving, region crop and paste
// helpers, configuration color parsing, ink-mask extraction for text
// regions, and a debug overlay. All operations work with standard Go
// image.Image types and use a coordinate system where (0,0) is at the
// top-left corner, X increases rightward, and Y increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//   - Crops and masks are rebased so their own origin is (0,0); the region's
//     top-left corner is passed separately as an offset when writing back
//
// # Masks
//
// A mask is an *image.Gray aligned to a region crop. Foreground (ink) pixels
// are 255 and background pixels 0. Masks assume dark text on a light
// background: pixels at or below the binarization threshold are foreground.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images. A page is
// mutable and has a single writer; operations on the same page must be
// serialized by the caller.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Crop regions outside image bounds or with non-positive size
//   - File I/O errors during image loading and saving
//   - Malformed color strings
package imaging
