// Package ocr adapts Tesseract (via gosseract/v2) into a raw text box
// detector for the compositing pipeline.
//
// Only word boxes are used: the recognized text is kept for debugging but the
// pipeline translates whole consolidated regions, not individual words.
// Boxes below the confidence floor, blank words, and degenerate rectangles
// are dropped before they reach consolidation.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Set TessdataPrefix (or TESSDATA_PREFIX) when the data lives elsewhere.
package ocr
