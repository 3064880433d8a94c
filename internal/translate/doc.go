// Package translate adapts external translation sources to the compositor.
//
// The compositor never translates on its own. A Translator supplies one
// string per consolidated region; an empty string means "clean the region
// but draw nothing". Static reads pre-computed translations from JSON, and
// CleanOutput strips the reasoning tags, labels and quotes that language
// models tend to wrap around their answers.
package translate
