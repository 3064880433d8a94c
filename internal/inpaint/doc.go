// Package inpaint removes text pixels from page regions.
//
// A Dispatcher owns the backend choice for one pipeline run. It is resolved
// once in New: when the neural backend is requested but its runtime, weights
// or device cannot be brought up, the dispatcher logs a single warning and
// uses the classical backend until it is discarded. It never retries.
//
// Every region goes through the same steps regardless of backend:
//
//  1. Clip the region to the page; empty or degenerate regions are skipped.
//  2. Crop it and compute the dilated ink mask (see imaging.TextMask).
//  3. Synthesize replacement content for the crop.
//  4. Copy back only the masked pixels. Unmasked pixels keep their exact
//     bytes and nothing outside the region is written.
//
// # Backends
//
// The classical backend is a pure-Go fast marching fill (Telea) or the same
// fill followed by harmonic diffusion ("ns"). Building with -tags opencv
// adds an OpenCV engine using cv::inpaint.
//
// The neural backend runs an ONNX inpainting graph through onnxruntime. Each
// crop is zero-padded to a multiple of the model stride, inferred on its own
// and truncated back. Device buffers are released after each batch.
package inpaint
