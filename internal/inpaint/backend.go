package inpaint

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

// Backend names accepted by Options.Backend.
const (
	BackendNeural    = "neural"
	BackendClassical = "classical"
)

// Classical algorithm names accepted by Options.Algorithm.
const (
	AlgorithmTelea = "telea"
	AlgorithmNS    = "ns"
)

// Classical engine names accepted by Options.Engine.
const (
	EngineBuiltin = "builtin"
	EngineOpenCV  = "opencv"
)

var (
	// ErrBackendUnavailable marks a neural backend that could not be brought
	// up. The dispatcher demotes itself to the classical backend for its
	// whole lifetime when it sees this.
	ErrBackendUnavailable = errors.New("inpaint backend unavailable")

	// ErrDegenerateRegion is returned by low-level helpers for regions with
	// non-positive area or no overlap with the page. Clean treats it as a
	// silent no-op.
	ErrDegenerateRegion = errors.New("degenerate region")

	// ErrMaskMismatch is returned when a crop and its mask differ in size.
	ErrMaskMismatch = errors.New("mask does not match crop")
)

// Backend synthesizes replacement content for the masked pixels of a crop.
//
// crop and mask share origin-based coordinates and the same dimensions. The
// returned image has the crop's dimensions. Backends may change unmasked
// pixels in their output; the dispatcher only ever copies masked pixels back
// to the page.
type Backend interface {
	Name() string
	Inpaint(crop *image.NRGBA, mask *image.Gray) (*image.NRGBA, error)
}

// cacheReleaser is implemented by backends that keep device-side buffers
// between calls.
type cacheReleaser interface {
	ReleaseCache()
}

// NewClassical returns the pure-Go classical backend for algorithm.
//
// radius bounds how far known pixels influence a fill; values below 1 are
// treated as 1.
func NewClassical(algorithm string, radius int) (Backend, error) {
	if radius < 1 {
		radius = 1
	}
	switch strings.ToLower(algorithm) {
	case AlgorithmTelea, "":
		return &teleaBackend{radius: radius}, nil
	case AlgorithmNS:
		return &diffusionBackend{telea: teleaBackend{radius: radius}, iterations: diffusionIterations(radius)}, nil
	default:
		return nil, fmt.Errorf("unknown inpaint algorithm %q", algorithm)
	}
}

func checkMask(crop *image.NRGBA, mask *image.Gray) error {
	if crop.Bounds().Size() != mask.Bounds().Size() {
		return fmt.Errorf("%w: crop %v, mask %v", ErrMaskMismatch, crop.Bounds().Size(), mask.Bounds().Size())
	}
	return nil
}
