//go:build opencv

package inpaint

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// opencvBackend delegates to cv::inpaint.
type opencvBackend struct {
	method gocv.InpaintMethods
	radius float32
	name   string
}

func newOpenCVBackend(algorithm string, radius int) (Backend, error) {
	b := &opencvBackend{method: gocv.Telea, radius: float32(max(radius, 1)), name: "opencv-" + AlgorithmTelea}
	switch strings.ToLower(algorithm) {
	case AlgorithmTelea, "":
	case AlgorithmNS:
		b.method = gocv.NS
		b.name = "opencv-" + AlgorithmNS
	default:
		return nil, fmt.Errorf("unknown inpaint algorithm %q", algorithm)
	}
	return b, nil
}

func (b *opencvBackend) Name() string { return b.name }

func (b *opencvBackend) Inpaint(crop *image.NRGBA, mask *image.Gray) (*image.NRGBA, error) {
	if err := checkMask(crop, mask); err != nil {
		return nil, err
	}
	src, err := gocv.ImageToMatRGB(crop)
	if err != nil {
		return nil, fmt.Errorf("failed to convert crop: %w", err)
	}
	defer src.Close()

	m, err := gocv.ImageGrayToMatGray(mask)
	if err != nil {
		return nil, fmt.Errorf("failed to convert mask: %w", err)
	}
	defer m.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Inpaint(src, m, &dst, b.radius, b.method)

	out, err := dst.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert result: %w", err)
	}
	return imaging.Clone(out), nil
}
