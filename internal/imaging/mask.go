package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
)

// DefaultGuardThreshold is the Otsu threshold above which a crop is treated
// as near-uniform and bright, and the fixed threshold is used instead.
const DefaultGuardThreshold = 230

// MaskOptions configures foreground (ink) mask extraction for a region crop.
type MaskOptions struct {
	// UseAdaptive selects Otsu thresholding. When false FixedThreshold is
	// always used.
	UseAdaptive bool

	// FixedThreshold is the cutoff used when adaptive thresholding is off or
	// rejected by the guard. Pixels at or below it are foreground.
	FixedThreshold uint8

	// GuardThreshold rejects an Otsu threshold above this value.
	GuardThreshold uint8

	// DilateKernel is the side of the square structuring element.
	DilateKernel int

	// DilateIterations is the number of dilation passes.
	DilateIterations int
}

// DefaultMaskOptions returns the options used for dark text on light
// speech-bubble backgrounds.
func DefaultMaskOptions() MaskOptions {
	return MaskOptions{
		UseAdaptive:      true,
		FixedThreshold:   200,
		GuardThreshold:   DefaultGuardThreshold,
		DilateKernel:     3,
		DilateIterations: 2,
	}
}

// Luma weights of ITU-R BT.601, as used by cv2.cvtColor for RGB to gray.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Grayscale converts an image to 8-bit luminance with BT.601 weights. The
// result has its origin at (0, 0).
func Grayscale(img image.Image) *image.Gray {
	if img.Bounds().Empty() {
		return image.NewGray(image.Rectangle{})
	}
	rgba := effect.GrayscaleWithWeights(img, lumaR, lumaG, lumaB)
	b := rgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+b.Dx()*4]
		dst := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return gray
}

// TextMask computes the dilated ink mask of a crop.
//
// The returned mask has the crop's dimensions with its origin at (0, 0);
// foreground pixels are 255 and background pixels 0. A zero-area crop yields
// an empty mask, which callers treat as "nothing to clean".
func TextMask(crop image.Image, opts MaskOptions) *image.Gray {
	gray := Grayscale(crop)
	m := Mask(gray, opts.UseAdaptive, opts.FixedThreshold, opts.GuardThreshold)
	return Dilate(m, opts.DilateKernel, opts.DilateIterations)
}

// Mask binarizes a grayscale crop into an inverted mask where dark pixels are
// foreground.
//
// With useAdaptive the cutoff is the Otsu threshold of the crop. If that
// threshold exceeds guard, the crop is judged near-uniform or bright and the
// adaptive result is discarded in favor of fixed. Without useAdaptive, fixed
// is always used.
func Mask(gray *image.Gray, useAdaptive bool, fixed, guard uint8) *image.Gray {
	t := fixed
	if useAdaptive {
		if otsu := OtsuThreshold(gray); otsu <= guard {
			t = otsu
		}
	}
	return ThresholdInv(gray, t)
}

// ThresholdInv marks every pixel whose value is at or below t as foreground
// (255). All other pixels are 0.
func ThresholdInv(gray *image.Gray, t uint8) *image.Gray {
	b := gray.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		src := gray.Pix[gray.PixOffset(b.Min.X, y):]
		dst := out.Pix[out.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			if src[x] <= t {
				dst[x] = 255
			}
		}
	}
	return out
}

// OtsuThreshold returns the threshold that maximizes the between-class
// variance of the crop's intensity histogram.
//
// Ties keep the lowest threshold. A crop with a single intensity (or no
// pixels) has no separable classes and yields 0.
func OtsuThreshold(gray *image.Gray) uint8 {
	var hist [256]int
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[gray.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			hist[row[x]]++
		}
	}

	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}
	n := float64(total)

	var mu float64
	for i, c := range hist {
		mu += float64(i) * float64(c)
	}
	mu /= n

	const eps = 1.19209290e-07
	var q1, mu1, maxSigma float64
	var best int
	for i := 0; i < 256; i++ {
		p := float64(hist[i]) / n
		mu1 *= q1
		q1 += p
		q2 := 1 - q1
		if min(q1, q2) < eps || max(q1, q2) > 1-eps {
			continue
		}
		mu1 = (mu1 + float64(i)*p) / q1
		mu2 := (mu - q1*mu1) / q2
		sigma := q1 * q2 * (mu1 - mu2) * (mu1 - mu2)
		if sigma > maxSigma {
			maxSigma = sigma
			best = i
		}
	}
	return uint8(best)
}

// Dilate grows the foreground of a binary mask with a square structuring
// element of side kernelSize, repeated iterations times.
//
// The anchor is the kernel center (kernelSize/2). Pixels outside the mask
// never contribute. A kernel smaller than 2 or zero iterations returns a
// copy of the mask.
func Dilate(mask *image.Gray, kernelSize, iterations int) *image.Gray {
	b := mask.Bounds()
	out := image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], mask.Pix[mask.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	if kernelSize < 2 || iterations < 1 || b.Empty() {
		return out
	}

	lo := -(kernelSize / 2)
	hi := kernelSize - 1 + lo
	w, h := b.Dx(), b.Dy()
	tmp := make([]uint8, w*h)
	cur := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		copy(cur[y*w:(y+1)*w], out.Pix[y*out.Stride:])
	}

	// Square kernels are separable: a row max followed by a column max.
	for it := 0; it < iterations; it++ {
		for y := 0; y < h; y++ {
			row := cur[y*w : (y+1)*w]
			for x := 0; x < w; x++ {
				var v uint8
				for dx := lo; dx <= hi; dx++ {
					if xx := x + dx; xx >= 0 && xx < w && row[xx] > v {
						v = row[xx]
					}
				}
				tmp[y*w+x] = v
			}
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				var v uint8
				for dy := lo; dy <= hi; dy++ {
					if yy := y + dy; yy >= 0 && yy < h && tmp[yy*w+x] > v {
						v = tmp[yy*w+x]
					}
				}
				cur[y*w+x] = v
			}
		}
	}

	for y := 0; y < h; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+w], cur[y*w:(y+1)*w])
	}
	return out
}

// CountMasked returns the number of foreground pixels in a mask.
func CountMasked(mask *image.Gray) int {
	n := 0
	b := mask.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := mask.Pix[mask.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			if row[x] != 0 {
				n++
			}
		}
	}
	return n
}
