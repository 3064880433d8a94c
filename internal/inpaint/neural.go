package inpaint

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// DefaultStride is the tensor dimension alignment of the neural model.
const DefaultStride = 16

// Model runs one forward pass of an inpainting network.
//
// img is a planar RGB tensor of shape [1, 3, height, width] with values in
// 0..1; mask is [1, 1, height, width] with 1 marking pixels to synthesize.
// The result is [1, 3, height, width] with values in 0..255. width and height
// are always multiples of the backend stride.
type Model interface {
	Infer(img, mask []float32, width, height int) ([]float32, error)

	// ReleaseCache frees transient device-side buffers. It is called once
	// after each batch of regions on a page.
	ReleaseCache()

	Close() error
}

// neuralBackend adapts a Model to the Backend contract: it pads each crop to
// the model stride, runs inference on that crop alone, and truncates the
// result back to the crop size.
type neuralBackend struct {
	name   string
	model  Model
	stride int
}

func newNeuralBackend(name string, model Model, stride int) *neuralBackend {
	if stride < 1 {
		stride = DefaultStride
	}
	return &neuralBackend{name: name, model: model, stride: stride}
}

func (b *neuralBackend) Name() string { return b.name }

func (b *neuralBackend) ReleaseCache() { b.model.ReleaseCache() }

func (b *neuralBackend) Close() error { return b.model.Close() }

func (b *neuralBackend) Inpaint(crop *image.NRGBA, mask *image.Gray) (*image.NRGBA, error) {
	if err := checkMask(crop, mask); err != nil {
		return nil, err
	}
	w, h := crop.Bounds().Dx(), crop.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, ErrDegenerateRegion
	}
	pw, ph := PadSize(w, b.stride), PadSize(h, b.stride)

	paddedCrop := imaging.Paste(imaging.New(pw, ph, color.NRGBA{}), crop, image.Point{})
	paddedMask := padMask(mask, pw, ph)

	out, err := b.model.Infer(toPlanarRGB(paddedCrop), toMaskTensor(paddedMask), pw, ph)
	if err != nil {
		return nil, fmt.Errorf("failed to run inpainting model: %w", err)
	}
	if len(out) != 3*pw*ph {
		return nil, fmt.Errorf("model returned %d values, want %d", len(out), 3*pw*ph)
	}

	result := fromPlanarRGB(out, paddedCrop)
	return imaging.Crop(result, image.Rect(0, 0, w, h)), nil
}

// PadSize rounds n up to the next multiple of stride.
func PadSize(n, stride int) int {
	if stride < 1 {
		return n
	}
	return (n + stride - 1) / stride * stride
}

func padMask(mask *image.Gray, pw, ph int) *image.Gray {
	b := mask.Bounds()
	out := image.NewGray(image.Rect(0, 0, pw, ph))
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], mask.Pix[mask.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return out
}

func toPlanarRGB(img *image.NRGBA) []float32 {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	plane := w * h
	t := make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			i := y*w + x
			t[i] = float32(row[x*4]) / 255
			t[plane+i] = float32(row[x*4+1]) / 255
			t[2*plane+i] = float32(row[x*4+2]) / 255
		}
	}
	return t
}

func toMaskTensor(mask *image.Gray) []float32 {
	w, h := mask.Bounds().Dx(), mask.Bounds().Dy()
	t := make([]float32, w*h)
	for y := 0; y < h; y++ {
		row := mask.Pix[y*mask.Stride:]
		for x := 0; x < w; x++ {
			if row[x] != 0 {
				t[y*w+x] = 1
			}
		}
	}
	return t
}

// fromPlanarRGB converts model output back to pixels, keeping the alpha of
// the padded input.
func fromPlanarRGB(t []float32, like *image.NRGBA) *image.NRGBA {
	w, h := like.Bounds().Dx(), like.Bounds().Dy()
	plane := w * h
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			o := out.PixOffset(x, y)
			out.Pix[o] = toByte(t[i])
			out.Pix[o+1] = toByte(t[plane+i])
			out.Pix[o+2] = toByte(t[2*plane+i])
			out.Pix[o+3] = like.Pix[like.PixOffset(x, y)+3]
		}
	}
	return out
}

func toByte(v float32) uint8 {
	if math.IsNaN(float64(v)) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
