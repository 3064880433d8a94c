package inpaint

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadSize(t *testing.T) {
	tests := []struct {
		n, stride, want int
	}{
		{n: 1, stride: 16, want: 16},
		{n: 16, stride: 16, want: 16},
		{n: 17, stride: 16, want: 32},
		{n: 100, stride: 16, want: 112},
		{n: 7, stride: 1, want: 7},
		{n: 7, stride: 0, want: 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PadSize(tt.n, tt.stride), "PadSize(%d, %d)", tt.n, tt.stride)
	}
}

func TestCUDADevice(t *testing.T) {
	tests := []struct {
		device string
		id     int
		ok     bool
	}{
		{device: "cpu", ok: false},
		{device: "", ok: false},
		{device: "cuda", id: 0, ok: true},
		{device: "CUDA:1", id: 1, ok: true},
		{device: "cuda:x", ok: false},
		{device: "cuda:-1", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.device, func(t *testing.T) {
			id, ok := cudaDevice(tt.device)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.id, id)
			}
		})
	}
}

// recordingModel returns its image input scaled back to 0..255, so the
// padded tensor layout can be inspected through the result.
type recordingModel struct {
	img, mask     []float32
	width, height int
}

func (m *recordingModel) Infer(img, mask []float32, width, height int) ([]float32, error) {
	m.img, m.mask, m.width, m.height = img, mask, width, height
	out := make([]float32, len(img))
	for i, v := range img {
		out[i] = v * 255
	}
	return out, nil
}

func (m *recordingModel) ReleaseCache() {}
func (m *recordingModel) Close() error  { return nil }

func TestNeuralBackend_TensorLayout(t *testing.T) {
	model := &recordingModel{}
	b := newNeuralBackend("test", model, 16)

	crop := solidCrop(20, 10, color.NRGBA{255, 128, 0, 255})
	mask := rectMask(20, 10, image.Rect(2, 3, 4, 5))

	out, err := b.Inpaint(crop, mask)
	require.NoError(t, err)

	require.Equal(t, 32, model.width)
	require.Equal(t, 16, model.height)
	plane := 32 * 16

	// Inside the crop the planes carry R, G and B in 0..1.
	assert.InDelta(t, 1.0, model.img[0], 1e-6)
	assert.InDelta(t, 128.0/255, model.img[plane], 1e-6)
	assert.InDelta(t, 0.0, model.img[2*plane], 1e-6)

	// Padding is zero in image and mask.
	assert.Zero(t, model.img[15*32+25])
	assert.Zero(t, model.mask[15*32+25])

	assert.Equal(t, float32(1), model.mask[3*32+2])
	assert.Equal(t, float32(0), model.mask[0])

	// The round trip through the model is truncated back to the crop.
	assert.Equal(t, image.Rect(0, 0, 20, 10), out.Bounds())
	assert.Equal(t, crop.Pix, out.Pix)
}

func TestNeuralBackend_RejectsShortOutput(t *testing.T) {
	b := newNeuralBackend("test", shortModel{}, 16)
	_, err := b.Inpaint(solidCrop(4, 4, color.NRGBA{A: 255}), rectMask(4, 4, image.Rect(0, 0, 1, 1)))
	assert.Error(t, err)
}

type shortModel struct{}

func (shortModel) Infer([]float32, []float32, int, int) ([]float32, error) { return []float32{1}, nil }
func (shortModel) ReleaseCache()                                           {}
func (shortModel) Close() error                                            { return nil }

func TestToByte(t *testing.T) {
	assert.Equal(t, uint8(0), toByte(-3))
	assert.Equal(t, uint8(255), toByte(300))
	assert.Equal(t, uint8(128), toByte(127.6))
}
