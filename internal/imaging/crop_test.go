package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createPatternImage creates an image whose pixel value encodes its position.
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), uint8(x ^ y), 255})
		}
	}
	return img
}

// createInMemoryImage creates a solid color image without touching disk.
func createInMemoryImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestClipRegion(t *testing.T) {
	page := image.Rect(0, 0, 100, 80)
	tests := []struct {
		name   string
		region image.Rectangle
		want   image.Rectangle
		ok     bool
	}{
		{name: "inside", region: image.Rect(10, 10, 20, 20), want: image.Rect(10, 10, 20, 20), ok: true},
		{name: "overhangs right", region: image.Rect(90, 70, 120, 100), want: image.Rect(90, 70, 100, 80), ok: true},
		{name: "negative origin", region: image.Rect(-5, -5, 5, 5), want: image.Rect(0, 0, 5, 5), ok: true},
		{name: "fully outside", region: image.Rect(200, 200, 210, 210), ok: false},
		{name: "zero width", region: image.Rect(10, 10, 10, 20), ok: false},
		{name: "inverted", region: image.Rectangle{Min: image.Pt(20, 20), Max: image.Pt(10, 10)}, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClipRegion(page, tt.region)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("clipped = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCropRegion(t *testing.T) {
	img := createPatternImage(100, 100)

	crop, err := CropRegion(img, image.Rect(10, 20, 30, 50))
	if err != nil {
		t.Fatalf("CropRegion failed: %v", err)
	}
	if b := crop.Bounds(); b != image.Rect(0, 0, 20, 30) {
		t.Fatalf("crop bounds = %v, want (0,0)-(20,30)", b)
	}
	if got := crop.NRGBAAt(0, 0); got.R != 10 || got.G != 20 {
		t.Errorf("crop origin pixel = %v, want R=10 G=20", got)
	}
	if got := crop.NRGBAAt(19, 29); got.R != 29 || got.G != 49 {
		t.Errorf("crop last pixel = %v, want R=29 G=49", got)
	}
}

func TestCropRegion_Invalid(t *testing.T) {
	img := createInMemoryImage(50, 50, color.White)

	tests := []struct {
		name   string
		region image.Rectangle
	}{
		{name: "outside bounds", region: image.Rect(40, 40, 60, 60)},
		{name: "negative", region: image.Rect(-1, 0, 10, 10)},
		{name: "empty", region: image.Rect(10, 10, 10, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CropRegion(img, tt.region); err == nil {
				t.Errorf("CropRegion(%v) expected error", tt.region)
			}
		})
	}
}

func TestBlendMasked_OnlyMaskedPixelsChange(t *testing.T) {
	page := createPatternImage(40, 40)
	orig := createPatternImage(40, 40)

	src := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			src.SetNRGBA(x, y, color.NRGBA{200, 200, 200, 255})
		}
	}
	mask := image.NewGray(image.Rect(0, 0, 10, 10))
	mask.SetGray(2, 3, color.Gray{Y: 255})
	mask.SetGray(9, 9, color.Gray{Y: 255})

	offset := image.Pt(5, 7)
	written := BlendMasked(page, offset, src, mask)

	if written != 2 {
		t.Errorf("written = %d, want 2", written)
	}
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			masked := (x == 7 && y == 10) || (x == 14 && y == 16)
			got := page.RGBAAt(x, y)
			if masked {
				if got.R != 200 {
					t.Errorf("masked pixel (%d,%d) = %v, want inpainted value", x, y, got)
				}
				continue
			}
			if got != orig.RGBAAt(x, y) {
				t.Fatalf("unmasked pixel (%d,%d) changed: %v -> %v", x, y, orig.RGBAAt(x, y), got)
			}
		}
	}
}

func TestBlendMasked_ClipsToDestination(t *testing.T) {
	page := createInMemoryImage(10, 10, color.White)
	src := createInMemoryImage(4, 4, color.Black)
	mask := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range mask.Pix {
		mask.Pix[i] = 255
	}

	written := BlendMasked(page, image.Pt(8, 8), src, mask)

	if written != 4 {
		t.Errorf("written = %d, want 4", written)
	}
}

func TestPasteRegion(t *testing.T) {
	page := createInMemoryImage(20, 20, color.White)
	tile := createInMemoryImage(5, 5, color.RGBA{1, 2, 3, 255})

	PasteRegion(page, image.Pt(10, 10), tile)

	if got := page.RGBAAt(10, 10); got != (color.RGBA{1, 2, 3, 255}) {
		t.Errorf("pasted pixel = %v", got)
	}
	if got := page.RGBAAt(15, 15); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("pixel outside paste changed: %v", got)
	}
}

func TestNewRegionCanvas(t *testing.T) {
	page := createPatternImage(60, 60)
	r := image.Rect(20, 30, 40, 45)

	canvas := NewRegionCanvas(page, r)

	if canvas.Bounds() != image.Rect(0, 0, 20, 15) {
		t.Fatalf("canvas bounds = %v", canvas.Bounds())
	}
	if canvas.RGBAAt(0, 0) != page.RGBAAt(20, 30) {
		t.Error("canvas origin does not match region corner")
	}

	canvas.Set(0, 0, color.Black)
	if page.RGBAAt(20, 30) == (color.RGBA{0, 0, 0, 255}) {
		t.Error("drawing on the canvas changed the page")
	}
}
