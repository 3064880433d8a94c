package inpaint

import (
	"container/heap"
	"image"
	"math"
)

// Pixel states of the fast marching front.
const (
	flagKnown uint8 = iota
	flagBand
	flagInside
)

const farAway = 1e6

var neighbors4 = [4]image.Point{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}

// teleaBackend fills masked pixels in order of their distance from the
// known boundary, each from a weighted first-order estimate of the known
// pixels within radius (Telea 2004).
type teleaBackend struct {
	radius int
}

func (b *teleaBackend) Name() string { return AlgorithmTelea }

func (b *teleaBackend) Inpaint(crop *image.NRGBA, mask *image.Gray) (*image.NRGBA, error) {
	if err := checkMask(crop, mask); err != nil {
		return nil, err
	}
	f := newField(crop, mask)
	f.march(b.radius)
	return f.image(), nil
}

// diffusionBackend seeds the fill with fast marching, then relaxes the
// masked pixels toward a harmonic (Laplace) solution. It is smoother than
// Telea on flat backgrounds and slower.
type diffusionBackend struct {
	telea      teleaBackend
	iterations int
}

func diffusionIterations(radius int) int { return 25 * radius }

func (b *diffusionBackend) Name() string { return AlgorithmNS }

func (b *diffusionBackend) Inpaint(crop *image.NRGBA, mask *image.Gray) (*image.NRGBA, error) {
	if err := checkMask(crop, mask); err != nil {
		return nil, err
	}
	f := newField(crop, mask)
	if f.heap.Len() == 0 {
		// Nothing known to diffuse from.
		return f.image(), nil
	}
	masked := make([]int, 0, len(f.flags))
	for i, fl := range f.flags {
		if fl == flagInside {
			masked = append(masked, i)
		}
	}
	f.march(b.telea.radius)
	f.diffuse(masked, b.iterations)
	return f.image(), nil
}

type bandPixel struct {
	x, y int
	t    float64
	seq  int
}

// bandHeap is a min-heap on arrival time; ties pop in push order.
type bandHeap []bandPixel

func (h bandHeap) Len() int { return len(h) }
func (h bandHeap) Less(i, j int) bool {
	if h[i].t != h[j].t {
		return h[i].t < h[j].t
	}
	return h[i].seq < h[j].seq
}
func (h bandHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *bandHeap) Push(x any)   { *h = append(*h, x.(bandPixel)) }
func (h *bandHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	*h = old[:n-1]
	return p
}

// field holds the marching state for one crop. Pixel values are kept as
// float64 in NRGBA channel order.
type field struct {
	w, h  int
	flags []uint8
	t     []float64
	pix   []float64
	heap  bandHeap
	seq   int
}

func newField(crop *image.NRGBA, mask *image.Gray) *field {
	b := crop.Bounds()
	mb := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	f := &field{
		w:     w,
		h:     h,
		flags: make([]uint8, w*h),
		t:     make([]float64, w*h),
		pix:   make([]float64, w*h*4),
	}

	for y := 0; y < h; y++ {
		src := crop.Pix[crop.PixOffset(b.Min.X, b.Min.Y+y):]
		m := mask.Pix[mask.PixOffset(mb.Min.X, mb.Min.Y+y):]
		for x := 0; x < w; x++ {
			i := y*w + x
			for c := 0; c < 4; c++ {
				f.pix[i*4+c] = float64(src[x*4+c])
			}
			if m[x] != 0 {
				f.flags[i] = flagInside
				f.t[i] = farAway
			}
		}
	}

	// Known pixels touching the hole form the initial front.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if f.flags[i] != flagKnown {
				continue
			}
			for _, d := range neighbors4 {
				if f.inside(x+d.X, y+d.Y) {
					f.flags[i] = flagBand
					f.push(x, y, 0)
					break
				}
			}
		}
	}
	return f
}

func (f *field) in(x, y int) bool { return x >= 0 && y >= 0 && x < f.w && y < f.h }

func (f *field) inside(x, y int) bool {
	return f.in(x, y) && f.flags[y*f.w+x] == flagInside
}

func (f *field) push(x, y int, t float64) {
	heap.Push(&f.heap, bandPixel{x: x, y: y, t: t, seq: f.seq})
	f.seq++
}

// march advances the front until every reachable masked pixel is filled.
func (f *field) march(radius int) {
	for f.heap.Len() > 0 {
		p := heap.Pop(&f.heap).(bandPixel)
		f.flags[p.y*f.w+p.x] = flagKnown
		for _, d := range neighbors4 {
			x, y := p.x+d.X, p.y+d.Y
			if !f.inside(x, y) {
				continue
			}
			i := y*f.w + x
			dist := math.Min(
				math.Min(f.solve(x, y-1, x-1, y), f.solve(x, y+1, x-1, y)),
				math.Min(f.solve(x, y-1, x+1, y), f.solve(x, y+1, x+1, y)),
			)
			f.t[i] = dist
			f.fill(x, y, radius)
			f.flags[i] = flagBand
			f.push(x, y, dist)
		}
	}
}

// arrival returns the arrival time at (x, y) and whether it is still unknown.
// Pixels off the crop count as unknown.
func (f *field) arrival(x, y int) (float64, bool) {
	if !f.in(x, y) {
		return farAway, true
	}
	i := y*f.w + x
	return f.t[i], f.flags[i] == flagInside
}

// solve is the first-order upwind solution of |grad T| = 1 from two
// orthogonal neighbors.
func (f *field) solve(x1, y1, x2, y2 int) float64 {
	a, aUnknown := f.arrival(x1, y1)
	b, bUnknown := f.arrival(x2, y2)
	switch {
	case !aUnknown && !bUnknown:
		if math.Abs(a-b) >= 1 {
			return 1 + math.Min(a, b)
		}
		r := math.Sqrt(2 - (a-b)*(a-b))
		return (a + b + r) * 0.5
	case !aUnknown:
		return 1 + a
	case !bUnknown:
		return 1 + b
	default:
		return 1 + math.Min(a, b)
	}
}

// grad returns the finite-difference derivative of v at (x, y) along (dx, dy)
// using only neighbors that are not masked.
func (f *field) grad(v func(int) float64, x, y, dx, dy int) float64 {
	fx, fy := x+dx, y+dy
	bx, by := x-dx, y-dy
	fwd := f.in(fx, fy) && f.flags[fy*f.w+fx] != flagInside
	bwd := f.in(bx, by) && f.flags[by*f.w+bx] != flagInside
	switch {
	case fwd && bwd:
		return (v(fy*f.w+fx) - v(by*f.w+bx)) * 0.5
	case fwd:
		return v(fy*f.w+fx) - v(y*f.w+x)
	case bwd:
		return v(y*f.w+x) - v(by*f.w+bx)
	default:
		return 0
	}
}

// fill estimates the masked pixel (x, y) from known pixels within radius.
func (f *field) fill(x, y, radius int) {
	p := y*f.w + x
	tAt := func(i int) float64 { return f.t[i] }
	gtx := f.grad(tAt, x, y, 1, 0)
	gty := f.grad(tAt, x, y, 0, 1)

	var sum [4]float64
	var ws float64
	r2max := radius * radius
	for ky := y - radius; ky <= y+radius; ky++ {
		for kx := x - radius; kx <= x+radius; kx++ {
			if !f.in(kx, ky) {
				continue
			}
			k := ky*f.w + kx
			if f.flags[k] == flagInside {
				continue
			}
			rx, ry := x-kx, y-ky
			r2 := rx*rx + ry*ry
			if r2 == 0 || r2 > r2max {
				continue
			}
			d2 := float64(r2)
			dst := 1 / (d2 * math.Sqrt(d2))
			lev := 1 / (1 + math.Abs(f.t[k]-f.t[p]))
			dir := float64(rx)*gtx + float64(ry)*gty
			if math.Abs(dir) <= 0.01 {
				dir = 1e-6
			}
			w := math.Abs(dst * lev * dir)

			for c := 0; c < 4; c++ {
				ch := c
				val := func(i int) float64 { return f.pix[i*4+ch] }
				gix := f.grad(val, kx, ky, 1, 0)
				giy := f.grad(val, kx, ky, 0, 1)
				sum[c] += w * (f.pix[k*4+c] + gix*float64(rx) + giy*float64(ry))
			}
			ws += w
		}
	}
	if ws == 0 {
		return
	}
	for c := 0; c < 4; c++ {
		f.pix[p*4+c] = clamp255(sum[c] / ws)
	}
}

// diffuse relaxes the given pixels toward the average of their neighbors.
func (f *field) diffuse(masked []int, iterations int) {
	for it := 0; it < iterations; it++ {
		for _, i := range masked {
			x, y := i%f.w, i/f.w
			var sum [4]float64
			n := 0
			for _, d := range neighbors4 {
				nx, ny := x+d.X, y+d.Y
				if !f.in(nx, ny) {
					continue
				}
				j := ny*f.w + nx
				for c := 0; c < 4; c++ {
					sum[c] += f.pix[j*4+c]
				}
				n++
			}
			if n == 0 {
				continue
			}
			for c := 0; c < 4; c++ {
				f.pix[i*4+c] = sum[c] / float64(n)
			}
		}
	}
}

func (f *field) image() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, f.w, f.h))
	for i, v := range f.pix {
		out.Pix[i] = uint8(clamp255(v) + 0.5)
	}
	return out
}

func clamp255(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return v
	}
}
