package inpaint

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"strings"

	"go.uber.org/zap"

	"github.com/ironsheep/page-compositor/internal/detection"
	"github.com/ironsheep/page-compositor/internal/imaging"
)

// Options selects and configures the inpainting backends.
type Options struct {
	// Backend is BackendNeural or BackendClassical. Neural falls back to
	// classical if it cannot be initialized.
	Backend string

	// Algorithm is AlgorithmTelea or AlgorithmNS for the classical backend.
	Algorithm string

	// Radius bounds how far known pixels influence a classical fill.
	Radius int

	// Engine is EngineBuiltin or EngineOpenCV for the classical backend.
	Engine string

	// ModelID names the neural model; ModelDir/<ModelID>.onnx is used
	// unless ModelPath is set.
	ModelID   string
	ModelDir  string
	ModelPath string

	// ModelURL is fetched once when the weights file is missing.
	ModelURL string

	// Device is "cpu", "cuda" or "cuda:N".
	Device string

	// RuntimeLibrary is the onnxruntime shared library path. Empty uses
	// the platform default name.
	RuntimeLibrary string

	// Stride is the neural tensor alignment.
	Stride int

	Mask imaging.MaskOptions
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Backend:   BackendNeural,
		Algorithm: AlgorithmTelea,
		Radius:    3,
		Engine:    EngineBuiltin,
		ModelID:   "lama-manga",
		ModelDir:  "models",
		Device:    "cpu",
		Stride:    DefaultStride,
		Mask:      imaging.DefaultMaskOptions(),
	}
}

// BackendState is the dispatcher's resolved backend choice. It is decided
// once in New and never changes afterwards.
type BackendState struct {
	Requested      string `json:"requested"`
	Active         string `json:"active"`
	Backend        string `json:"backend"`
	ModelID        string `json:"model_id,omitempty"`
	Device         string `json:"device,omitempty"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// Neural reports whether the neural backend is active.
func (s BackendState) Neural() bool { return s.Active == BackendNeural }

// NeuralLoader brings up the neural model. Any error demotes the dispatcher
// to the classical backend.
type NeuralLoader func(ctx context.Context, opts Options, logger *zap.Logger) (Model, error)

// LoadONNX is the default NeuralLoader: it ensures the weights are on disk
// and opens them with onnxruntime.
func LoadONNX(ctx context.Context, opts Options, logger *zap.Logger) (Model, error) {
	path := WeightsPath(opts.ModelDir, opts.ModelID, opts.ModelPath)
	if err := EnsureWeights(ctx, path, opts.ModelURL, logger); err != nil {
		return nil, err
	}
	return newONNXModel(path, opts.Device, opts.RuntimeLibrary)
}

// Outcome reports what Clean did to one region.
type Outcome struct {
	Region  detection.BoundingBox `json:"region"`
	Masked  int                   `json:"masked"`
	Written int                   `json:"written"`
	Backend string                `json:"backend,omitempty"`
	Skipped bool                  `json:"skipped,omitempty"`
	Err     error                 `json:"-"`
}

// Dispatcher removes text pixels from page regions with the backend resolved
// at construction.
//
// A Dispatcher is not safe for concurrent use on the same page; the page has
// a single writer.
type Dispatcher struct {
	opts      Options
	logger    *zap.Logger
	loader    NeuralLoader
	classical Backend
	active    Backend
	state     BackendState
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithNeuralLoader replaces LoadONNX.
func WithNeuralLoader(loader NeuralLoader) Option {
	return func(d *Dispatcher) { d.loader = loader }
}

// New resolves the backend state once.
//
// A neural backend that fails to load is logged once at WARN and the
// dispatcher uses the classical backend for its whole lifetime. New only
// returns an error for an unusable classical configuration.
func New(ctx context.Context, opts Options, options ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		opts:   opts,
		logger: zap.NewNop(),
		loader: LoadONNX,
	}
	for _, o := range options {
		o(d)
	}

	classical, err := d.newClassical()
	if err != nil {
		return nil, err
	}
	d.classical = classical
	d.active = classical
	d.state = BackendState{
		Requested: strings.ToLower(opts.Backend),
		Active:    BackendClassical,
		Backend:   classical.Name(),
	}

	if d.state.Requested != BackendNeural {
		return d, nil
	}

	model, err := d.loadNeural(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		d.state.FallbackReason = err.Error()
		d.logger.Warn("neural inpainting unavailable; using classical backend for this run",
			zap.String("model_id", opts.ModelID),
			zap.String("device", opts.Device),
			zap.String("fallback", classical.Name()),
			zap.Error(err))
		return d, nil
	}

	nb := newNeuralBackend("neural:"+opts.ModelID, model, opts.Stride)
	d.active = nb
	d.state.Active = BackendNeural
	d.state.Backend = nb.Name()
	d.state.ModelID = opts.ModelID
	d.state.Device = opts.Device
	d.logger.Info("neural inpainting ready",
		zap.String("model_id", opts.ModelID),
		zap.String("device", opts.Device))
	return d, nil
}

func (d *Dispatcher) newClassical() (Backend, error) {
	if strings.EqualFold(d.opts.Engine, EngineOpenCV) {
		b, err := newOpenCVBackend(d.opts.Algorithm, d.opts.Radius)
		if err == nil {
			return b, nil
		}
		d.logger.Warn("opencv engine unavailable; using builtin", zap.Error(err))
	}
	return NewClassical(d.opts.Algorithm, d.opts.Radius)
}

func (d *Dispatcher) loadNeural(ctx context.Context) (model Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			model, err = nil, fmt.Errorf("panic while loading model: %v", r)
		}
	}()
	if d.loader == nil {
		return nil, errors.New("no neural loader configured")
	}
	model, err = d.loader(ctx, d.opts, d.logger)
	if err == nil && model == nil {
		err = errors.New("loader returned no model")
	}
	return model, err
}

// State returns the resolved backend state.
func (d *Dispatcher) State() BackendState { return d.state }

// Clean removes the text in one region of page. It is a batch of one: any
// device cache is released before it returns.
func (d *Dispatcher) Clean(page draw.Image, region detection.BoundingBox) Outcome {
	defer d.releaseCache()
	return d.clean(page, region)
}

// CleanBatch cleans regions in order and releases device caches once at the
// end. Each region's result is the same as calling Clean on it at that
// point; a later region wins where two overlap.
func (d *Dispatcher) CleanBatch(page draw.Image, regions []detection.BoundingBox) []Outcome {
	defer d.releaseCache()
	out := make([]Outcome, 0, len(regions))
	for _, r := range regions {
		out = append(out, d.clean(page, r))
	}
	return out
}

// Close releases the neural model, if one was loaded.
func (d *Dispatcher) Close() error {
	if nb, ok := d.active.(*neuralBackend); ok {
		return nb.Close()
	}
	return nil
}

func (d *Dispatcher) releaseCache() {
	if r, ok := d.active.(cacheReleaser); ok {
		r.ReleaseCache()
	}
}

func (d *Dispatcher) clean(page draw.Image, region detection.BoundingBox) (out Outcome) {
	out.Region = region
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("panic while cleaning region %s: %v", region, r)
			d.logger.Error("region clean failed", zap.Stringer("region", region), zap.Error(out.Err))
		}
	}()

	crop, mask, at, err := Extract(page, region, d.opts.Mask)
	if errors.Is(err, ErrDegenerateRegion) {
		out.Skipped = true
		return out
	}
	if err != nil {
		out.Err = err
		d.logger.Error("region clean failed", zap.Stringer("region", region), zap.Error(err))
		return out
	}

	out.Masked = imaging.CountMasked(mask)
	if out.Masked == 0 {
		out.Skipped = true
		return out
	}

	result, name, err := d.inpaint(crop, mask, region)
	if err != nil {
		out.Err = err
		d.logger.Error("region clean failed", zap.Stringer("region", region), zap.Error(err))
		return out
	}
	out.Backend = name
	out.Written = imaging.BlendMasked(page, at, result, mask)
	return out
}

// inpaint runs the active backend. A neural failure on one region is
// retried with the classical backend for that region only.
func (d *Dispatcher) inpaint(crop *image.NRGBA, mask *image.Gray, region detection.BoundingBox) (*image.NRGBA, string, error) {
	result, err := d.active.Inpaint(crop, mask)
	if err == nil {
		return result, d.active.Name(), nil
	}
	if d.active == d.classical {
		return nil, "", fmt.Errorf("failed to inpaint with %s: %w", d.active.Name(), err)
	}
	d.logger.Warn("neural inpainting failed for region; using classical",
		zap.Stringer("region", region), zap.Error(err))
	result, err = d.classical.Inpaint(crop, mask)
	if err != nil {
		return nil, "", fmt.Errorf("failed to inpaint with %s: %w", d.classical.Name(), err)
	}
	return result, d.classical.Name(), nil
}

// Extract clips region to the page and returns its crop, its ink mask, and
// the page position of the crop's origin.
//
// It returns ErrDegenerateRegion for regions with non-positive area or no
// overlap with the page.
func Extract(page image.Image, region detection.BoundingBox, opts imaging.MaskOptions) (*image.NRGBA, *image.Gray, image.Point, error) {
	if !region.Valid() {
		return nil, nil, image.Point{}, ErrDegenerateRegion
	}
	r, ok := imaging.ClipRegion(page.Bounds(), region.Rect())
	if !ok {
		return nil, nil, image.Point{}, ErrDegenerateRegion
	}
	crop, err := imaging.CropRegion(page, r)
	if err != nil {
		return nil, nil, image.Point{}, fmt.Errorf("failed to crop region: %w", err)
	}
	if crop.Bounds().Empty() {
		return nil, nil, image.Point{}, ErrDegenerateRegion
	}
	return crop, imaging.TextMask(crop, opts), r.Min, nil
}
