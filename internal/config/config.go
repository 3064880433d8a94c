// Package config loads compositor settings from defaults, an optional config
// file and PAGECOMP_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ironsheep/page-compositor/internal/imaging"
	"github.com/ironsheep/page-compositor/internal/inpaint"
	"github.com/ironsheep/page-compositor/internal/layout"
)

// EnvPrefix is prepended to every environment variable. Nested keys use
// underscores: layout.start_size is PAGECOMP_LAYOUT_START_SIZE.
const EnvPrefix = "PAGECOMP"

// Config is the complete compositor configuration. Each section maps to
// one top-level key of the config file.
type Config struct {
	Consolidate ConsolidateConfig `mapstructure:"consolidate"`
	Layout      LayoutConfig      `mapstructure:"layout"`
	Mask        MaskConfig        `mapstructure:"mask"`
	Inpaint     InpaintConfig     `mapstructure:"inpaint"`
	OCR         OCRConfig         `mapstructure:"ocr"`
	Output      OutputConfig      `mapstructure:"output"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ConsolidateConfig controls box consolidation. DistanceThreshold is the
// expansion in pixels applied to each box before testing for overlap.
type ConsolidateConfig struct {
	DistanceThreshold int `mapstructure:"distance_threshold"`
}

// LayoutConfig holds the text fitting and rendering settings. Sizes are in
// pixels; colors use the forms accepted by imaging.ParseColor.
type LayoutConfig struct {
	FontPath    string  `mapstructure:"font_path"`
	StartSize   int     `mapstructure:"start_size"`
	MinSize     int     `mapstructure:"min_size"`
	SizeStep    int     `mapstructure:"size_step"`
	PaddingXPct float64 `mapstructure:"padding_x_pct"`
	PaddingYPct float64 `mapstructure:"padding_y_pct"`
	PaddingXMin int     `mapstructure:"padding_x_min"`
	PaddingYMin int     `mapstructure:"padding_y_min"`
	LineSpacing float64 `mapstructure:"line_spacing"`
	StrokeWidth int     `mapstructure:"stroke_width"`
	StrokeColor string  `mapstructure:"stroke_color"`
	FillColor   string  `mapstructure:"fill_color"`
}

// MaskConfig controls ink mask extraction. Thresholds are 0-255 and are
// checked by Validate before conversion to imaging.MaskOptions.
type MaskConfig struct {
	Adaptive         bool `mapstructure:"adaptive"`
	FixedThreshold   int  `mapstructure:"fixed_threshold"`
	GuardThreshold   int  `mapstructure:"guard_threshold"`
	DilateKernel     int  `mapstructure:"dilate_kernel"`
	DilateIterations int  `mapstructure:"dilate_iterations"`
}

// InpaintConfig selects and configures the cleaning backend.
//
// Backend is "classical" or "neural". Algorithm and Engine apply to the
// classical backend; the Model* fields, Device, RuntimeLibrary and Stride
// apply to the neural backend. ModelPath wins over ModelDir/ModelID.
type InpaintConfig struct {
	Backend        string `mapstructure:"backend"`
	Algorithm      string `mapstructure:"algorithm"`
	Radius         int    `mapstructure:"radius"`
	Engine         string `mapstructure:"engine"`
	ModelID        string `mapstructure:"model_id"`
	ModelDir       string `mapstructure:"model_dir"`
	ModelPath      string `mapstructure:"model_path"`
	ModelURL       string `mapstructure:"model_url"`
	Device         string `mapstructure:"device"`
	RuntimeLibrary string `mapstructure:"runtime_library"`
	Stride         int    `mapstructure:"stride"`
}

// OCRConfig configures the optional Tesseract box detector.
type OCRConfig struct {
	Language      string  `mapstructure:"language"`
	MinConfidence float64 `mapstructure:"min_confidence"`
}

// OutputConfig controls how composed pages are written.
type OutputConfig struct {
	JPEGQuality int `mapstructure:"jpeg_quality"`
}

// LoggingConfig selects the log level and the "console" or "json" encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Consolidate: ConsolidateConfig{DistanceThreshold: 25},
		Layout: LayoutConfig{
			StartSize:   20,
			MinSize:     14,
			SizeStep:    1,
			PaddingXPct: 0.15,
			PaddingYPct: 0.02,
			PaddingXMin: 8,
			PaddingYMin: 4,
			LineSpacing: 0.9,
			StrokeWidth: 2,
			StrokeColor: "#ffffff",
			FillColor:   "#000000",
		},
		Mask: MaskConfig{
			Adaptive:         true,
			FixedThreshold:   200,
			GuardThreshold:   imaging.DefaultGuardThreshold,
			DilateKernel:     3,
			DilateIterations: 2,
		},
		Inpaint: InpaintConfig{
			Backend:   inpaint.BackendNeural,
			Algorithm: inpaint.AlgorithmTelea,
			Radius:    3,
			Engine:    inpaint.EngineBuiltin,
			ModelID:   "lama-manga",
			ModelDir:  "models",
			Device:    "cpu",
			Stride:    inpaint.DefaultStride,
		},
		OCR: OCRConfig{
			Language:      "eng",
			MinConfidence: 0.20,
		},
		Output:  OutputConfig{JPEGQuality: 95},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load builds the configuration. path may be empty; otherwise it names a
// config file in any format viper understands.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment variables can override
// values that no config file mentions.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("consolidate.distance_threshold", d.Consolidate.DistanceThreshold)

	v.SetDefault("layout.font_path", d.Layout.FontPath)
	v.SetDefault("layout.start_size", d.Layout.StartSize)
	v.SetDefault("layout.min_size", d.Layout.MinSize)
	v.SetDefault("layout.size_step", d.Layout.SizeStep)
	v.SetDefault("layout.padding_x_pct", d.Layout.PaddingXPct)
	v.SetDefault("layout.padding_y_pct", d.Layout.PaddingYPct)
	v.SetDefault("layout.padding_x_min", d.Layout.PaddingXMin)
	v.SetDefault("layout.padding_y_min", d.Layout.PaddingYMin)
	v.SetDefault("layout.line_spacing", d.Layout.LineSpacing)
	v.SetDefault("layout.stroke_width", d.Layout.StrokeWidth)
	v.SetDefault("layout.stroke_color", d.Layout.StrokeColor)
	v.SetDefault("layout.fill_color", d.Layout.FillColor)

	v.SetDefault("mask.adaptive", d.Mask.Adaptive)
	v.SetDefault("mask.fixed_threshold", d.Mask.FixedThreshold)
	v.SetDefault("mask.guard_threshold", d.Mask.GuardThreshold)
	v.SetDefault("mask.dilate_kernel", d.Mask.DilateKernel)
	v.SetDefault("mask.dilate_iterations", d.Mask.DilateIterations)

	v.SetDefault("inpaint.backend", d.Inpaint.Backend)
	v.SetDefault("inpaint.algorithm", d.Inpaint.Algorithm)
	v.SetDefault("inpaint.radius", d.Inpaint.Radius)
	v.SetDefault("inpaint.engine", d.Inpaint.Engine)
	v.SetDefault("inpaint.model_id", d.Inpaint.ModelID)
	v.SetDefault("inpaint.model_dir", d.Inpaint.ModelDir)
	v.SetDefault("inpaint.model_path", d.Inpaint.ModelPath)
	v.SetDefault("inpaint.model_url", d.Inpaint.ModelURL)
	v.SetDefault("inpaint.device", d.Inpaint.Device)
	v.SetDefault("inpaint.runtime_library", d.Inpaint.RuntimeLibrary)
	v.SetDefault("inpaint.stride", d.Inpaint.Stride)

	v.SetDefault("ocr.language", d.OCR.Language)
	v.SetDefault("ocr.min_confidence", d.OCR.MinConfidence)

	v.SetDefault("output.jpeg_quality", d.Output.JPEGQuality)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Consolidate.DistanceThreshold >= 0, "consolidate.distance_threshold must be >= 0, got %d", c.Consolidate.DistanceThreshold)

	l := c.Layout
	check(l.MinSize >= 1, "layout.min_size must be >= 1, got %d", l.MinSize)
	check(l.StartSize >= l.MinSize, "layout.start_size (%d) must be >= layout.min_size (%d)", l.StartSize, l.MinSize)
	check(l.SizeStep >= 1, "layout.size_step must be >= 1, got %d", l.SizeStep)
	check(l.PaddingXPct >= 0 && l.PaddingXPct < 0.5, "layout.padding_x_pct must be in [0, 0.5), got %g", l.PaddingXPct)
	check(l.PaddingYPct >= 0 && l.PaddingYPct < 0.5, "layout.padding_y_pct must be in [0, 0.5), got %g", l.PaddingYPct)
	check(l.PaddingXMin >= 0 && l.PaddingYMin >= 0, "layout padding floors must be >= 0")
	check(l.LineSpacing > 0, "layout.line_spacing must be > 0, got %g", l.LineSpacing)
	check(l.StrokeWidth >= 0, "layout.stroke_width must be >= 0, got %d", l.StrokeWidth)
	if _, err := imaging.ParseColor(l.StrokeColor); err != nil {
		errs = append(errs, fmt.Errorf("layout.stroke_color: %w", err))
	}
	if _, err := imaging.ParseColor(l.FillColor); err != nil {
		errs = append(errs, fmt.Errorf("layout.fill_color: %w", err))
	}

	m := c.Mask
	check(inByteRange(m.FixedThreshold), "mask.fixed_threshold must be in 0..255, got %d", m.FixedThreshold)
	check(inByteRange(m.GuardThreshold), "mask.guard_threshold must be in 0..255, got %d", m.GuardThreshold)
	check(m.DilateKernel >= 1, "mask.dilate_kernel must be >= 1, got %d", m.DilateKernel)
	check(m.DilateIterations >= 0, "mask.dilate_iterations must be >= 0, got %d", m.DilateIterations)

	p := c.Inpaint
	check(oneOf(p.Backend, inpaint.BackendNeural, inpaint.BackendClassical), "inpaint.backend must be %q or %q, got %q", inpaint.BackendNeural, inpaint.BackendClassical, p.Backend)
	check(oneOf(p.Algorithm, inpaint.AlgorithmTelea, inpaint.AlgorithmNS), "inpaint.algorithm must be %q or %q, got %q", inpaint.AlgorithmTelea, inpaint.AlgorithmNS, p.Algorithm)
	check(oneOf(p.Engine, inpaint.EngineBuiltin, inpaint.EngineOpenCV), "inpaint.engine must be %q or %q, got %q", inpaint.EngineBuiltin, inpaint.EngineOpenCV, p.Engine)
	check(p.Radius >= 1, "inpaint.radius must be >= 1, got %d", p.Radius)
	check(p.Stride >= 1, "inpaint.stride must be >= 1, got %d", p.Stride)

	check(c.OCR.MinConfidence >= 0 && c.OCR.MinConfidence <= 1, "ocr.min_confidence must be in [0, 1], got %g", c.OCR.MinConfidence)
	check(c.Output.JPEGQuality >= 1 && c.Output.JPEGQuality <= 100, "output.jpeg_quality must be in 1..100, got %d", c.Output.JPEGQuality)

	return errors.Join(errs...)
}

// LayoutEngineConfig converts the layout section for layout.NewEngine.
func (c *Config) LayoutEngineConfig() (layout.Config, error) {
	stroke, err := imaging.ParseColor(c.Layout.StrokeColor)
	if err != nil {
		return layout.Config{}, fmt.Errorf("failed to parse stroke color: %w", err)
	}
	fill, err := imaging.ParseColor(c.Layout.FillColor)
	if err != nil {
		return layout.Config{}, fmt.Errorf("failed to parse fill color: %w", err)
	}
	l := c.Layout
	return layout.Config{
		FontPath:    l.FontPath,
		StartSize:   l.StartSize,
		MinSize:     l.MinSize,
		SizeStep:    l.SizeStep,
		PaddingXPct: l.PaddingXPct,
		PaddingYPct: l.PaddingYPct,
		PaddingXMin: l.PaddingXMin,
		PaddingYMin: l.PaddingYMin,
		LineSpacing: l.LineSpacing,
		StrokeWidth: l.StrokeWidth,
		StrokeColor: stroke,
		FillColor:   fill,
	}, nil
}

// MaskOptions converts the mask section. Call Validate first; thresholds
// outside 0..255 are clamped.
func (c *Config) MaskOptions() imaging.MaskOptions {
	return imaging.MaskOptions{
		UseAdaptive:      c.Mask.Adaptive,
		FixedThreshold:   toByte(c.Mask.FixedThreshold),
		GuardThreshold:   toByte(c.Mask.GuardThreshold),
		DilateKernel:     c.Mask.DilateKernel,
		DilateIterations: c.Mask.DilateIterations,
	}
}

// InpaintOptions converts the inpaint and mask sections for inpaint.New.
func (c *Config) InpaintOptions() inpaint.Options {
	p := c.Inpaint
	return inpaint.Options{
		Backend:        strings.ToLower(p.Backend),
		Algorithm:      strings.ToLower(p.Algorithm),
		Radius:         p.Radius,
		Engine:         strings.ToLower(p.Engine),
		ModelID:        p.ModelID,
		ModelDir:       p.ModelDir,
		ModelPath:      p.ModelPath,
		ModelURL:       p.ModelURL,
		Device:         p.Device,
		RuntimeLibrary: p.RuntimeLibrary,
		Stride:         p.Stride,
		Mask:           c.MaskOptions(),
	}
}

func inByteRange(v int) bool { return v >= 0 && v <= 255 }

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if strings.EqualFold(v, o) {
			return true
		}
	}
	return false
}

func toByte(v int) uint8 {
	return uint8(min(max(v, 0), 255))
}
