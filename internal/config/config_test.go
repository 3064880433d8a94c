package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/page-compositor/internal/inpaint"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 25, cfg.Consolidate.DistanceThreshold)
	assert.Equal(t, 20, cfg.Layout.StartSize)
	assert.Equal(t, 14, cfg.Layout.MinSize)
	assert.Equal(t, inpaint.BackendNeural, cfg.Inpaint.Backend)
	assert.Equal(t, 16, cfg.Inpaint.Stride)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagecomp.yaml")
	doc := `
consolidate:
  distance_threshold: 10
layout:
  start_size: 28
  fill_color: "#202020"
inpaint:
  backend: classical
  algorithm: ns
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Consolidate.DistanceThreshold)
	assert.Equal(t, 28, cfg.Layout.StartSize)
	assert.Equal(t, 14, cfg.Layout.MinSize, "unset keys keep defaults")
	assert.Equal(t, "#202020", cfg.Layout.FillColor)
	assert.Equal(t, inpaint.BackendClassical, cfg.Inpaint.Backend)
	assert.Equal(t, inpaint.AlgorithmNS, cfg.Inpaint.Algorithm)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagecomp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"layout": {"start_size": 28}}`), 0o644))
	t.Setenv("PAGECOMP_LAYOUT_START_SIZE", "32")
	t.Setenv("PAGECOMP_INPAINT_DEVICE", "cuda:1")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Layout.StartSize)
	assert.Equal(t, "cuda:1", cfg.Inpaint.Device)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("layout:\n  min_size: 30\n"), 0o644))
		_, err := Load(path)
		assert.ErrorContains(t, err, "layout.start_size")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "min above start", mutate: func(c *Config) { c.Layout.MinSize = 25 }, want: "layout.start_size"},
		{name: "zero step", mutate: func(c *Config) { c.Layout.SizeStep = 0 }, want: "layout.size_step"},
		{name: "zero kernel", mutate: func(c *Config) { c.Mask.DilateKernel = 0 }, want: "mask.dilate_kernel"},
		{name: "fixed threshold range", mutate: func(c *Config) { c.Mask.FixedThreshold = 300 }, want: "mask.fixed_threshold"},
		{name: "guard threshold range", mutate: func(c *Config) { c.Mask.GuardThreshold = -1 }, want: "mask.guard_threshold"},
		{name: "unknown backend", mutate: func(c *Config) { c.Inpaint.Backend = "magic" }, want: "inpaint.backend"},
		{name: "unknown algorithm", mutate: func(c *Config) { c.Inpaint.Algorithm = "patchmatch" }, want: "inpaint.algorithm"},
		{name: "unknown engine", mutate: func(c *Config) { c.Inpaint.Engine = "gimp" }, want: "inpaint.engine"},
		{name: "zero stride", mutate: func(c *Config) { c.Inpaint.Stride = 0 }, want: "inpaint.stride"},
		{name: "zero radius", mutate: func(c *Config) { c.Inpaint.Radius = 0 }, want: "inpaint.radius"},
		{name: "bad color", mutate: func(c *Config) { c.Layout.StrokeColor = "#12" }, want: "layout.stroke_color"},
		{name: "negative spacing", mutate: func(c *Config) { c.Layout.LineSpacing = -1 }, want: "layout.line_spacing"},
		{name: "jpeg quality", mutate: func(c *Config) { c.Output.JPEGQuality = 0 }, want: "output.jpeg_quality"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidate_CaseInsensitiveNames(t *testing.T) {
	cfg := Default()
	cfg.Inpaint.Backend = "Classical"
	cfg.Inpaint.Algorithm = "TELEA"

	require.NoError(t, cfg.Validate())
	opts := cfg.InpaintOptions()
	assert.Equal(t, inpaint.BackendClassical, opts.Backend)
	assert.Equal(t, inpaint.AlgorithmTelea, opts.Algorithm)
}

func TestLayoutEngineConfig(t *testing.T) {
	cfg := Default()
	cfg.Layout.FontPath = "/fonts/comic.ttf"
	cfg.Layout.StrokeColor = "#ff0000"

	lc, err := cfg.LayoutEngineConfig()

	require.NoError(t, err)
	assert.Equal(t, "/fonts/comic.ttf", lc.FontPath)
	assert.Equal(t, 20, lc.StartSize)
	assert.Equal(t, 0.9, lc.LineSpacing)
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, lc.StrokeColor)
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, lc.FillColor)

	cfg.Layout.FillColor = "nope"
	_, err = cfg.LayoutEngineConfig()
	assert.Error(t, err)
}

func TestInpaintOptions(t *testing.T) {
	cfg := Default()
	cfg.Mask.Adaptive = false
	cfg.Mask.FixedThreshold = 180

	opts := cfg.InpaintOptions()

	assert.Equal(t, inpaint.DefaultOptions().ModelID, opts.ModelID)
	assert.Equal(t, 3, opts.Radius)
	assert.False(t, opts.Mask.UseAdaptive)
	assert.Equal(t, uint8(180), opts.Mask.FixedThreshold)
	assert.Equal(t, uint8(230), opts.Mask.GuardThreshold)
	assert.Equal(t, 3, opts.Mask.DilateKernel)
	assert.Equal(t, 2, opts.Mask.DilateIterations)
}
