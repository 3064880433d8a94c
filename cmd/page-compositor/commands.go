package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ironsheep/page-compositor/internal/config"
	"github.com/ironsheep/page-compositor/internal/detection"
	"github.com/ironsheep/page-compositor/internal/imaging"
	"github.com/ironsheep/page-compositor/internal/logging"
	"github.com/ironsheep/page-compositor/internal/ocr"
	"github.com/ironsheep/page-compositor/internal/pipeline"
	"github.com/ironsheep/page-compositor/internal/server"
	"github.com/ironsheep/page-compositor/internal/translate"
)

// setup loads configuration and builds the logger.
func (g *Globals) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Logging.Format = g.LogFormat
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

// readBoxes decodes a JSON file of [x1, y1, x2, y2] arrays.
func readBoxes(path string) ([]detection.BoundingBox, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read boxes: %w", err)
	}
	var raw [][4]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse boxes in %s: %w", path, err)
	}
	boxes := make([]detection.BoundingBox, len(raw))
	for i, b := range raw {
		boxes[i] = detection.Box(b[0], b[1], b[2], b[3])
	}
	return boxes, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func regionRects(boxes []detection.BoundingBox) []image.Rectangle {
	rects := make([]image.Rectangle, len(boxes))
	for i, b := range boxes {
		rects[i] = b.Rect()
	}
	return rects
}

// RenderCmd runs the whole page: consolidate, clean, draw.
type RenderCmd struct {
	Image        string `arg:"" help:"Page image" type:"existingfile"`
	Boxes        string `help:"JSON file of raw text boxes [[x1,y1,x2,y2],...]" type:"existingfile"`
	Detect       bool   `help:"Detect text boxes with Tesseract (added to --boxes)"`
	Translations string `help:"JSON translations: array in region order or object keyed by \"x1,y1,x2,y2\"" type:"existingfile"`
	Raw          bool   `help:"Use translations as given, without stripping model artifacts"`
	Output       string `short:"o" required:"" help:"Output image path" type:"path"`
	Overlay      string `help:"Also write a copy of the input with the regions outlined" type:"path"`
}

// Validate requires some source of boxes.
func (c *RenderCmd) Validate() error {
	if c.Boxes == "" && !c.Detect {
		return errors.New("one of --boxes or --detect is required")
	}
	return nil
}

func (c *RenderCmd) Run(g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	p, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	page, err := imaging.LoadPage(imaging.NewImageCache(), c.Image)
	if err != nil {
		return err
	}

	var boxes []detection.BoundingBox
	if c.Boxes != "" {
		if boxes, err = readBoxes(c.Boxes); err != nil {
			return err
		}
	}
	if c.Detect {
		words, err := ocr.NewDetector(cfg.OCR.Language, cfg.OCR.MinConfidence).Detect(page)
		if err != nil {
			return fmt.Errorf("failed to detect text: %w", err)
		}
		logger.Info("detected words", zap.Int("count", len(words)))
		boxes = append(boxes, ocr.Boxes(words)...)
	}

	var tr translate.Translator = translate.NewStatic()
	if c.Translations != "" {
		static, err := translate.LoadStatic(c.Translations)
		if err != nil {
			return err
		}
		tr = static
	}
	if !c.Raw {
		tr = translate.Cleaned(tr)
	}

	var original *image.RGBA
	if c.Overlay != "" {
		original = imaging.ToPage(page)
	}

	res := p.ProcessPage(ctx, page, boxes, tr)
	if err := imaging.SavePage(c.Output, page, cfg.Output.JPEGQuality); err != nil {
		return err
	}
	if original != nil {
		overlay := imaging.DrawRegionOverlay(original, regionRects(res.Boxes()), imaging.MustParseColor("red"), 2)
		if err := imaging.SavePage(c.Overlay, overlay, cfg.Output.JPEGQuality); err != nil {
			return fmt.Errorf("failed to save overlay: %w", err)
		}
	}
	return printJSON(res)
}

// ConsolidateCmd prints consolidated regions.
type ConsolidateCmd struct {
	Boxes     string `required:"" help:"JSON file of raw text boxes" type:"existingfile"`
	Threshold int    `help:"Merge distance in pixels; negative uses the configured value" default:"-1"`
}

func (c *ConsolidateCmd) Run(g *Globals) error {
	cfg, _, err := g.setup()
	if err != nil {
		return err
	}
	boxes, err := readBoxes(c.Boxes)
	if err != nil {
		return err
	}
	threshold := cfg.Consolidate.DistanceThreshold
	if c.Threshold >= 0 {
		threshold = c.Threshold
	}
	regions := detection.Consolidate(boxes, threshold)
	out := make([][4]int, len(regions))
	for i, r := range regions {
		out[i] = [4]int{r.X1, r.Y1, r.X2, r.Y2}
	}
	return printJSON(out)
}

// CleanCmd removes text from regions and writes the result.
type CleanCmd struct {
	Image  string `arg:"" help:"Page image" type:"existingfile"`
	Boxes  string `required:"" help:"JSON file of raw text boxes" type:"existingfile"`
	Output string `short:"o" required:"" help:"Output image path" type:"path"`
}

func (c *CleanCmd) Run(g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	p, err := pipeline.Build(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	page, err := imaging.LoadPage(imaging.NewImageCache(), c.Image)
	if err != nil {
		return err
	}
	boxes, err := readBoxes(c.Boxes)
	if err != nil {
		return err
	}
	res := p.Clean(page, boxes)
	if err := imaging.SavePage(c.Output, page, cfg.Output.JPEGQuality); err != nil {
		return err
	}
	return printJSON(res)
}

// ServeCmd runs the MCP server.
type ServeCmd struct{}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	logger.Info("page-compositor MCP server starting",
		zap.String("version", Version),
		zap.String("backend", p.Dispatcher().State().Backend))
	return server.New(p, cfg, logger, Version).Run(ctx)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("page-compositor %s\n", Version)
	fmt.Printf("  Build time: %s\n", BuildTime)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	return nil
}
