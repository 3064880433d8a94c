// Package pipeline composites one page: it consolidates detected boxes,
// asks a translator for each region, cleans the regions and draws the
// translations.
//
// Every region is isolated. A translator error, a cleaning failure or a
// panic anywhere in a region's processing is logged and recorded on that
// region; the other regions and the page as a whole are unaffected.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ironsheep/page-compositor/internal/config"
	"github.com/ironsheep/page-compositor/internal/detection"
	"github.com/ironsheep/page-compositor/internal/inpaint"
	"github.com/ironsheep/page-compositor/internal/layout"
	"github.com/ironsheep/page-compositor/internal/translate"
)

// Region is the record of one consolidated region.
type Region struct {
	Index int                   `json:"index"`
	Box   detection.BoundingBox `json:"box"`
	Text  string                `json:"text"`

	// Cleaned is set when the region's ink was replaced. Regions without
	// ink are not cleaned and report Masked == 0.
	Cleaned bool   `json:"cleaned"`
	Masked  int    `json:"masked"`
	Backend string `json:"backend,omitempty"`

	Drawn    bool `json:"drawn"`
	FontSize int  `json:"font_size,omitempty"`
	Lines    int  `json:"lines,omitempty"`
	Overflow bool `json:"overflow,omitempty"`

	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

func (r *Region) fail(err error) {
	r.Err = err
	r.Error = err.Error()
}

// Result summarizes one ProcessPage call.
type Result struct {
	PageID  string               `json:"page_id"`
	Regions []Region             `json:"regions"`
	Backend inpaint.BackendState `json:"backend"`
	Elapsed time.Duration        `json:"elapsed"`
}

// Failed counts regions with an error.
func (r *Result) Failed() int {
	n := 0
	for _, reg := range r.Regions {
		if reg.Err != nil {
			n++
		}
	}
	return n
}

// Boxes returns the consolidated region boxes in processing order.
func (r *Result) Boxes() []detection.BoundingBox {
	out := make([]detection.BoundingBox, len(r.Regions))
	for i, reg := range r.Regions {
		out[i] = reg.Box
	}
	return out
}

// Pipeline holds the components for one run. It processes one page at a
// time and is not safe for concurrent use.
type Pipeline struct {
	threshold  int
	dispatcher *inpaint.Dispatcher
	engine     *layout.Engine
	logger     *zap.Logger
}

// New assembles a pipeline from already constructed components.
func New(cfg *config.Config, dispatcher *inpaint.Dispatcher, engine *layout.Engine, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		threshold:  cfg.Consolidate.DistanceThreshold,
		dispatcher: dispatcher,
		engine:     engine,
		logger:     logger,
	}
}

// Build constructs every component from cfg. A missing font or an
// unavailable neural backend degrades with a warning instead of failing.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, options ...inpaint.Option) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	lc, err := cfg.LayoutEngineConfig()
	if err != nil {
		return nil, err
	}

	fonts, err := layout.LoadFonts(lc.FontPath)
	if err != nil {
		if lc.FontPath != "" {
			logger.Warn("font unavailable; using built-in font",
				zap.String("font_path", lc.FontPath), zap.Error(err))
		}
	}

	options = append([]inpaint.Option{inpaint.WithLogger(logger)}, options...)
	dispatcher, err := inpaint.New(ctx, cfg.InpaintOptions(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create inpaint dispatcher: %w", err)
	}

	return New(cfg, dispatcher, layout.NewEngine(lc, fonts, logger), logger), nil
}

// Dispatcher returns the inpaint dispatcher.
func (p *Pipeline) Dispatcher() *inpaint.Dispatcher { return p.dispatcher }

// Engine returns the layout engine.
func (p *Pipeline) Engine() *layout.Engine { return p.engine }

// Threshold is the consolidation distance in pixels.
func (p *Pipeline) Threshold() int { return p.threshold }

// Close releases the inpaint backend.
func (p *Pipeline) Close() error { return p.dispatcher.Close() }

// Consolidate merges raw boxes at the configured threshold.
func (p *Pipeline) Consolidate(boxes []detection.BoundingBox) []detection.BoundingBox {
	return detection.Consolidate(boxes, p.threshold)
}

// ProcessPage composites translated text onto page in place.
//
// Boxes are consolidated first. Regions whose translation fails are left
// untouched. The remaining regions are cleaned as one batch, then every
// non-empty translation is drawn. Regions are handled in consolidation
// order; where two overlap the later one wins.
//
// ProcessPage always returns a result; per-region failures are in
// Result.Regions.
func (p *Pipeline) ProcessPage(ctx context.Context, page *image.RGBA, boxes []detection.BoundingBox, tr translate.Translator) *Result {
	start := time.Now()
	res := &Result{
		PageID:  uuid.NewString(),
		Backend: p.dispatcher.State(),
	}
	logger := p.logger.With(zap.String("page_id", res.PageID))

	merged := p.Consolidate(boxes)
	res.Regions = make([]Region, len(merged))
	for i, box := range merged {
		res.Regions[i] = Region{Index: i, Box: box}
	}
	logger.Debug("consolidated boxes",
		zap.Int("raw", len(boxes)),
		zap.Int("regions", len(merged)))

	var pending []int
	for i := range res.Regions {
		reg := &res.Regions[i]
		text, err := p.translate(ctx, tr, reg)
		if err != nil {
			reg.fail(fmt.Errorf("failed to translate region: %w", err))
			logger.Error("region skipped", zap.Stringer("region", reg.Box), zap.Error(err))
			continue
		}
		reg.Text = text
		pending = append(pending, i)
	}

	toClean := make([]detection.BoundingBox, len(pending))
	for j, i := range pending {
		toClean[j] = res.Regions[i].Box
	}
	for j, out := range p.dispatcher.CleanBatch(page, toClean) {
		reg := &res.Regions[pending[j]]
		reg.Masked = out.Masked
		reg.Backend = out.Backend
		reg.Cleaned = out.Err == nil && !out.Skipped
		if out.Err != nil {
			reg.fail(out.Err)
			logger.Error("region clean failed", zap.Stringer("region", reg.Box), zap.Error(out.Err))
		}
	}

	for _, i := range pending {
		reg := &res.Regions[i]
		if reg.Text == "" {
			continue
		}
		if err := p.draw(page, reg); err != nil {
			reg.fail(err)
			logger.Error("region draw failed", zap.Stringer("region", reg.Box), zap.Error(err))
		}
	}

	res.Elapsed = time.Since(start)
	logger.Info("page processed",
		zap.Int("regions", len(res.Regions)),
		zap.Int("failed", res.Failed()),
		zap.String("backend", res.Backend.Backend),
		zap.Duration("elapsed", res.Elapsed))
	return res
}

// Clean consolidates boxes and cleans every region without drawing.
func (p *Pipeline) Clean(page *image.RGBA, boxes []detection.BoundingBox) *Result {
	start := time.Now()
	res := &Result{
		PageID:  uuid.NewString(),
		Backend: p.dispatcher.State(),
	}
	merged := p.Consolidate(boxes)
	res.Regions = make([]Region, len(merged))
	for j, out := range p.dispatcher.CleanBatch(page, merged) {
		reg := Region{Index: j, Box: merged[j], Masked: out.Masked, Backend: out.Backend}
		reg.Cleaned = out.Err == nil && !out.Skipped
		if out.Err != nil {
			reg.fail(out.Err)
		}
		res.Regions[j] = reg
	}
	res.Elapsed = time.Since(start)
	return res
}

func (p *Pipeline) translate(ctx context.Context, tr translate.Translator, reg *Region) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in translator: %v", r)
		}
	}()
	if tr == nil {
		return "", errors.New("no translator configured")
	}
	return tr.Translate(ctx, reg.Index, reg.Box)
}

func (p *Pipeline) draw(page *image.RGBA, reg *Region) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while drawing region %s: %v", reg.Box, r)
		}
	}()
	l, err := p.engine.Draw(page, reg.Text, reg.Box)
	if err != nil {
		return fmt.Errorf("failed to draw text: %w", err)
	}
	reg.Drawn = len(l.Lines) > 0
	reg.FontSize = l.Size
	reg.Lines = len(l.Lines)
	reg.Overflow = l.Overflow
	return nil
}
