package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/page-compositor/internal/detection"
	"github.com/ironsheep/page-compositor/internal/imaging"
	"github.com/ironsheep/page-compositor/internal/inpaint"
	"github.com/ironsheep/page-compositor/internal/layout"
	"github.com/ironsheep/page-compositor/internal/ocr"
	"github.com/ironsheep/page-compositor/internal/pipeline"
	"github.com/ironsheep/page-compositor/internal/translate"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "page_compose").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "page_consolidate_boxes":
		return s.handleConsolidateBoxes(args)
	case "page_detect_boxes":
		return s.handleDetectBoxes(args)
	case "page_clean_regions":
		return s.handleCleanRegions(args)
	case "page_render_text":
		return s.handleRenderText(args)
	case "page_compose":
		return s.handleCompose(ctx, args)
	case "page_backend_status":
		return s.handleBackendStatus()
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// boxList is the [[x1, y1, x2, y2], ...] form detectors emit.
type boxList [][4]int

func (l boxList) boxes() []detection.BoundingBox {
	out := make([]detection.BoundingBox, len(l))
	for i, b := range l {
		out[i] = detection.Box(b[0], b[1], b[2], b[3])
	}
	return out
}

func toBoxList(boxes []detection.BoundingBox) boxList {
	out := make(boxList, len(boxes))
	for i, b := range boxes {
		out[i] = [4]int{b.X1, b.Y1, b.X2, b.Y2}
	}
	return out
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return errors.New("missing arguments")
	}
	return json.Unmarshal(args, v)
}

func (s *Server) loadPage(path string) (*image.RGBA, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	return imaging.LoadPage(s.cache, path)
}

func (s *Server) savePage(path string, page image.Image) error {
	if path == "" {
		return errors.New("output_path is required")
	}
	if err := imaging.SavePage(path, page, s.cfg.Output.JPEGQuality); err != nil {
		return err
	}
	s.cache.Evict(path)
	return nil
}

// === Region Handlers ===

type consolidateArgs struct {
	Boxes     boxList `json:"boxes"`
	Threshold *int    `json:"threshold"`
}

type consolidateResult struct {
	Regions boxList `json:"regions"`
	Count   int     `json:"count"`
	Input   int     `json:"input"`
}

func (s *Server) handleConsolidateBoxes(args json.RawMessage) (interface{}, error) {
	var a consolidateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	threshold := s.pipeline.Threshold()
	if a.Threshold != nil {
		if *a.Threshold < 0 {
			return nil, fmt.Errorf("threshold must be >= 0, got %d", *a.Threshold)
		}
		threshold = *a.Threshold
	}
	regions := detection.Consolidate(a.Boxes.boxes(), threshold)
	return consolidateResult{Regions: toBoxList(regions), Count: len(regions), Input: len(a.Boxes)}, nil
}

type detectArgs struct {
	Path          string   `json:"path"`
	Language      string   `json:"language"`
	MinConfidence *float64 `json:"min_confidence"`
}

type detectResult struct {
	Words   []ocr.Word `json:"words"`
	Boxes   boxList    `json:"boxes"`
	Regions boxList    `json:"regions"`
}

func (s *Server) handleDetectBoxes(args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	d := *s.detector
	if a.Language != "" {
		d.Language = a.Language
	}
	if a.MinConfidence != nil {
		d.MinConfidence = *a.MinConfidence
	}
	words, err := d.Detect(img)
	if err != nil {
		return nil, err
	}
	boxes := ocr.Boxes(words)
	return detectResult{
		Words:   words,
		Boxes:   toBoxList(boxes),
		Regions: toBoxList(s.pipeline.Consolidate(boxes)),
	}, nil
}

type cleanArgs struct {
	Path       string  `json:"path"`
	OutputPath string  `json:"output_path"`
	Boxes      boxList `json:"boxes"`
}

func (s *Server) handleCleanRegions(args json.RawMessage) (interface{}, error) {
	var a cleanArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	page, err := s.loadPage(a.Path)
	if err != nil {
		return nil, err
	}
	res := s.pipeline.Clean(page, a.Boxes.boxes())
	if err := s.savePage(a.OutputPath, page); err != nil {
		return nil, err
	}
	return res, nil
}

type renderRegion struct {
	Box  [4]int `json:"box"`
	Text string `json:"text"`
}

type renderArgs struct {
	Path       string         `json:"path"`
	OutputPath string         `json:"output_path"`
	Regions    []renderRegion `json:"regions"`
}

type renderedRegion struct {
	Box    [4]int        `json:"box"`
	Layout layout.Layout `json:"layout"`
	Error  string        `json:"error,omitempty"`
}

func (s *Server) handleRenderText(args json.RawMessage) (interface{}, error) {
	var a renderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	page, err := s.loadPage(a.Path)
	if err != nil {
		return nil, err
	}

	out := make([]renderedRegion, 0, len(a.Regions))
	for _, r := range a.Regions {
		box := detection.Box(r.Box[0], r.Box[1], r.Box[2], r.Box[3])
		l, err := s.drawRegion(page, r.Text, box)
		rr := renderedRegion{Box: r.Box, Layout: l}
		if err != nil {
			rr.Error = err.Error()
		}
		out = append(out, rr)
	}
	if err := s.savePage(a.OutputPath, page); err != nil {
		return nil, err
	}
	return map[string]interface{}{"regions": out}, nil
}

// drawRegion draws one region, turning a panic in the renderer into an
// error so a single bad region cannot take down the server.
func (s *Server) drawRegion(page *image.RGBA, text string, box detection.BoundingBox) (l layout.Layout, err error) {
	defer func() {
		if r := recover(); r != nil {
			l = layout.Layout{}
			err = fmt.Errorf("panic while drawing region %s: %v", box, r)
		}
	}()
	return s.pipeline.Engine().Draw(page, text, box)
}

type composeArgs struct {
	Path         string          `json:"path"`
	OutputPath   string          `json:"output_path"`
	Boxes        boxList         `json:"boxes"`
	Detect       bool            `json:"detect"`
	Translations json.RawMessage `json:"translations"`
	Clean        *bool           `json:"clean_output"`
	OverlayPath  string          `json:"overlay_path"`
}

func (s *Server) handleCompose(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a composeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	page, err := s.loadPage(a.Path)
	if err != nil {
		return nil, err
	}

	boxes := a.Boxes.boxes()
	if a.Detect {
		words, err := s.detector.Detect(page)
		if err != nil {
			return nil, fmt.Errorf("failed to detect text: %w", err)
		}
		boxes = append(boxes, ocr.Boxes(words)...)
	}

	var tr translate.Translator = translate.NewStatic()
	if len(a.Translations) > 0 {
		static, err := translate.ParseStatic(a.Translations)
		if err != nil {
			return nil, err
		}
		tr = static
	}
	if a.Clean == nil || *a.Clean {
		tr = translate.Cleaned(tr)
	}

	var overlaySource *image.RGBA
	if a.OverlayPath != "" {
		overlaySource = imaging.ToPage(page)
	}

	res := s.pipeline.ProcessPage(ctx, page, boxes, tr)
	if err := s.savePage(a.OutputPath, page); err != nil {
		return nil, err
	}
	if overlaySource != nil {
		overlay := imaging.DrawRegionOverlay(overlaySource, regionRects(res), imaging.MustParseColor("red"), 2)
		if err := s.savePage(a.OverlayPath, overlay); err != nil {
			return nil, fmt.Errorf("failed to save overlay: %w", err)
		}
	}
	return res, nil
}

func regionRects(res *pipeline.Result) []image.Rectangle {
	rects := make([]image.Rectangle, len(res.Regions))
	for i, r := range res.Regions {
		rects[i] = r.Box.Rect()
	}
	return rects
}

type backendStatus struct {
	Version  string               `json:"version"`
	Inpaint  inpaint.BackendState `json:"inpaint"`
	Font     string               `json:"font"`
	Fallback bool                 `json:"font_fallback"`
	OCR      ocr.Info             `json:"ocr"`
}

func (s *Server) handleBackendStatus() (interface{}, error) {
	fonts := s.pipeline.Engine().Fonts()
	return backendStatus{
		Version:  s.version,
		Inpaint:  s.pipeline.Dispatcher().State(),
		Font:     fonts.Name(),
		Fallback: fonts.Fallback(),
		OCR:      ocr.GetInfo(),
	}, nil
}
