package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var boxesSchema = map[string]interface{}{
	"type":        "array",
	"description": "Raw text boxes as [x1, y1, x2, y2] with exclusive x2/y2",
	"items": map[string]interface{}{
		"type":     "array",
		"items":    map[string]interface{}{"type": "integer"},
		"minItems": 4,
		"maxItems": 4,
	},
}

func pathProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "page_consolidate_boxes",
			Description: "Merge raw detected text boxes into disjoint regions. Boxes closer than the threshold (in pixels) end up in the same region; the result does not depend on input order.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"boxes": boxesSchema,
					"threshold": map[string]interface{}{
						"type":        "integer",
						"description": "Merge distance in pixels. Default from configuration (25)",
						"minimum":     0,
					},
				},
				"required": []string{"boxes"},
			},
		},
		{
			Name:        "page_detect_boxes",
			Description: "Detect word boxes on a page with Tesseract, filtered by confidence. Returns the raw boxes and their consolidated regions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the page image"),
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code (e.g., 'eng', 'jpn'). Default from configuration",
					},
					"min_confidence": map[string]interface{}{
						"type":        "number",
						"description": "Minimum word confidence (0.0-1.0). Default 0.2",
						"minimum":     0,
						"maximum":     1,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "page_clean_regions",
			Description: "Consolidate boxes and remove the text inside each region with the active inpainting backend. Pixels outside the regions are never changed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty("Absolute path to the page image"),
					"output_path": pathProperty("Where to write the cleaned page; the format follows the extension"),
					"boxes":       boxesSchema,
				},
				"required": []string{"path", "output_path", "boxes"},
			},
		},
		{
			Name:        "page_render_text",
			Description: "Fit and draw text into regions of an already cleaned page. The font size shrinks until the wrapped block fits; text that never fits is drawn at the minimum size and reported as overflow.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty("Absolute path to the page image"),
					"output_path": pathProperty("Where to write the rendered page"),
					"regions": map[string]interface{}{
						"type":        "array",
						"description": "Regions with the text to draw in each",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"box": map[string]interface{}{
									"type":     "array",
									"items":    map[string]interface{}{"type": "integer"},
									"minItems": 4,
									"maxItems": 4,
								},
								"text": map[string]interface{}{"type": "string"},
							},
							"required": []string{"box", "text"},
						},
					},
				},
				"required": []string{"path", "output_path", "regions"},
			},
		},
		{
			Name:        "page_compose",
			Description: "Run the whole page: consolidate boxes, clean every translated region and draw its translation. Regions whose translation is missing are cleaned but left blank.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty("Absolute path to the page image"),
					"output_path": pathProperty("Where to write the composited page"),
					"boxes":       boxesSchema,
					"detect": map[string]interface{}{
						"type":        "boolean",
						"description": "Add Tesseract word boxes to the given boxes. Default false",
						"default":     false,
					},
					"translations": map[string]interface{}{
						"description": "Either an array of strings in region order or an object keyed by \"x1,y1,x2,y2\" of the consolidated region",
						"oneOf": []interface{}{
							map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
							map[string]interface{}{"type": "object", "additionalProperties": map[string]interface{}{"type": "string"}},
						},
					},
					"clean_output": map[string]interface{}{
						"type":        "boolean",
						"description": "Strip <think> blocks, labels and quotes from translations. Default true",
						"default":     true,
					},
					"overlay_path": pathProperty("Optional path for a copy of the input page with the regions outlined"),
				},
				"required": []string{"path", "output_path"},
			},
		},
		{
			Name:        "page_backend_status",
			Description: "Report the resolved inpainting backend (and why it fell back, if it did), the active font and Tesseract availability.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
