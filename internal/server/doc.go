// Package server exposes the page compositor as an MCP (Model Context
// Protocol) server.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - page_consolidate_boxes: Merge raw boxes into regions
//   - page_detect_boxes: Tesseract word boxes for a page
//   - page_clean_regions: Remove text inside regions
//   - page_render_text: Fit and draw text into regions
//   - page_compose: Consolidate, clean and draw in one call
//   - page_backend_status: Resolved inpainting backend, font and OCR status
//
// Tools that modify a page read it from path and write the result to
// output_path; the input file is never overwritten unless both paths are
// the same.
//
// # Backend State
//
// The server owns one pipeline for its whole lifetime. If the neural
// inpainting backend could not be loaded at startup, every call uses the
// classical backend and page_backend_status reports why.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// Failures inside a single region are not tool errors; they are reported in
// that region's entry of the result.
package server
