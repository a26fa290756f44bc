// Package server implements the MCP (Model Context Protocol) server for the
// handwriting analysis tools.
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
// Pipeline:
//   - handwriting_analyze: Full analysis, optionally saved to history
//
// Individual stages:
//   - handwriting_locate_letters: OCR word boxes chosen for g, y, t, d, e
//   - handwriting_pressure: Pen pressure from mean intensity
//   - handwriting_spacing: Word spacing from OCR gaps
//   - handwriting_crop_glyph: Crop a located letter or an explicit box
//
// Sample information:
//   - handwriting_image_info: Dimensions, format, digest and ink profile
//
// History:
//   - handwriting_history: A subject's stored analyses
//
// # Image Caching
//
// Samples are cached by path, raw bytes and decoded pixels both, for the
// lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// A failed analysis is a result, not a tool error: handwriting_analyze
// returns {"error": "..."} in its content.
//
// # Usage
//
//	srv := server.New(server.Options{Analyzer: a, OCR: engine, Thresholds: th, Store: store})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
