// Package server exposes sheet-redact as an MCP (Model Context Protocol)
// server so that assistants can list and mask workbook pictures.
//
// # Protocol
//
// The server speaks JSON-RPC 2.0 over stdio, one request per line:
//   - initialize: protocol handshake
//   - tools/list: enumerate available tools
//   - tools/call: execute a tool with arguments
//   - ping: health check
//
// # Tools
//
//   - workbook_list_images: pictures of a workbook with their anchors
//   - workbook_mask: mask a workbook and return the run report
//   - image_detect_sensitive: OCR lines and sensitive spans of one image file
//   - image_mask: mask one image file
//   - ocr_info: OCR engine availability
//
// Tool results never include the recognized text of a sensitive span, only
// its rectangle and the names of the patterns that matched.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and the Go error string as data.
package server
