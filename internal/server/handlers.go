package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ironsheep/sheet-redact/internal/config"
	"github.com/ironsheep/sheet-redact/internal/detection"
	"github.com/ironsheep/sheet-redact/internal/imaging"
	"github.com/ironsheep/sheet-redact/internal/masking"
	"github.com/ironsheep/sheet-redact/internal/ocr"
	"github.com/ironsheep/sheet-redact/internal/patterns"
	"github.com/ironsheep/sheet-redact/internal/pipeline"
	"github.com/ironsheep/sheet-redact/internal/report"
	"github.com/ironsheep/sheet-redact/internal/workbook"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "workbook_mask").
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
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
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
	// Workbook Operations
	case "workbook_list_images":
		return s.handleWorkbookListImages(ctx, args)
	case "workbook_mask":
		return s.handleWorkbookMask(ctx, args)

	// Single Image Operations
	case "image_detect_sensitive":
		return s.handleImageDetectSensitive(ctx, args)
	case "image_mask":
		return s.handleImageMask(ctx, args)

	// Engine
	case "ocr_info":
		return s.handleOCRInfo(ctx)

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

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, v)
}

func (s *Server) requireEngine() (ocr.Engine, error) {
	if s.engine == nil {
		return nil, errors.New("no OCR engine configured")
	}
	return s.engine, nil
}

// patternsFor returns the server registry, or a new one when the call
// overrides headers or regexes.
func (s *Server) patternsFor(headers, regexes []string) (*patterns.Registry, error) {
	if len(headers) == 0 && len(regexes) == 0 && s.registry != nil {
		return s.registry, nil
	}
	return patterns.Compile(patterns.Options{
		Headers:          headers,
		Regexes:          patterns.RegexSpecs(regexes),
		RequireSeparator: s.cfg.RequireSeparator,
	})
}

// === Workbook Handlers ===

type workbookListArgs struct {
	Path   string   `json:"path"`
	Sheets []string `json:"sheets"`
}

type imageEntry struct {
	ImageID string          `json:"image_id"`
	Anchor  workbook.Anchor `json:"anchor"`
	Format  imaging.Format  `json:"format"`
	Width   int             `json:"width"`
	Height  int             `json:"height"`
	Bytes   int             `json:"bytes"`
	AltText string          `json:"alt_text,omitempty"`
}

func (s *Server) handleWorkbookListImages(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a workbookListArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}

	store, err := workbook.NewStore(a.Path, workbook.Options{
		LegacyBridge: s.cfg.LegacyBridge,
		SofficePath:  s.cfg.SofficePath,
		Logger:       s.logger.With("workbook"),
	})
	if err != nil {
		return nil, err
	}
	records, err := store.Extract(ctx, a.Path, a.Sheets)
	if err != nil {
		return nil, err
	}

	entries := make([]imageEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, imageEntry{
			ImageID: r.ID,
			Anchor:  r.Anchor,
			Format:  r.Format,
			Width:   r.Width,
			Height:  r.Height,
			Bytes:   len(r.Data),
			AltText: r.AltText,
		})
	}
	return map[string]interface{}{
		"path":   a.Path,
		"count":  len(entries),
		"images": entries,
	}, nil
}

type workbookMaskArgs struct {
	Input    string   `json:"input"`
	Output   string   `json:"output"`
	Sheets   []string `json:"sheets"`
	Headers  []string `json:"headers"`
	Patterns []string `json:"patterns"`
	OnError  string   `json:"on_error"`
	Report   string   `json:"report"`
}

func (s *Server) handleWorkbookMask(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a workbookMaskArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Input == "" || a.Output == "" {
		return nil, errors.New("input and output are required")
	}
	if a.Input == a.Output {
		return nil, errors.New("output must differ from input")
	}
	eng, err := s.requireEngine()
	if err != nil {
		return nil, err
	}
	reg, err := s.patternsFor(a.Headers, a.Patterns)
	if err != nil {
		return nil, err
	}

	cfg := *s.cfg
	if len(a.Sheets) > 0 {
		cfg.Sheets = a.Sheets
	}
	if a.OnError != "" {
		policy, err := config.ParseErrorPolicy(a.OnError)
		if err != nil {
			return nil, err
		}
		cfg.OnError = policy
	}

	orch, err := pipeline.New(&cfg, nil, eng, reg, s.logger.With("pipeline"))
	if err != nil {
		return nil, err
	}
	summary, err := orch.Run(ctx, a.Input, a.Output)
	if err != nil {
		return nil, err
	}

	rep := report.New(summary, reg.Names())
	if a.Report != "" {
		if err := report.WriteJSON(a.Report, rep); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

// === Single Image Handlers ===

type imageArgs struct {
	Path     string   `json:"path"`
	Output   string   `json:"output"`
	Headers  []string `json:"headers"`
	Patterns []string `json:"patterns"`
}

type spanEntry struct {
	Line     int      `json:"line"`
	X        int      `json:"x"`
	Y        int      `json:"y"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Patterns []string `json:"patterns"`
}

// analyzeImage reads an image file and runs recognition and detection on it.
func (s *Server) analyzeImage(ctx context.Context, a imageArgs) ([]byte, imaging.Format, detection.Result, error) {
	if a.Path == "" {
		return nil, imaging.Unknown, detection.Result{}, errors.New("path is required")
	}
	eng, err := s.requireEngine()
	if err != nil {
		return nil, imaging.Unknown, detection.Result{}, err
	}
	reg, err := s.patternsFor(a.Headers, a.Patterns)
	if err != nil {
		return nil, imaging.Unknown, detection.Result{}, err
	}

	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, imaging.Unknown, detection.Result{}, err
	}
	format, err := imaging.DetectFormat(data)
	if err != nil {
		return nil, imaging.Unknown, detection.Result{}, err
	}

	if s.cfg.OCRTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.OCRTimeout)
		defer cancel()
	}
	words, err := eng.Recognize(ctx, ocr.Input{ID: a.Path, Image: data, Language: s.cfg.Lang})
	if err != nil {
		return nil, imaging.Unknown, detection.Result{}, err
	}
	found := detection.NewDetector(reg, s.cfg.MinConfidence).Detect(words)
	return data, format, found, nil
}

func spanEntries(spans []detection.Span) []spanEntry {
	out := make([]spanEntry, 0, len(spans))
	for _, sp := range spans {
		b := sp.Bounds()
		out = append(out, spanEntry{
			Line:     sp.Line,
			X:        b.Min.X,
			Y:        b.Min.Y,
			Width:    b.Dx(),
			Height:   b.Dy(),
			Patterns: sp.Patterns,
		})
	}
	return out
}

func (s *Server) handleImageDetectSensitive(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	_, format, found, err := s.analyzeImage(ctx, a)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"path":   a.Path,
		"format": format,
		"lines":  len(found.Lines),
		"spans":  spanEntries(found.Spans),
	}, nil
}

func (s *Server) handleImageMask(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Output == "" {
		return nil, errors.New("output is required")
	}
	data, format, found, err := s.analyzeImage(ctx, a)
	if err != nil {
		return nil, err
	}

	fill, err := imaging.ParseColor(s.cfg.MaskColor)
	if err != nil {
		return nil, err
	}
	res, err := masking.NewMasker(s.cfg.Padding, fill).Mask(data, format, found.Spans)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(a.Output, res.Data, 0o644); err != nil {
		return nil, err
	}

	regions := make([]map[string]int, 0, len(res.Regions))
	for _, r := range masking.Rects(res.Regions) {
		regions = append(regions, map[string]int{"x": r.Min.X, "y": r.Min.Y, "width": r.Dx(), "height": r.Dy()})
	}
	return map[string]interface{}{
		"path":    a.Path,
		"output":  a.Output,
		"changed": res.Changed,
		"format":  res.Format,
		"regions": regions,
	}, nil
}

func (s *Server) handleOCRInfo(ctx context.Context) (interface{}, error) {
	eng, err := s.requireEngine()
	if err != nil {
		return nil, err
	}
	return ocr.GetInfo(ctx, eng, s.cfg.Lang), nil
}
