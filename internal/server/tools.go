package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func stringListProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": description,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Workbook Operations
		{
			Name:        "workbook_list_images",
			Description: "List the pictures embedded in a spreadsheet workbook (.xlsx, .xlsm or .xls) with their sheet, anchor cell, pixel offset and displayed size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   stringProp("Absolute path to the workbook"),
					"sheets": stringListProp("Sheet names to include. Omit for every sheet"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "workbook_mask",
			Description: "Find sensitive text (credentials, auth headers, secrets) in every picture of a workbook with OCR, cover it with opaque rectangles and write the result to a new workbook. Returns the run report.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"input":    stringProp("Absolute path to the source workbook"),
					"output":   stringProp("Absolute path for the masked workbook. Must differ from input"),
					"sheets":   stringListProp("Sheet names to process. Omit for every sheet"),
					"headers":  stringListProp("Header names to mask instead of the configured set"),
					"patterns": stringListProp("Regular expressions to mask instead of the configured set"),
					"on_error": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"passthrough", "skip", "fail"},
						"description": "What to do with a picture that cannot be processed",
					},
					"report": stringProp("Optional path for a JSON copy of the report"),
				},
				"required": []string{"input", "output"},
			},
		},

		// Single Image Operations
		{
			Name:        "image_detect_sensitive",
			Description: "Run OCR on one image file and report the rectangles of sensitive text and the patterns that matched. The matched text itself is not returned.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":     stringProp("Absolute path to the image file"),
					"headers":  stringListProp("Header names to look for instead of the configured set"),
					"patterns": stringListProp("Regular expressions to look for instead of the configured set"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_mask",
			Description: "Mask sensitive text in one image file and write the result, in the same format, to output.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":     stringProp("Absolute path to the image file"),
					"output":   stringProp("Absolute path for the masked image"),
					"headers":  stringListProp("Header names to mask instead of the configured set"),
					"patterns": stringListProp("Regular expressions to mask instead of the configured set"),
				},
				"required": []string{"path", "output"},
			},
		},

		// Engine
		{
			Name:        "ocr_info",
			Description: "Report whether the OCR engine is available for the configured language, and its version.",
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
