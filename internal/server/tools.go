package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the handwriting sample image",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Pipeline
		{
			Name:        "handwriting_analyze",
			Description: "Run the full handwriting analysis on a JPEG or PNG sample (at most 5 MiB) and return the verdict (Relapse Risk, Recovery or Inconclusive), the relapse and recovery scores, and all nine handwriting features. A failed text extraction is reported as {\"error\": ...}.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"subject_id": map[string]interface{}{
						"type":        "string",
						"description": "Subject the sample belongs to. Required when save is true",
					},
					"save": map[string]interface{}{
						"type":        "boolean",
						"description": "Store the result in the subject's history. Refused when the subject's last successful analysis is under 20 days old. Default false",
						"default":     false,
					},
					"detail": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the transcription, letter boxes and per-classifier probabilities. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},

		// Individual stages
		{
			Name:        "handwriting_locate_letters",
			Description: "Run OCR on a sample and report the word box chosen for each of the letters g, y, t, d and e, scanning each line left to right and taking at most one letter per word.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "handwriting_pressure",
			Description: "Estimate pen pressure from the mean grayscale intensity of a sample: below the low threshold is heavy, above the high threshold is light, otherwise medium.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"low_threshold": map[string]interface{}{
						"type":        "number",
						"description": "Override the configured low threshold (0-255)",
					},
					"high_threshold": map[string]interface{}{
						"type":        "number",
						"description": "Override the configured high threshold (0-255)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "handwriting_spacing",
			Description: "Run OCR on a sample and classify word spacing from the standard deviation of the horizontal gaps between adjacent words on each line.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "handwriting_crop_glyph",
			Description: "Crop a glyph from a sample and return it as base64-encoded PNG. Give either a letter (g, y, t, d or e) to crop the box OCR finds for it, or an explicit box.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"letter": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"g", "y", "t", "d", "e"},
						"description": "Target letter to locate with OCR",
					},
					"left": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (0-based)",
					},
					"top": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (0-based)",
					},
					"right": map[string]interface{}{
						"type":        "integer",
						"description": "Right edge X coordinate (exclusive)",
					},
					"bottom": map[string]interface{}{
						"type":        "integer",
						"description": "Bottom edge Y coordinate (exclusive)",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path"},
			},
		},

		// Sample information
		{
			Name:        "handwriting_image_info",
			Description: "Report a sample's dimensions, detected format, size and SHA-256, plus an ink profile: mean intensity, ink coverage and the average ink colour.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"ink_cutoff": map[string]interface{}{
						"type":        "integer",
						"description": "Luminance below which a pixel counts as ink (1-255). Default 128",
						"default":     128,
					},
				},
				"required": []string{"path"},
			},
		},

		// History
		{
			Name:        "handwriting_history",
			Description: "List a subject's stored analyses, newest first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"subject_id": map[string]interface{}{
						"type":        "string",
						"description": "Subject identifier",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of records. Default 20",
						"default":     20,
					},
				},
				"required": []string{"subject_id"},
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
