package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pathProperty is the schema shared by every tool that reads a frame file.
var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file (PNG, JPEG or GIF)",
}

// regionSchema describes a rectangle given by its top-left corner and size.
func regionSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"x":      map[string]interface{}{"type": "integer", "description": "Left edge X coordinate (0-based)"},
			"y":      map[string]interface{}{"type": "integer", "description": "Top edge Y coordinate (0-based)"},
			"width":  map[string]interface{}{"type": "integer", "description": "Width in pixels"},
			"height": map[string]interface{}{"type": "integer", "description": "Height in pixels"},
		},
		"required": []string{"x", "y", "width", "height"},
	}
}

// signatureSchema describes a color signature argument.
func signatureSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"hue":        map[string]interface{}{"type": "number", "description": "Hue in [0,1)"},
			"saturation": map[string]interface{}{"type": "number", "description": "Saturation in [0,1]"},
		},
		"required": []string{"hue", "saturation"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Frames
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The decoded frame is cached for later signature and selection calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Signatures
		{
			Name:        "color_to_hsv",
			Description: "Convert an 8-bit RGB color to HSV with hue, saturation and value all normalized to [0,1].",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"r": map[string]interface{}{"type": "integer", "description": "Red (0-255)"},
					"g": map[string]interface{}{"type": "integer", "description": "Green (0-255)"},
					"b": map[string]interface{}{"type": "integer", "description": "Blue (0-255)"},
				},
				"required": []string{"r", "g", "b"},
			},
		},
		{
			Name:        "signature_extract",
			Description: "Compute the brightness-invariant color signature (circular mean hue, mean saturation) of a region. Without a region the whole image is used.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty,
					"region": regionSchema("Optional region; defaults to the whole image"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "signature_compare",
			Description: "Compare a reference signature with a candidate. Returns the weighted difference, whether it is a match, and the confidence and tier of a match.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"reference": signatureSchema("Signature of the target"),
					"candidate": signatureSchema("Signature to test against the target"),
				},
				"required": []string{"reference", "candidate"},
			},
		},
		{
			Name:        "signature_compare_regions",
			Description: "Compare the color signatures of two regions of the same image, with region1 as the reference.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty,
					"region1": regionSchema("Reference region"),
					"region2": regionSchema("Candidate region"),
				},
				"required": []string{"path", "region1", "region2"},
			},
		},

		// Tracking session
		{
			Name:        "tracking_select",
			Description: "Select the target: extract the signature of a region of a frame and make it the session reference. Clears any previous result. Both sides must exceed the minimum selection size (default 10 px).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty,
					"region": regionSchema("Target region"),
					"preview_scale": map[string]interface{}{
						"type":        "number",
						"description": "Scale of the returned target preview; 0 omits the preview. Default 0",
						"default":     0,
					},
				},
				"required": []string{"path", "region"},
			},
		},
		{
			Name:        "tracking_start",
			Description: "Start tracking the selected target.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "tracking_stop",
			Description: "Stop tracking, clear the last result and release an active AR session.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "tracking_tick",
			Description: "Run one render-loop tick on a camera frame. The frame center is compared with the target at most once per detection interval; in between the last result is returned. A strong match starts AR via a notifications/ar_activate notification.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"now_ms": map[string]interface{}{
						"type":        "integer",
						"description": "Tick time in Unix milliseconds. Default: current time",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "tracking_status",
			Description: "Report the tracking state: reference, last result, AR state and guidance message.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "tracking_overlay",
			Description: "Draw the tracking guidance (dashed focus box, crosshair, tier-colored box and confidence) over a frame and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
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
