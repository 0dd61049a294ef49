package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"math"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/color-tracker-mcp/internal/detection"
	"github.com/ironsheep/color-tracker-mcp/internal/imaging"
	"github.com/ironsheep/color-tracker-mcp/internal/signature"
	"github.com/ironsheep/color-tracker-mcp/internal/tracking"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "tracking_select", "tracking_tick").
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
		s.logger.Debug("tool failed", "tool", params.Name, "error", err)
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
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads frames from the cache, or fresh from disk for live frames
//  4. Calls into the signature, imaging or tracking packages
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Frames
	case "image_load":
		return s.handleImageLoad(args)

	// Signatures
	case "color_to_hsv":
		return s.handleColorToHSV(args)
	case "signature_extract":
		return s.handleSignatureExtract(args)
	case "signature_compare":
		return s.handleSignatureCompare(args)
	case "signature_compare_regions":
		return s.handleSignatureCompareRegions(args)

	// Tracking session
	case "tracking_select":
		return s.handleTrackingSelect(args)
	case "tracking_start":
		return s.handleTrackingStart()
	case "tracking_stop":
		return s.handleTrackingStop()
	case "tracking_tick":
		return s.handleTrackingTick(ctx, args)
	case "tracking_status":
		return s.handleTrackingStatus()
	case "tracking_overlay":
		return s.handleTrackingOverlay(args)

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
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

var errMissingPath = errors.New("path is required")

// === Frame Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}
	return imaging.LoadFrameInfo(s.cache, a.Path)
}

// === Signature Handlers ===

type colorToHSVArgs struct {
	R *int `json:"r"`
	G *int `json:"g"`
	B *int `json:"b"`
}

func (s *Server) handleColorToHSV(args json.RawMessage) (interface{}, error) {
	var a colorToHSVArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var rgb [3]uint8
	for i, c := range []struct {
		name string
		v    *int
	}{{"r", a.R}, {"g", a.G}, {"b", a.B}} {
		if c.v == nil {
			return nil, fmt.Errorf("%s is required", c.name)
		}
		if *c.v < 0 || *c.v > 255 {
			return nil, fmt.Errorf("%s must be between 0 and 255, got %d", c.name, *c.v)
		}
		rgb[i] = uint8(*c.v)
	}

	return signature.ToHSV(rgb[0], rgb[1], rgb[2]), nil
}

type signatureExtractArgs struct {
	Path   string            `json:"path"`
	Region *signature.Region `json:"region"`
}

type signatureExtractResult struct {
	signature.Signature
	Degenerate bool             `json:"degenerate"`
	Region     signature.Region `json:"region"`
}

func (s *Server) handleSignatureExtract(args json.RawMessage) (interface{}, error) {
	var a signatureExtractArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}
	frame, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	region := signature.RegionFromRect(frame.Bounds())
	buf := frame
	if a.Region != nil {
		region = *a.Region
		if buf, err = frame.Region(region); err != nil {
			return nil, err
		}
	}

	sig, err := s.tuning.Extractor().Extract(buf)
	if err != nil {
		return nil, err
	}
	return &signatureExtractResult{
		Signature:  sig,
		Degenerate: sig.Degenerate(),
		Region:     region,
	}, nil
}

type signatureCompareArgs struct {
	Reference *signature.Signature `json:"reference"`
	Candidate *signature.Signature `json:"candidate"`
}

type signatureCompareResult struct {
	Matched    bool           `json:"matched"`
	Difference float64        `json:"difference"`
	Confidence float64        `json:"confidence"`
	Tier       signature.Tier `json:"tier"`
}

func (s *Server) handleSignatureCompare(args json.RawMessage) (interface{}, error) {
	var a signatureCompareArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Reference == nil || a.Candidate == nil {
		return nil, errors.New("reference and candidate are required")
	}
	if err := checkSignature("reference", *a.Reference); err != nil {
		return nil, err
	}
	if err := checkSignature("candidate", *a.Candidate); err != nil {
		return nil, err
	}

	m, ok := s.tuning.Comparator().Compare(*a.Reference, *a.Candidate)
	return &signatureCompareResult{
		Matched:    ok,
		Difference: m.Difference,
		Confidence: m.Confidence,
		Tier:       m.Tier,
	}, nil
}

func checkSignature(name string, sig signature.Signature) error {
	if sig.Hue < 0 || sig.Hue >= 1 {
		return fmt.Errorf("%s hue must be in [0,1), got %g", name, sig.Hue)
	}
	if sig.Saturation < 0 || sig.Saturation > 1 {
		return fmt.Errorf("%s saturation must be in [0,1], got %g", name, sig.Saturation)
	}
	return nil
}

type signatureCompareRegionsArgs struct {
	Path    string           `json:"path"`
	Region1 signature.Region `json:"region1"`
	Region2 signature.Region `json:"region2"`
}

func (s *Server) handleSignatureCompareRegions(args json.RawMessage) (interface{}, error) {
	var a signatureCompareRegionsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}
	frame, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.CompareRegionSignatures(frame, a.Region1, a.Region2, s.tuning.Extractor(), s.tuning.Comparator())
}

// === Tracking Handlers ===

// guidanceView is the wire form of tracking.Guidance.
type guidanceView struct {
	Message           string  `json:"message"`
	Tier              string  `json:"tier"`
	Background        string  `json:"background"`
	BackgroundOpacity float64 `json:"background_opacity"`
	Stroke            string  `json:"stroke,omitempty"`
	LineWidth         int     `json:"line_width,omitempty"`
}

func newGuidanceView(g tracking.Guidance) *guidanceView {
	v := &guidanceView{
		Message:           g.Message,
		Tier:              g.Tier,
		Background:        hexColor(g.Background),
		BackgroundOpacity: math.Round(float64(g.Background.A)/255*100) / 100,
	}
	if g.Stroke.A > 0 {
		v.Stroke = hexColor(g.Stroke)
		v.LineWidth = g.LineWidth
	}
	return v
}

func hexColor(c color.RGBA) string {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hex()
}

// currentGuidance picks the guidance for the session state: nothing while
// stopped, the error of a rejected last tick, otherwise the last result.
func (s *Server) currentGuidance(st tracking.Status) *guidanceView {
	if !st.Tracking {
		return nil
	}
	if u := s.latestUpdate(); u.Err != nil {
		return newGuidanceView(tracking.ErrorGuidance(u.Err))
	}
	return newGuidanceView(tracking.GuidanceFor(st.LastResult))
}

type statusResult struct {
	tracking.Status
	Guidance *guidanceView `json:"guidance,omitempty"`
}

func (s *Server) status() *statusResult {
	st := s.session.Status()
	return &statusResult{Status: st, Guidance: s.currentGuidance(st)}
}

type trackingSelectArgs struct {
	Path         string           `json:"path"`
	Region       signature.Region `json:"region"`
	PreviewScale float64          `json:"preview_scale"`
}

type trackingSelectResult struct {
	Reference  *detection.Reference   `json:"reference"`
	Degenerate bool                   `json:"degenerate"`
	Preview    *imaging.PreviewResult `json:"preview,omitempty"`
}

func (s *Server) handleTrackingSelect(args json.RawMessage) (interface{}, error) {
	var a trackingSelectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}
	if a.PreviewScale < 0 {
		return nil, fmt.Errorf("preview_scale must not be negative, got %g", a.PreviewScale)
	}
	frame, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	ref, err := s.session.Select(frame, a.Region)
	if err != nil {
		return nil, err
	}
	s.recordUpdate(tracking.Update{})

	res := &trackingSelectResult{
		Reference:  ref,
		Degenerate: ref.Signature.Degenerate(),
	}
	if a.PreviewScale > 0 {
		if res.Preview, err = imaging.TargetPreview(frame, a.Region, a.PreviewScale); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *Server) handleTrackingStart() (interface{}, error) {
	if err := s.session.Start(); err != nil {
		return nil, err
	}
	return s.status(), nil
}

func (s *Server) handleTrackingStop() (interface{}, error) {
	err := s.session.Stop()
	s.recordUpdate(tracking.Update{})
	if err != nil {
		return nil, err
	}
	return s.status(), nil
}

type trackingTickArgs struct {
	Path  string `json:"path"`
	NowMS *int64 `json:"now_ms"`
}

type trackingTickResult struct {
	Fresh    bool              `json:"fresh"`
	ARActive bool              `json:"ar_active"`
	Result   *detection.Result `json:"result"`
	Guidance *guidanceView     `json:"guidance"`
}

func (s *Server) handleTrackingTick(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a trackingTickArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}

	now := time.Now()
	if a.NowMS != nil {
		now = time.UnixMilli(*a.NowMS)
	}

	// Live frames are re-read every tick; a camera may overwrite the file.
	frame, _, err := imaging.DecodeFrame(a.Path)
	if err != nil {
		return nil, err
	}

	u, err := s.session.Tick(ctx, now, frame)
	if err != nil {
		return nil, err
	}
	return &trackingTickResult{
		Fresh:    u.Fresh,
		ARActive: u.ARActive,
		Result:   u.Result,
		Guidance: newGuidanceView(tracking.GuidanceFor(u.Result)),
	}, nil
}

func (s *Server) handleTrackingStatus() (interface{}, error) {
	return s.status(), nil
}

type trackingOverlayArgs struct {
	Path string `json:"path"`
}

type trackingOverlayResult struct {
	*imaging.OverlayResult
	FocusRegion signature.Region `json:"focus_region"`
	Guidance    *guidanceView    `json:"guidance,omitempty"`
}

func (s *Server) handleTrackingOverlay(args json.RawMessage) (interface{}, error) {
	var a trackingOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}

	st := s.session.Status()
	if st.Reference == nil {
		return nil, tracking.ErrNoReference
	}

	frame, _, err := imaging.DecodeFrame(a.Path)
	if err != nil {
		return nil, err
	}
	focus, err := detection.FocusRegion(frame.Width, frame.Height, st.Reference.Region.Width, st.Reference.Region.Height)
	if err != nil {
		return nil, err
	}

	var box imaging.Box
	label := ""
	if res := st.LastResult; st.Tracking && res != nil && res.Matched {
		g := tracking.GuidanceFor(res)
		box = imaging.Box{Color: g.Stroke, Width: g.LineWidth}
		label = fmt.Sprintf("%d%%", int(math.Round(res.Confidence)))
	}

	overlay, err := imaging.RenderGuidance(frame, focus, box, label)
	if err != nil {
		return nil, err
	}
	return &trackingOverlayResult{
		OverlayResult: overlay,
		FocusRegion:   focus,
		Guidance:      s.currentGuidance(st),
	}, nil
}
