package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/ironsheep/color-tracker-mcp/internal/config"
	"github.com/ironsheep/color-tracker-mcp/internal/imaging"
	"github.com/ironsheep/color-tracker-mcp/internal/tracking"
)

// Version is reported in the initialize handshake.
var Version = "dev"

// Server handles MCP protocol communication
type Server struct {
	cache   *imaging.FrameCache
	session *tracking.Session
	tuning  *config.TuningConfig
	logger  *slog.Logger

	// outMu serializes responses and notifications on the output stream.
	outMu sync.Mutex
	enc   *json.Encoder

	updMu      sync.Mutex
	lastUpdate tracking.Update
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// New creates a new MCP server instance. A nil tuning uses the defaults and
// a nil logger uses slog.Default().
func New(tuning *config.TuningConfig, logger *slog.Logger) *Server {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cache:  imaging.NewFrameCache(),
		tuning: tuning,
		logger: logger,
		enc:    json.NewEncoder(io.Discard),
	}
	s.session = tracking.NewSession(tracking.Options{
		Cycle:            tuning.Cycle(),
		MinSelectionSize: tuning.GetMinSelectionSize(),
		Activator:        &notifyActivator{s: s},
		Sink:             tracking.SinkFunc(s.recordUpdate),
		Logger:           logger.With("component", "tracking"),
	})
	return s
}

// Run serves MCP over stdin and stdout until stdin closes or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC message per line from in and writes responses
// and notifications to out.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.setOutput(out)
	defer func() {
		if err := s.session.Stop(); err != nil {
			s.logger.Warn("failed to stop tracking on shutdown", "error", err)
		}
	}()

	scanner := bufio.NewScanner(in)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", "error", err)
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := s.write(resp); err != nil {
				s.logger.Error("failed to encode response", "error", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

func (s *Server) setOutput(out io.Writer) {
	s.outMu.Lock()
	s.enc = json.NewEncoder(out)
	s.outMu.Unlock()
}

func (s *Server) write(v interface{}) error {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	return s.enc.Encode(v)
}

// notify sends a JSON-RPC notification to the client.
func (s *Server) notify(method string, params interface{}) error {
	return s.write(&MCPNotification{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "notifications/ar_ended":
		// The client closed the AR session; a later strong match may
		// trigger a new one.
		s.session.ARSessionEnded()
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "color-tracker-mcp",
				"version": Version,
			},
		},
	}
}

func (s *Server) recordUpdate(u tracking.Update) {
	s.updMu.Lock()
	s.lastUpdate = u
	s.updMu.Unlock()
}

func (s *Server) latestUpdate() tracking.Update {
	s.updMu.Lock()
	defer s.updMu.Unlock()
	return s.lastUpdate
}
