// Package server implements the MCP (Model Context Protocol) server for
// color-signature target tracking.
//
// This package provides a JSON-RPC 2.0 server that exposes signature
// extraction, signature comparison and a single tracking session through
// the MCP protocol. A client selects a target on a still frame, starts
// tracking, then feeds camera frames one tick at a time.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//   - notifications/ar_ended: The client closed its AR session
//
// Notifications sent by the server:
//   - notifications/ar_activate: A fresh strong match; start AR
//   - notifications/ar_release: Tracking stopped while AR was active
//
// # Available Tools
//
// Frames:
//   - image_load: Decode and cache a frame, report its metadata
//
// Signatures:
//   - color_to_hsv: Normalized HSV of an RGB triple
//   - signature_extract: Signature of a region or a whole frame
//   - signature_compare: Difference, match, confidence and tier
//   - signature_compare_regions: Compare two regions of one frame
//
// Tracking:
//   - tracking_select: Make a frame region the target
//   - tracking_start, tracking_stop: Begin and end tracking
//   - tracking_tick: One render-loop tick on a camera frame
//   - tracking_status: Session state and guidance
//   - tracking_overlay: Frame with the guidance drawn over it
//
// # Frame Caching
//
// Frames named by image_load, signature_* and tracking_select are cached by
// path for the lifetime of the process. Frames passed to tracking_tick and
// tracking_overlay are always read from disk, since a camera may keep
// rewriting the same file.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(tuning, logger)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
