package main

import (
	"io"
	"log/slog"
)

// NewLogger returns a structured slog.Logger writing text to w.
// The server passes stderr; stdout carries the MCP protocol.
func NewLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
