package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/color-tracker-mcp/internal/config"
	"github.com/ironsheep/color-tracker-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version, --help and subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("color-tracker-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	logger := NewLogger(os.Stderr, config.LogLevelFromEnv())

	tuning, err := config.FromEnv()
	if err != nil {
		logger.Error("failed to load tuning config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "watch" {
		if err := runWatch(ctx, os.Args[2:], tuning, logger); err != nil {
			logger.Error("watch failed", "error", err)
			stop()
			os.Exit(1)
		}
		return
	}

	logger.Debug("color tracker MCP server starting",
		"version", Version, "built", BuildTime, "commit", GitCommit)

	server.Version = Version
	srv := server.New(tuning, logger)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		stop()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("color-tracker-mcp - MCP server for color-signature target tracking")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  color-tracker-mcp [options]")
	fmt.Println("  color-tracker-mcp watch --reference <image> --region x,y,w,h --frames <dir>")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  watch            Replay a directory of frames against a selected target")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  TRACKER_MCP_LOG_LEVEL=debug       Log level (debug, info, warn, error)")
	fmt.Println("  TRACKER_MCP_CONFIG=tuning.json    JSON tuning file")
	fmt.Println()
	fmt.Println("Without a command the server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client.")
}
