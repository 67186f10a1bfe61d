// Agentflow: multi-agent work tracking MCP server
//
// An MCP server that gives collaborating AI agents a shared view of
// work: projects, PRDs, stories, tasks with dependencies, comments,
// and progress tracking.
//
// Usage:
//
//	agentflow serve    # Start MCP server (stdio transport)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flowserver "github.com/HendryAvila/agentflow/internal/server"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("agentflow v%s\n", flowserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	s, cleanup, err := flowserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Graceful shutdown on interrupt: cancelling the context stops the
	// stdio loop, and the deferred cleanup closes the database.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Agentflow v%s — Multi-Agent Work Tracking MCP Server

Usage:
  agentflow serve    Start the MCP server (stdio transport)

Configuration:
  AGENTFLOW_DATA_DIR   Data directory (default: ~/.agentflow)
  AGENTFLOW_DB_PATH    Full database path override

  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "agentflow": {
        "command": "agentflow",
        "args": ["serve"]
      }
    }
  }
`, flowserver.Version)
}
