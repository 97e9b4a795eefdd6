package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hairizuanbinnoorazman/pageagent/internal/mcptool"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve page analysis and automation as MCP tools over stdio",
	Long: `Starts a Model Context Protocol server on stdin and stdout with the
analyze_page, screenshot and automate tools. No database is needed.
Logs go to stderr so they do not corrupt the protocol stream.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewLogrusLoggerWithOutput(cfg.Log.Level, os.Stderr)

	e, err := buildEngine(cfg, nil, nil, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := mcptool.NewServer("pageagent", Version, e.automation, log)
	log.Info(ctx, "mcp server listening on stdio", nil)
	if err := srv.ServeStdio(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server failed: %w", err)
	}
	return nil
}
