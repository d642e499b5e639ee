// Command inbox-mcp serves the approval queue as MCP tools over stdio.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/conf"
	"github.com/devricklin/inbox-autopilot/internal/mcp"
)

// Version is set at build time
var Version = "dev"

func main() {
	_ = godotenv.Load()

	// stdout carries the protocol; zap production logs go to stderr
	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := mcp.NewClient(cfg.MCP.APIURL, cfg.Server.APIToken)
	log.Info("starting inbox MCP server", zap.String("api", cfg.MCP.APIURL))
	if err := mcp.NewServer(client, Version).Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("mcp server stopped", zap.Error(err))
	}
}
