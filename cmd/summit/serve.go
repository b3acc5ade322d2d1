package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/summitcards/summit/internal/server"
)

// ServeCmd runs a headless cluster node.
type ServeCmd struct {
	Config   string   `short:"c" default:"summit.hcl" help:"Path to HCL configuration file"`
	Addr     string   `short:"a" help:"Listen address (overrides config)"`
	Port     int      `short:"p" help:"Listen port (overrides config)"`
	Peers    []string `help:"Peer node addresses to join (overrides config)"`
	LogLevel string   `short:"l" help:"Log level (overrides config)"`
}

func (c *ServeCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.Addr != "" {
		cfg.Node.Address = c.Addr
	}
	if c.Port != 0 {
		cfg.Node.Port = c.Port
	}
	if len(c.Peers) > 0 {
		cfg.Cluster.Peers = c.Peers
	}
	if c.LogLevel != "" {
		cfg.Node.LogLevel = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := setupLogger(cfg.Node.LogLevel)
	logger.Info("starting node", "id", cfg.Node.ID, "addr", cfg.ListenAddress(), "peers", len(cfg.Cluster.Peers))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.NewNode(cfg, logger).Run(ctx)
}

func setupLogger(level string) *log.Logger {
	logger := log.New(os.Stderr)
	switch level {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}
