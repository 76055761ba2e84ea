package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/holdemd/internal/auth"
	"github.com/lox/holdemd/internal/server"
	"github.com/lox/holdemd/internal/store"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"holdemd.hcl" help:"Path to HCL configuration file"`
	Listen   string `short:"a" long:"listen" help:"Listen address (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	DBPath   string `long:"db" help:"SQLite database path (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Listen != "" {
		cfg.Server.Listen = CLI.Listen
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.DBPath != "" {
		cfg.Server.DBPath = CLI.DBPath
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
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

	st, err := store.Open(cfg.Server.DBPath)
	if err != nil {
		logger.Error("Failed to open store", "path", cfg.Server.DBPath, "error", err)
		kctx.Exit(1)
	}
	defer st.Close()

	var validator auth.Validator
	if cfg.Server.AuthURL != "" {
		validator = auth.NewHTTPValidator(cfg.Server.AuthURL, cfg.Server.AuthSecret)
	} else {
		logger.Warn("No auth_url configured, accepting any ticket")
		validator = auth.NewNoopValidator()
	}

	engine, err := server.NewEngine(cfg, logger, quartz.NewReal(), st, validator)
	if err != nil {
		logger.Error("Failed to build engine", "error", err)
		kctx.Exit(1)
	}

	logger.Info("Starting holdemd",
		"listen", cfg.Server.Listen,
		"table", cfg.Table.ID,
		"blinds", fmt.Sprintf("%d/%d", cfg.Table.SmallBlind, cfg.Table.BigBlind),
		"seats", cfg.Table.Seats)

	srv := server.NewServer(cfg.Server.Listen, engine, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logger.Info("Shutting down")
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server failed", "error", err)
		kctx.Exit(1)
	}
}
