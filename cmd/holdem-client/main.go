package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/holdemd/internal/client"
	"github.com/lox/holdemd/internal/tui"
)

var CLI struct {
	Server   string `short:"s" long:"server" default:"ws://localhost:8080/ws" help:"Table server URL"`
	Ticket   string `short:"t" long:"ticket" help:"Authentication ticket"`
	LogLevel string `short:"l" long:"log-level" default:"info" help:"Log level (debug, info, warn, error)"`
	LogFile  string `long:"log-file" default:"holdem-client.log" help:"Log file path"`
}

func main() {
	ctx := kong.Parse(&CLI)

	if CLI.Ticket == "" {
		fmt.Print("Enter your ticket: ")
		var input string
		_, _ = fmt.Scanln(&input)
		CLI.Ticket = input
		if CLI.Ticket == "" {
			fmt.Println("A ticket is required")
			ctx.Exit(1)
		}
	}

	// Log to a file: stdout belongs to the TUI.
	logFile, err := os.OpenFile(CLI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		fmt.Printf("Failed to open log file: %v\n", err)
		ctx.Exit(1)
	}
	defer func() { _ = logFile.Close() }()

	logger := log.New(logFile)
	switch CLI.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	logger.Info("Starting Holdem Client", "server", CLI.Server)

	wsClient := client.NewClient(CLI.Server, logger)
	if err := wsClient.Connect(); err != nil {
		fmt.Printf("Failed to connect to server: %v\n", err)
		ctx.Exit(1)
	}
	defer func() { _ = wsClient.Close() }()

	model := tui.NewModel(wsClient, CLI.Ticket, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running client: %v\n", err)
		ctx.Exit(1)
	}
}
