// Package main is the entry point for the RFID console.
// It loads configuration, starts the capture services and runs the Bubble Tea program.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/rfid-console/internal/app"
	"github.com/j-veylop/rfid-console/internal/config"
	"github.com/j-veylop/rfid-console/internal/logger"
	"github.com/j-veylop/rfid-console/internal/services"
	"github.com/j-veylop/rfid-console/internal/ui/tabs/info"
	"github.com/j-veylop/rfid-console/internal/ui/tabs/inventory"
	"github.com/j-veylop/rfid-console/internal/ui/tabs/trend"
	"github.com/j-veylop/rfid-console/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "-v", "--version":
			fmt.Println(version.Info())
			os.Exit(0)
		case "-h", "--help":
			printUsage()
			os.Exit(0)
		case "catalog":
			if err := runCatalog(os.Stdout, os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			os.Exit(0)
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logCloser, err := logger.Init(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	logger.Info("starting", "version", version.GetVersion(), "scenario", cfg.ScenarioPath)

	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	model := app.NewModel(svcManager)

	state := model.GetState()
	model.SetTabs([]app.Tab{
		inventory.New(state),
		trend.New(state),
		info.New(state, cfg),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		<-sigChan
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

func printUsage() {
	fmt.Println(`RFID Console - handheld reader capture and tag inventory

Usage:
  rfid-console [flags]
  rfid-console catalog list
  rfid-console catalog add <epc> [label] [sku]
  rfid-console catalog rm <epc>

Flags:
  -h, --help      Show this help message
  -v, --version   Show version information

Keyboard Shortcuts:
  1-3             Switch between tabs (Inventory, Trend, Info)
  Tab/Shift+Tab   Navigate between tabs
  c               Connect the reader
  x               Disconnect the reader
  Space           Start or stop a capture
  t               Press or release the trigger
  s               Sort the inventory by recency or count
  j/k, Up/Down    Navigate lists
  ?               Toggle help
  q, Ctrl+C       Quit

Environment Variables:
  READER_SCENARIO_PATH  Simulated reader scenario (YAML, hot reloaded)
  CATALOG_PATH          SQLite tag catalog path
  REFRESH_INTERVAL      Tag list refresh period (default: 500ms)
  CONNECT_TIMEOUT       Reader connect timeout (default: 5s)
  SELF_TEST_DURATION    Run a capture of this length after connecting (default: off)
  METRICS_ADDR          Prometheus listen address (default: disabled)
  LOG_FILE              Log file path
  LOG_LEVEL             debug, info, warn or error (default: info)
  NOTIFICATIONS         Desktop notifications (default: true)

Configuration:
  The application looks for .env files in the following locations:
  - Current directory
  - ~/.config/rfid-console/.env`)
}
