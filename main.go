package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"lynkd/config"
	"lynkd/driver"
	"lynkd/storage"
	"lynkd/ui"
)

const (
	Version = "v0.1.0"
	License = "Apache-2.0"
)

func main() {
	editSlug := flag.String("edit", "", "re-open setup for an existing connection slug")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("lynkd %s\n", Version)
		return
	}

	isFirstRun := !config.SystemConfigExists()
	if isFirstRun {
		if err := config.CreateDefaultSystemConfig(); err != nil {
			fmt.Printf("Failed to create config: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	config.InitDebugLog(cfg.DataDir())

	if err := config.EnsureDataDirPermissions(cfg.DataDir()); err != nil {
		fmt.Printf("Failed to secure data directory: %v\n", err)
		os.Exit(1)
	}

	connections, err := storage.NewConnectionStore(cfg.DataDir())
	if err != nil {
		fmt.Printf("Failed to open connection store: %v\n", err)
		os.Exit(1)
	}
	defer connections.Close()

	deps := ui.SetupDeps{
		Cfg:         cfg,
		Registry:    driver.NewRegistry(driver.WithLocalHost(cfg.LocalHost)),
		Connections: connections,
	}

	model, err := buildModel(deps, isFirstRun, *editSlug)
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildModel(deps ui.SetupDeps, isFirstRun bool, editSlug string) (tea.Model, error) {
	if editSlug != "" {
		conn, err := deps.Connections.Get(editSlug)
		if err != nil {
			return nil, fmt.Errorf("failed to load connection: %w", err)
		}
		if conn == nil {
			return nil, fmt.Errorf("no connection with slug %q", editSlug)
		}
		slugs, err := deps.Connections.Slugs()
		if err != nil {
			return nil, fmt.Errorf("failed to list connections: %w", err)
		}
		return ui.NewEditModel(deps, conn, slugs), nil
	}

	if isFirstRun {
		return ui.NewFirstRunModel(deps), nil
	}

	slugs, err := deps.Connections.Slugs()
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	return ui.NewSetupModel(deps, slugs), nil
}
