// Package main implements the cortex CLI - the command-line front end
// for the Cortex decision and memory engine.
//
// This file is the entry point and command registration hub. Individual
// command groups live in their own cmd_*.go files:
//
//   - cmd_ask.go      - askCmd: natural language -> commands -> execution
//   - cmd_impact.go   - impactCmd: removal blast-radius analysis
//   - cmd_history.go  - historyCmd: transaction/installation ledger, undo
//   - cmd_memory.go   - memoryCmd: stats, suggestions, learned patterns, export
//   - cmd_daemon.go   - daemonCmd: system daemon client (ping/status/alerts)
//   - cmd_config.go   - configCmd: show/reload configuration
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cortex/internal/config"
	"cortex/internal/logging"
)

var (
	verbose    bool
	configPath string
	home       string
	dryRun     bool

	logger *zap.Logger
	app    *App
)

var rootCmd = &cobra.Command{
	Use:   "cortex",
	Short: "Cortex - decision and memory engine for natural-language package management",
	Long: `Cortex turns natural-language package-management requests into validated
shell commands, routes them through a graceful-degradation LLM layer,
executes them under transactional rollback protection, and learns from
every interaction.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logCfg := zap.NewProductionConfig()
		if verbose {
			logCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = logCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if home == "" {
			h, err := os.UserHomeDir()
			if err == nil {
				home = filepath.Join(h, ".cortex")
			} else {
				home = ".cortex"
			}
		}
		if err := logging.Initialize(home); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize file logging: %v\n", err)
		}

		if err := config.LoadDotEnv(filepath.Join(home, ".env")); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
		}

		resolvedConfigPath := configPath
		if resolvedConfigPath == "" {
			resolvedConfigPath = filepath.Join(home, "config.yaml")
		}
		cfg, err := config.Load(resolvedConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg.Home = home

		builtApp, err := buildApp(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize cortex: %w", err)
		}
		app = builtApp

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: ~/.cortex/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&home, "home", "", "Cortex home directory (default: ~/.cortex)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Preview actions without executing them")

	askCmd.Flags().BoolVar(&askValidate, "validate", true, "Filter dangerous commands before execution")
	askCmd.Flags().BoolVar(&askOffline, "offline", false, "Restrict to cached responses only")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyUndoCmd, historyLedgerCmd)
	memoryCmd.AddCommand(memoryStatsCmd, memorySuggestCmd, memoryPatternsCmd, memoryExportCmd)
	daemonCmd.AddCommand(daemonPingCmd, daemonStatusCmd, daemonAlertsCmd)
	configCmd.AddCommand(configShowCmd, configReloadCmd)

	rootCmd.AddCommand(
		askCmd,
		impactCmd,
		historyCmd,
		memoryCmd,
		daemonCmd,
		configCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
