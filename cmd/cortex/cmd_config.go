package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or reload cortex configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration as YAML",
	RunE:  runConfigShow,
}

var configReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Ask the running daemon to reload its configuration from disk",
	RunE:  runConfigReload,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	data, err := yaml.Marshal(app.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

func runConfigReload(cmd *cobra.Command, args []string) error {
	if err := app.Daemon.ConfigReload(context.Background()); err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	fmt.Println("daemon configuration reloaded")
	return nil
}
