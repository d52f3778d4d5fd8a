package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cortex/internal/daemon"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Talk to the system daemon over its UNIX-socket protocol",
}

var daemonPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the daemon is reachable",
	RunE:  runDaemonPing,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon's status and LLM model state",
	RunE:  runDaemonStatus,
}

var daemonAlertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List the daemon's active alerts",
	RunE:  runDaemonAlerts,
}

func runDaemonPing(cmd *cobra.Command, args []string) error {
	if err := app.Daemon.Ping(context.Background()); err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	fmt.Println("daemon reachable")
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	status, err := app.Daemon.Status(ctx)
	if err != nil {
		return fmt.Errorf("get daemon status: %w", err)
	}
	fmt.Printf("mode=%s pid=%d uptime=%.0fs\n", status.Mode, status.PID, status.Uptime)

	llmStatus, err := app.Daemon.LLMStatus(ctx)
	if err != nil {
		return fmt.Errorf("get llm status: %w", err)
	}
	fmt.Printf("model loaded=%v name=%q api_healthy=%v failures=%d\n",
		llmStatus.ModelLoaded, llmStatus.ModelName, llmStatus.APIHealthy, llmStatus.APIFailures)
	return nil
}

func runDaemonAlerts(cmd *cobra.Command, args []string) error {
	result, err := app.Daemon.Alerts(context.Background(), daemon.AlertsParams{Limit: 50})
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}
	for _, a := range result.Alerts {
		fmt.Printf("#%d [%s/%s] %s: %s\n", a.ID, a.Severity, a.Status, a.Title, a.Message)
	}
	return nil
}
