package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cortex/internal/coordinator"
	"cortex/internal/history"
	"cortex/internal/logging"
	"cortex/internal/memory"
)

var (
	askValidate bool
	askOffline  bool
)

var askCmd = &cobra.Command{
	Use:   "ask <request>",
	Short: "Turn a natural-language request into shell commands and run them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

// runAsk drives the full decision pipeline for one request: parse via
// internal/interpreter, begin a transaction, execute via
// internal/coordinator, complete the transaction, and record the
// interaction in internal/memory.
func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	request := strings.Join(args, " ")

	commands, err := app.Interpreter.Parse(ctx, request, askValidate)
	if err != nil {
		recordAskOutcome(ctx, request, "", false)
		return fmt.Errorf("interpret request: %w", err)
	}

	fmt.Println("Planned commands:")
	for _, c := range commands {
		fmt.Printf("  %s\n", c)
	}

	if dryRun {
		return nil
	}

	packages := packagesFromRequest(request)
	if warnings, err := app.Memory.PlanWarnings("package", packages); err == nil {
		for _, w := range warnings {
			fmt.Printf("Warning: %s - %s\n", w.Title, w.Description)
		}
	}

	tx, err := app.Transactions.Begin(ctx, history.TypeBatch, packages, request)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	coord, err := coordinator.New(commands, nil,
		coordinator.WithTimeout(time.Duration(app.Config.Coordinator.DefaultStepTimeoutSeconds)*time.Second),
		coordinator.WithRollback(true),
	)
	if err != nil {
		_ = app.Transactions.Complete(ctx, tx, false, err.Error())
		return fmt.Errorf("build coordinator: %w", err)
	}

	result := coord.Execute(ctx)
	_ = app.Transactions.Complete(ctx, tx, result.Success, result.ErrorMessage)
	recordAskOutcome(ctx, request, strings.Join(commands, " && "), result.Success)

	if !result.Success {
		return fmt.Errorf("execution failed at step %d: %s", result.FailedStep+1, result.ErrorMessage)
	}
	fmt.Println("Done.")
	return nil
}

// packagesFromRequest is a coarse best-effort package-name extraction
// for transaction bookkeeping: every space-separated token that isn't a
// common verb. Precision here is secondary to the transaction record
// existing at all; the authoritative package list lives in the executed
// commands themselves.
func packagesFromRequest(request string) []string {
	var skip = map[string]bool{
		"install": true, "remove": true, "uninstall": true, "update": true,
		"upgrade": true, "the": true, "a": true, "please": true, "and": true,
	}
	var packages []string
	for _, word := range strings.Fields(strings.ToLower(request)) {
		if !skip[word] {
			packages = append(packages, word)
		}
	}
	return packages
}

func recordAskOutcome(ctx context.Context, request, action string, success bool) {
	if _, err := app.Memory.RecordInteraction(ctx, memory.Entry{
		Category: "package",
		Context:  request,
		Action:   action,
		Result:   request,
		Success:  success,
	}); err != nil {
		logging.MemoryDebug("failed to record interaction: %v", err)
	}
}
