package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cortex/internal/history"
)

var (
	historyLimit int
	undoForce    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and roll back past transactions",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent transactions",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <transaction-id>",
	Short: "Show a single transaction's detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyUndoCmd = &cobra.Command{
	Use:   "undo [transaction-id]",
	Short: "Undo a transaction (most recent completed one if no ID given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryUndo,
}

var historyLedgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "List installation ledger records",
	RunE:  runHistoryLedger,
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of transactions to show")
	historyUndoCmd.Flags().BoolVar(&undoForce, "force", false, "Undo even when marked unsafe")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	txs, err := app.Transactions.GetRecent(historyLimit)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	for _, tx := range txs {
		fmt.Printf("%s  %-10s  %-10s  %v\n", tx.ID, tx.Type, tx.Status, tx.Packages)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	tx, err := app.Transactions.Get(args[0])
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	if tx == nil {
		return fmt.Errorf("transaction %s not found", args[0])
	}
	fmt.Printf("ID:       %s\n", tx.ID)
	fmt.Printf("Type:     %s\n", tx.Type)
	fmt.Printf("Status:   %s\n", tx.Status)
	fmt.Printf("Packages: %v\n", tx.Packages)
	fmt.Printf("Command:  %s\n", tx.Command)
	fmt.Printf("Rollback safe: %v\n", tx.IsRollbackSafe)
	if tx.RollbackWarning != "" {
		fmt.Printf("Rollback warning: %s\n", tx.RollbackWarning)
	}
	for _, c := range tx.RollbackCommands {
		fmt.Printf("  rollback: %s\n", c)
	}
	return nil
}

func runHistoryUndo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var result history.UndoResult
	var err error
	if len(args) == 1 {
		result, err = app.Undo.Undo(ctx, args[0], dryRun, undoForce)
	} else {
		result, err = app.Undo.UndoLast(ctx, dryRun, undoForce)
	}
	if err != nil {
		return fmt.Errorf("undo: %w", err)
	}

	fmt.Println(result.Message)
	for _, e := range result.Errors {
		fmt.Printf("  error: %s\n", e)
	}
	if !result.Success {
		return fmt.Errorf("undo did not complete successfully")
	}
	return nil
}

func runHistoryLedger(cmd *cobra.Command, args []string) error {
	records, err := app.Ledger.GetHistory(historyLimit, "")
	if err != nil {
		return fmt.Errorf("list ledger: %w", err)
	}
	for _, r := range records {
		fmt.Printf("%s  %-10s  %-10s  %v\n", r.ID, r.Type, r.Status, r.Packages)
	}
	return nil
}
