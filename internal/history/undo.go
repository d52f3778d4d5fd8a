package history

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"cortex/internal/logging"
)

// UndoManager executes a transaction's rollback commands atop a
// TransactionHistory.
type UndoManager struct {
	history *TransactionHistory
}

// NewUndoManager wraps history for undo operations.
func NewUndoManager(history *TransactionHistory) *UndoManager {
	return &UndoManager{history: history}
}

// CanUndo reports whether id refers to a completed, not-yet-rolled-back
// transaction.
func (u *UndoManager) CanUndo(id string) (bool, string) {
	tx, err := u.history.Get(id)
	if err != nil {
		return false, fmt.Sprintf("failed to load transaction: %v", err)
	}
	if tx == nil {
		return false, fmt.Sprintf("transaction %s not found", id)
	}
	if tx.Status != StatusCompleted {
		return false, "cannot undo: transaction is not in Completed status"
	}
	if len(tx.RollbackCommands) == 0 {
		return false, "no rollback commands recorded for this transaction"
	}
	return true, ""
}

// PreviewUndo returns the commands that Undo would execute, without
// running them.
func (u *UndoManager) PreviewUndo(id string) ([]string, error) {
	tx, err := u.history.Get(id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction %s not found", id)
	}
	return tx.RollbackCommands, nil
}

// UndoResult reports the outcome of an undo attempt.
type UndoResult struct {
	Success bool
	Message string
	Errors  []string
}

// Undo reverses transaction id by executing its recorded rollback
// commands. The transaction must be in Completed status. dryRun previews
// without executing; force bypasses only the is_rollback_safe refusal.
func (u *UndoManager) Undo(ctx context.Context, id string, dryRun, force bool) (UndoResult, error) {
	tx, err := u.history.Get(id)
	if err != nil {
		return UndoResult{}, err
	}
	if tx == nil {
		return UndoResult{}, fmt.Errorf("transaction %s not found", id)
	}
	if tx.Status != StatusCompleted {
		return UndoResult{Success: false, Message: "Cannot undo: transaction is not in Completed status"}, nil
	}
	if !tx.IsRollbackSafe && !force {
		return UndoResult{Success: false, Message: "Unsafe rollback - use force to override: " + tx.RollbackWarning}, nil
	}

	if dryRun {
		return UndoResult{Success: true, Message: strings.Join(tx.RollbackCommands, "\n")}, nil
	}

	if len(tx.RollbackCommands) == 0 {
		return UndoResult{Success: true, Message: "no rollback actions needed"}, nil
	}

	var errs []string
	for _, cmd := range tx.RollbackCommands {
		trimmed := strings.TrimSpace(cmd)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		logging.History("executing rollback command for %s: %s", id, trimmed)
		if err := runShellCommand(ctx, trimmed); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", trimmed, err))
			logging.Get(logging.CategoryHistory).Warn("rollback command failed for %s: %v", id, err)
		}
	}

	if len(errs) == 0 {
		tx.Status = StatusRolledBack
		if err := u.history.save(tx); err != nil {
			return UndoResult{}, err
		}
		return UndoResult{Success: true, Message: fmt.Sprintf("transaction %s rolled back", id)}, nil
	}

	tx.Status = StatusPartiallyCompleted
	if err := u.history.save(tx); err != nil {
		return UndoResult{}, err
	}
	return UndoResult{Success: false, Message: "rollback partially failed", Errors: errs}, nil
}

// UndoLast undoes the most recent Completed transaction, if any.
func (u *UndoManager) UndoLast(ctx context.Context, dryRun, force bool) (UndoResult, error) {
	recent, err := u.history.Search(SearchFilter{Status: StatusCompleted, Limit: 1})
	if err != nil {
		return UndoResult{}, err
	}
	if len(recent) == 0 {
		return UndoResult{Success: false, Message: "no completed transaction available to undo"}, nil
	}
	return u.Undo(ctx, recent[0].ID, dryRun, force)
}

func runShellCommand(ctx context.Context, command string) error {
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return exec.CommandContext(cctx, "sh", "-c", command).Run()
}
