// Package history implements the transactional ledger and its
// coarser installation-plan sibling: a persistent record of
// package operations with before/after state snapshots, rollback-safety
// assessment, reversed-operation synthesis, and undo.
package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies a recorded operation.
type TransactionType string

const (
	TypeInstall    TransactionType = "install"
	TypeRemove     TransactionType = "remove"
	TypeUpgrade    TransactionType = "upgrade"
	TypeDowngrade  TransactionType = "downgrade"
	TypeAutoremove TransactionType = "autoremove"
	TypePurge      TransactionType = "purge"
	TypeConfigure  TransactionType = "configure"
	TypeBatch      TransactionType = "batch"
)

// TransactionStatus is the transaction lifecycle state. Valid transitions
// are Pending -> InProgress -> {Completed, Failed}, then optionally
// Completed -> {RolledBack, PartiallyCompleted}.
type TransactionStatus string

const (
	StatusPending            TransactionStatus = "pending"
	StatusInProgress         TransactionStatus = "in_progress"
	StatusCompleted          TransactionStatus = "completed"
	StatusFailed             TransactionStatus = "failed"
	StatusRolledBack         TransactionStatus = "rolled_back"
	StatusPartiallyCompleted TransactionStatus = "partially_completed"
)

// PackageSnapshot captures one package's state at a point in time.
type PackageSnapshot struct {
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	Installed    bool     `json:"installed"`
	ConfigFiles  []string `json:"config_files,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// criticalSubstrings are package-name fragments that mark a transaction
// as unsafe to automatically roll back.
var criticalSubstrings = []string{
	"apt", "dpkg", "libc6", "systemd", "bash", "coreutils", "linux-image", "grub", "init",
}

func isCriticalPackage(name string) bool {
	lower := strings.ToLower(name)
	for _, sub := range criticalSubstrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// generateID produces the "monotonic-timestamp prefix plus 8 random hex
// chars" identifier shape transactions are keyed by.
func generateID() string {
	return fmt.Sprintf("%x%s", time.Now().UnixNano(), strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}
