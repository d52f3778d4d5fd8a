package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"cortex/internal/logging"
	"cortex/internal/persistence"
)

// Transaction is one recorded package operation").
type Transaction struct {
	ID               string
	Type             TransactionType
	Packages         []string
	Timestamp        time.Time
	Status           TransactionStatus
	BeforeState      map[string]PackageSnapshot
	AfterState       map[string]PackageSnapshot
	Command          string
	User             string
	Duration         time.Duration
	Error            string
	RollbackCommands []string
	IsRollbackSafe   bool
	RollbackWarning  string
}

// TransactionHistory is the SQLite-backed transactional ledger.
type TransactionHistory struct {
	db *sql.DB
}

// Open opens (creating if absent) the transaction history database at
// path and ensures its schema exists.
func Open(path string) (*TransactionHistory, error) {
	db, err := persistence.Open(path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	h := &TransactionHistory{db: db}
	if err := h.migrate(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *TransactionHistory) migrate() error {
	_, err := h.db.Exec(`
CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	packages_json TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	status TEXT NOT NULL,
	before_state_json TEXT,
	after_state_json TEXT,
	command TEXT,
	user TEXT,
	duration_seconds REAL,
	error TEXT,
	rollback_commands_json TEXT,
	is_rollback_safe INTEGER NOT NULL DEFAULT 0,
	rollback_warning TEXT
);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp);
CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);
`)
	if err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

func runCommand(ctx context.Context, timeout time.Duration, name string, args ...string) (string, bool) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(cctx, name, args...).Output()
	if err != nil {
		return "", false
	}
	return string(out), true
}

// CapturePackageState runs
// dpkg-query for status/version and, only when the package is installed,
// additionally gathers config files and installed-only dependencies.
func (h *TransactionHistory) CapturePackageState(ctx context.Context, pkg string) PackageSnapshot {
	out, ok := runCommand(ctx, 30*time.Second, "dpkg-query", "-W", "-f=${Status}|${Version}", pkg)
	if !ok {
		return PackageSnapshot{Name: pkg, Installed: false}
	}

	parts := strings.SplitN(strings.TrimSpace(out), "|", 2)
	if len(parts) != 2 || !strings.Contains(parts[0], "installed") {
		return PackageSnapshot{Name: pkg, Installed: false}
	}

	snap := PackageSnapshot{Name: pkg, Version: parts[1], Installed: true}

	if filesOut, ok := runCommand(ctx, 30*time.Second, "dpkg", "-L", pkg); ok {
		for _, line := range strings.Split(filesOut, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if strings.Contains(line, "/etc/") || strings.HasSuffix(line, ".conf") {
				snap.ConfigFiles = append(snap.ConfigFiles, line)
			}
		}
	}

	if depsOut, ok := runCommand(ctx, 30*time.Second, "apt-cache", "depends", "--installed", pkg); ok {
		for _, line := range strings.Split(depsOut, "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "Depends:") {
				continue
			}
			dep := strings.TrimSpace(strings.TrimPrefix(line, "Depends:"))
			if dep != "" {
				snap.Dependencies = append(snap.Dependencies, dep)
			}
		}
	}

	return snap
}

// Begin opens a new transaction: it captures before-state for every
// package and synthesizes the commands that would reverse the operation.
func (h *TransactionHistory) Begin(ctx context.Context, txType TransactionType, packages []string, command string) (*Transaction, error) {
	before := make(map[string]PackageSnapshot, len(packages))
	for _, pkg := range packages {
		before[pkg] = h.CapturePackageState(ctx, pkg)
	}

	tx := &Transaction{
		ID:          generateID(),
		Type:        txType,
		Packages:    packages,
		Timestamp:   time.Now(),
		Status:      StatusInProgress,
		BeforeState: before,
		Command:     command,
	}
	tx.RollbackCommands = synthesizeRollbackCommands(txType, packages, before)
	tx.IsRollbackSafe, tx.RollbackWarning = assessRollbackSafety(txType, packages)

	if err := h.save(tx); err != nil {
		return nil, err
	}
	logging.History("began transaction %s (%s) for %v", tx.ID, txType, packages)
	return tx, nil
}

// synthesizeRollbackCommands emits the per-type reversed operations.
func synthesizeRollbackCommands(txType TransactionType, packages []string, before map[string]PackageSnapshot) []string {
	var cmds []string
	switch txType {
	case TypeInstall, TypeConfigure, TypeBatch:
		for _, pkg := range packages {
			if snap, ok := before[pkg]; ok && !snap.Installed {
				cmds = append(cmds, fmt.Sprintf("sudo apt remove -y %s", pkg))
			}
		}
	case TypeRemove, TypeAutoremove:
		for _, pkg := range packages {
			snap, ok := before[pkg]
			if !ok || !snap.Installed {
				continue
			}
			if snap.Version != "" {
				cmds = append(cmds, fmt.Sprintf("sudo apt install -y %s=%s", pkg, snap.Version))
			} else {
				cmds = append(cmds, fmt.Sprintf("sudo apt install -y %s", pkg))
			}
		}
	case TypeUpgrade, TypeDowngrade:
		for _, pkg := range packages {
			snap, ok := before[pkg]
			if !ok || !snap.Installed || snap.Version == "" {
				continue
			}
			cmds = append(cmds, fmt.Sprintf("sudo apt install -y %s=%s", pkg, snap.Version))
		}
	case TypePurge:
		for _, pkg := range packages {
			snap, ok := before[pkg]
			if !ok || !snap.Installed {
				continue
			}
			if snap.Version != "" {
				cmds = append(cmds, fmt.Sprintf("sudo apt install -y %s=%s", pkg, snap.Version))
			} else {
				cmds = append(cmds, fmt.Sprintf("sudo apt install -y %s", pkg))
			}
			cmds = append(cmds, "# config files removed by purge cannot be restored")
		}
	}
	return cmds
}

// assessRollbackSafety marks a transaction unsafe whenever
// any package name contains a critical substring, with purge additionally
// warning about unrecoverable config loss.
func assessRollbackSafety(txType TransactionType, packages []string) (bool, string) {
	for _, pkg := range packages {
		if isCriticalPackage(pkg) {
			return false, fmt.Sprintf("%s affects a critical system package; automatic rollback is refused", pkg)
		}
	}
	if txType == TypePurge {
		return true, "purge removed config files that cannot be restored by rollback"
	}
	return true, ""
}

// Complete finalizes a transaction: it captures after-state, records the
// outcome, and re-assesses rollback safety.
func (h *TransactionHistory) Complete(ctx context.Context, tx *Transaction, success bool, errMsg string) error {
	after := make(map[string]PackageSnapshot, len(tx.Packages))
	for _, pkg := range tx.Packages {
		after[pkg] = h.CapturePackageState(ctx, pkg)
	}
	tx.AfterState = after
	tx.Duration = time.Since(tx.Timestamp)
	tx.Error = errMsg
	if success {
		tx.Status = StatusCompleted
	} else {
		tx.Status = StatusFailed
	}
	tx.IsRollbackSafe, tx.RollbackWarning = assessRollbackSafety(tx.Type, tx.Packages)

	if err := h.save(tx); err != nil {
		return err
	}
	logging.History("completed transaction %s: %s", tx.ID, tx.Status)
	return nil
}

func (h *TransactionHistory) save(tx *Transaction) error {
	packagesJSON, err := json.Marshal(tx.Packages)
	if err != nil {
		return err
	}
	beforeJSON, err := json.Marshal(tx.BeforeState)
	if err != nil {
		return err
	}
	afterJSON, err := json.Marshal(tx.AfterState)
	if err != nil {
		return err
	}
	rollbackJSON, err := json.Marshal(tx.RollbackCommands)
	if err != nil {
		return err
	}

	_, err = h.db.Exec(`
INSERT INTO transactions
	(id, type, packages_json, timestamp, status, before_state_json, after_state_json,
	 command, user, duration_seconds, error, rollback_commands_json, is_rollback_safe, rollback_warning)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	status = excluded.status,
	after_state_json = excluded.after_state_json,
	duration_seconds = excluded.duration_seconds,
	error = excluded.error,
	rollback_commands_json = excluded.rollback_commands_json,
	is_rollback_safe = excluded.is_rollback_safe,
	rollback_warning = excluded.rollback_warning`,
		tx.ID, string(tx.Type), string(packagesJSON), tx.Timestamp.Format(time.RFC3339Nano), string(tx.Status),
		string(beforeJSON), string(afterJSON), tx.Command, tx.User, tx.Duration.Seconds(), tx.Error,
		string(rollbackJSON), boolToInt(tx.IsRollbackSafe), tx.RollbackWarning,
	)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Get returns a transaction by ID, or nil if it does not exist.
func (h *TransactionHistory) Get(id string) (*Transaction, error) {
	row := h.db.QueryRow(`SELECT * FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return tx, err
}

// GetRecent returns up to limit transactions, most recent first.
func (h *TransactionHistory) GetRecent(limit int) ([]*Transaction, error) {
	rows, err := h.db.Query(`SELECT * FROM transactions ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// SearchFilter narrows Search results; zero-value fields are unfiltered.
type SearchFilter struct {
	Package string
	Status  TransactionStatus
	Type    TransactionType
	Limit   int
}

// Search returns transactions matching filter, most recent first.
func (h *TransactionHistory) Search(filter SearchFilter) ([]*Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT * FROM transactions WHERE 1=1`
	var args []interface{}
	if filter.Package != "" {
		query += ` AND packages_json LIKE ?`
		args = append(args, "%"+filter.Package+"%")
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// Stats summarizes the ledger's contents.
type Stats struct {
	Total      int
	ByStatus   map[TransactionStatus]int
	ByType     map[TransactionType]int
	RolledBack int
}

// GetStats aggregates counts across the whole ledger.
func (h *TransactionHistory) GetStats() (Stats, error) {
	stats := Stats{ByStatus: map[TransactionStatus]int{}, ByType: map[TransactionType]int{}}

	rows, err := h.db.Query(`SELECT status, type FROM transactions`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var status, typ string
		if err := rows.Scan(&status, &typ); err != nil {
			continue
		}
		stats.Total++
		stats.ByStatus[TransactionStatus(status)]++
		stats.ByType[TransactionType(typ)]++
		if TransactionStatus(status) == StatusRolledBack {
			stats.RolledBack++
		}
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	var (
		id, typ, packagesJSON, timestamp, status     string
		beforeJSON, afterJSON, command, user, errStr sql.NullString
		duration                                     sql.NullFloat64
		rollbackJSON, rollbackWarning                sql.NullString
		isRollbackSafe                               int
	)
	if err := row.Scan(&id, &typ, &packagesJSON, &timestamp, &status, &beforeJSON, &afterJSON,
		&command, &user, &duration, &errStr, &rollbackJSON, &isRollbackSafe, &rollbackWarning); err != nil {
		return nil, err
	}

	tx := &Transaction{
		ID:              id,
		Type:            TransactionType(typ),
		Status:          TransactionStatus(status),
		Command:         command.String,
		User:            user.String,
		Error:           errStr.String,
		IsRollbackSafe:  isRollbackSafe != 0,
		RollbackWarning: rollbackWarning.String,
		Duration:        time.Duration(duration.Float64 * float64(time.Second)),
	}

	if ts, err := time.Parse(time.RFC3339Nano, timestamp); err == nil {
		tx.Timestamp = ts
	}
	_ = json.Unmarshal([]byte(packagesJSON), &tx.Packages)
	if beforeJSON.Valid {
		_ = json.Unmarshal([]byte(beforeJSON.String), &tx.BeforeState)
	}
	if afterJSON.Valid {
		_ = json.Unmarshal([]byte(afterJSON.String), &tx.AfterState)
	}
	if rollbackJSON.Valid {
		_ = json.Unmarshal([]byte(rollbackJSON.String), &tx.RollbackCommands)
	}
	return tx, nil
}

func scanTransactions(rows *sql.Rows) ([]*Transaction, error) {
	var out []*Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			continue
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
