package history

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"cortex/internal/logging"
	"cortex/internal/persistence"
)

// InstallationRecord is the coarser-grained sibling of Transaction: one
// row per whole installation plan rather than per package
// operation.
type InstallationRecord struct {
	ID         string
	Timestamp  time.Time
	Type       TransactionType
	Packages   []string
	Status     TransactionStatus
	Before     []PackageSnapshot
	After      []PackageSnapshot
	Commands   []string
	Error      string
	Duration   time.Duration
	RollbackOK bool
}

// InstallationLedger is the SQLite-backed installation ledger.
type InstallationLedger struct {
	db *sql.DB
}

// OpenLedger opens (creating if absent) the installation ledger database
// at path and ensures its schema exists.
func OpenLedger(path string) (*InstallationLedger, error) {
	db, err := persistence.Open(path)
	if err != nil {
		return nil, fmt.Errorf("history: open ledger %s: %w", path, err)
	}
	l := &InstallationLedger{db: db}
	if err := l.migrate(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *InstallationLedger) migrate() error {
	_, err := l.db.Exec(`
CREATE TABLE IF NOT EXISTS installations (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	operation_type TEXT NOT NULL,
	packages_json TEXT NOT NULL,
	status TEXT NOT NULL,
	before_snapshot_json TEXT,
	after_snapshot_json TEXT,
	commands_json TEXT,
	error TEXT,
	rollback_available INTEGER NOT NULL DEFAULT 1,
	duration_seconds REAL
);
CREATE INDEX IF NOT EXISTS idx_installations_timestamp ON installations(timestamp);
`)
	if err != nil {
		return fmt.Errorf("history: migrate ledger: %w", err)
	}
	return nil
}

// generateLedgerID hashes timestamp+sorted-packages
// into a record ID, distinct from Transaction's random suffix
// scheme since a whole plan is keyed by its content, not just time.
func generateLedgerID(timestamp time.Time, packages []string) string {
	sorted := append([]string(nil), packages...)
	sort.Strings(sorted)
	data := fmt.Sprintf("%s:%s", timestamp.Format(time.RFC3339Nano), strings.Join(sorted, ":"))
	sum := md5.Sum([]byte(data))
	return hex.EncodeToString(sum[:])[:16]
}

// Record starts an installation-plan record: it snapshots every named
// package's current state before the plan executes. If packages is
// empty, the caller is expected to have already derived them from
// commands (parsing command strings is a CLI-layer concern).
func (l *InstallationLedger) Record(ctx context.Context, txType TransactionType, packages []string, commands []string, capture func(ctx context.Context, pkg string) PackageSnapshot) (*InstallationRecord, error) {
	before := make([]PackageSnapshot, 0, len(packages))
	for _, pkg := range packages {
		before = append(before, capture(ctx, pkg))
	}

	timestamp := time.Now()
	rec := &InstallationRecord{
		ID:         generateLedgerID(timestamp, packages),
		Timestamp:  timestamp,
		Type:       txType,
		Packages:   packages,
		Status:     StatusInProgress,
		Before:     before,
		Commands:   commands,
		RollbackOK: true,
	}
	if err := l.save(rec); err != nil {
		return nil, err
	}
	logging.History("recorded installation %s (%s) for %v", rec.ID, txType, packages)
	return rec, nil
}

// Complete finalizes an installation record after execution.
func (l *InstallationLedger) Complete(ctx context.Context, rec *InstallationRecord, status TransactionStatus, errMsg string, capture func(ctx context.Context, pkg string) PackageSnapshot) error {
	after := make([]PackageSnapshot, 0, len(rec.Packages))
	for _, pkg := range rec.Packages {
		after = append(after, capture(ctx, pkg))
	}
	rec.After = after
	rec.Status = status
	rec.Error = errMsg
	rec.Duration = time.Since(rec.Timestamp)

	if err := l.save(rec); err != nil {
		return err
	}
	logging.History("completed installation %s: %s", rec.ID, status)
	return nil
}

func (l *InstallationLedger) save(rec *InstallationRecord) error {
	packagesJSON, err := json.Marshal(rec.Packages)
	if err != nil {
		return err
	}
	beforeJSON, err := json.Marshal(rec.Before)
	if err != nil {
		return err
	}
	afterJSON, err := json.Marshal(rec.After)
	if err != nil {
		return err
	}
	commandsJSON, err := json.Marshal(rec.Commands)
	if err != nil {
		return err
	}

	_, err = l.db.Exec(`
INSERT INTO installations
	(id, timestamp, operation_type, packages_json, status, before_snapshot_json,
	 after_snapshot_json, commands_json, error, rollback_available, duration_seconds)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	status = excluded.status,
	after_snapshot_json = excluded.after_snapshot_json,
	error = excluded.error,
	duration_seconds = excluded.duration_seconds`,
		rec.ID, rec.Timestamp.Format(time.RFC3339Nano), string(rec.Type), string(packagesJSON), string(rec.Status),
		string(beforeJSON), string(afterJSON), string(commandsJSON), rec.Error, boolToInt(rec.RollbackOK), rec.Duration.Seconds(),
	)
	return err
}

// Get returns an installation record by ID.
func (l *InstallationLedger) Get(id string) (*InstallationRecord, error) {
	row := l.db.QueryRow(`SELECT * FROM installations WHERE id = ?`, id)
	return scanInstallation(row)
}

// GetHistory returns up to limit installation records, most recent
// first, optionally filtered by status.
func (l *InstallationLedger) GetHistory(limit int, status TransactionStatus) ([]*InstallationRecord, error) {
	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = l.db.Query(`SELECT * FROM installations WHERE status = ? ORDER BY timestamp DESC LIMIT ?`, string(status), limit)
	} else {
		rows, err = l.db.Query(`SELECT * FROM installations ORDER BY timestamp DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*InstallationRecord
	for rows.Next() {
		rec, err := scanInstallation(rows)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RollbackPlan reconstructs install/remove commands for rec by diffing
// its before/after snapshots, the snapshot-diff
// rollback for the coarser-grained ledger.
func RollbackPlan(rec *InstallationRecord) []string {
	before := map[string]PackageSnapshot{}
	for _, s := range rec.Before {
		before[s.Name] = s
	}
	after := map[string]PackageSnapshot{}
	for _, s := range rec.After {
		after[s.Name] = s
	}

	names := map[string]bool{}
	for name := range before {
		names[name] = true
	}
	for name := range after {
		names[name] = true
	}

	var cmds []string
	for name := range names {
		b, hasBefore := before[name]
		a, hasAfter := after[name]

		switch {
		case !hasBefore && hasAfter && a.Installed:
			cmds = append(cmds, fmt.Sprintf("sudo apt-get remove -y %s", name))
		case hasBefore && !hasAfter && b.Installed:
			cmds = append(cmds, installCommand(name, b.Version))
		case hasBefore && hasAfter:
			if !b.Installed && a.Installed {
				cmds = append(cmds, fmt.Sprintf("sudo apt-get remove -y %s", name))
			} else if b.Installed && !a.Installed {
				cmds = append(cmds, installCommand(name, b.Version))
			} else if b.Version != a.Version && b.Installed {
				cmds = append(cmds, installCommand(name, b.Version))
			}
		}
	}
	return cmds
}

func installCommand(name, version string) string {
	if version != "" {
		return fmt.Sprintf("sudo apt-get install -y %s=%s", name, version)
	}
	return fmt.Sprintf("sudo apt-get install -y %s", name)
}

// Rollback reconstructs and optionally executes the commands that would
// undo installation id. dryRun returns the plan without executing it.
func (l *InstallationLedger) Rollback(ctx context.Context, id string, dryRun bool) (bool, string, error) {
	rec, err := l.Get(id)
	if err != nil {
		return false, "", err
	}
	if rec == nil {
		return false, fmt.Sprintf("installation %s not found", id), nil
	}
	if !rec.RollbackOK {
		return false, "rollback not available for this installation", nil
	}
	if rec.Status == StatusRolledBack {
		return false, "installation already rolled back", nil
	}

	cmds := RollbackPlan(rec)
	if len(cmds) == 0 {
		return true, "no rollback actions needed", nil
	}
	if dryRun {
		plan := ""
		for i, c := range cmds {
			if i > 0 {
				plan += "\n"
			}
			plan += c
		}
		return true, plan, nil
	}

	var errs []string
	for _, cmd := range cmds {
		if err := runShellCommand(ctx, cmd); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", cmd, err))
		}
	}

	if len(errs) == 0 {
		rec.Status = StatusRolledBack
		if err := l.save(rec); err != nil {
			return false, "", err
		}
		return true, fmt.Sprintf("rollback successful for %s", id), nil
	}

	rec.Status = StatusPartiallyCompleted
	rec.Error = joinErrors(errs)
	if err := l.save(rec); err != nil {
		return false, "", err
	}
	return false, "rollback failed: " + rec.Error, nil
}

func joinErrors(errs []string) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e
	}
	return out
}

func scanInstallation(row rowScanner) (*InstallationRecord, error) {
	var (
		id, typ, packagesJSON, timestamp, status string
		beforeJSON, afterJSON, commandsJSON      sql.NullString
		errStr                                   sql.NullString
		rollbackAvailable                        int
		duration                                 sql.NullFloat64
	)
	if err := row.Scan(&id, &timestamp, &typ, &packagesJSON, &status, &beforeJSON, &afterJSON,
		&commandsJSON, &errStr, &rollbackAvailable, &duration); err != nil {
		return nil, err
	}

	rec := &InstallationRecord{
		ID:         id,
		Type:       TransactionType(typ),
		Status:     TransactionStatus(status),
		Error:      errStr.String,
		RollbackOK: rollbackAvailable != 0,
		Duration:   time.Duration(duration.Float64 * float64(time.Second)),
	}
	if ts, err := time.Parse(time.RFC3339Nano, timestamp); err == nil {
		rec.Timestamp = ts
	}
	_ = json.Unmarshal([]byte(packagesJSON), &rec.Packages)
	if beforeJSON.Valid {
		_ = json.Unmarshal([]byte(beforeJSON.String), &rec.Before)
	}
	if afterJSON.Valid {
		_ = json.Unmarshal([]byte(afterJSON.String), &rec.After)
	}
	if commandsJSON.Valid {
		_ = json.Unmarshal([]byte(commandsJSON.String), &rec.Commands)
	}
	return rec, nil
}
