package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestLedger(t *testing.T) *InstallationLedger {
	t.Helper()
	l, err := OpenLedger(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	return l
}

func fakeCapture(states map[string]PackageSnapshot) func(ctx context.Context, pkg string) PackageSnapshot {
	return func(ctx context.Context, pkg string) PackageSnapshot {
		if s, ok := states[pkg]; ok {
			return s
		}
		return PackageSnapshot{Name: pkg, Installed: false}
	}
}

func TestGenerateLedgerID_DeterministicForSameInput(t *testing.T) {
	ts := time.Now()
	id1 := generateLedgerID(ts, []string{"nginx", "curl"})
	id2 := generateLedgerID(ts, []string{"curl", "nginx"})
	if id1 != id2 {
		t.Fatalf("expected package order to not affect the ID: %q vs %q", id1, id2)
	}
	if len(id1) != 16 {
		t.Fatalf("len(id) = %d, want 16", len(id1))
	}
}

func TestRecordAndGet_RoundTrips(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	before := map[string]PackageSnapshot{"nginx": {Name: "nginx", Installed: false}}
	rec, err := l.Record(ctx, TypeInstall, []string{"nginx"}, []string{"apt-get install -y nginx"}, fakeCapture(before))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := l.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ID != rec.ID {
		t.Fatalf("Get returned %+v", got)
	}
	if len(got.Before) != 1 || got.Before[0].Name != "nginx" {
		t.Fatalf("before snapshot = %v", got.Before)
	}
}

func TestComplete_UpdatesStatusAndAfterSnapshot(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	before := map[string]PackageSnapshot{"nginx": {Name: "nginx", Installed: false}}
	rec, _ := l.Record(ctx, TypeInstall, []string{"nginx"}, nil, fakeCapture(before))

	after := map[string]PackageSnapshot{"nginx": {Name: "nginx", Installed: true, Version: "1.18.0"}}
	if err := l.Complete(ctx, rec, StatusCompleted, "", fakeCapture(after)); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got, _ := l.Get(rec.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("status = %v, want completed", got.Status)
	}
	if len(got.After) != 1 || !got.After[0].Installed {
		t.Fatalf("after snapshot = %v", got.After)
	}
}

func TestRollbackPlan_ReconstructsInstallAndRemove(t *testing.T) {
	rec := &InstallationRecord{
		Before: []PackageSnapshot{
			{Name: "nginx", Installed: false},
			{Name: "curl", Installed: true, Version: "7.0"},
		},
		After: []PackageSnapshot{
			{Name: "nginx", Installed: true, Version: "1.18"},
			{Name: "curl", Installed: false},
		},
	}
	cmds := RollbackPlan(rec)

	wantRemoveNginx := false
	wantReinstallCurl := false
	for _, c := range cmds {
		if c == "sudo apt-get remove -y nginx" {
			wantRemoveNginx = true
		}
		if c == "sudo apt-get install -y curl=7.0" {
			wantReinstallCurl = true
		}
	}
	if !wantRemoveNginx {
		t.Errorf("expected a remove command for newly-installed nginx, got %v", cmds)
	}
	if !wantReinstallCurl {
		t.Errorf("expected a pinned reinstall command for removed curl, got %v", cmds)
	}
}

func TestRollbackPlan_NoActionWhenStateUnchanged(t *testing.T) {
	rec := &InstallationRecord{
		Before: []PackageSnapshot{{Name: "htop", Installed: true, Version: "3.0"}},
		After:  []PackageSnapshot{{Name: "htop", Installed: true, Version: "3.0"}},
	}
	cmds := RollbackPlan(rec)
	if len(cmds) != 0 {
		t.Fatalf("cmds = %v, want none", cmds)
	}
}

func TestLedgerRollback_DryRunReturnsPlanWithoutExecuting(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	before := map[string]PackageSnapshot{"nginx": {Name: "nginx", Installed: false}}
	rec, _ := l.Record(ctx, TypeInstall, []string{"nginx"}, nil, fakeCapture(before))
	after := map[string]PackageSnapshot{"nginx": {Name: "nginx", Installed: true, Version: "1.18"}}
	l.Complete(ctx, rec, StatusCompleted, "", fakeCapture(after))

	ok, plan, err := l.Rollback(ctx, rec.ID, true)
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if !ok {
		t.Fatalf("expected dry-run rollback to report ok, got message %q", plan)
	}
	if plan != "sudo apt-get remove -y nginx" {
		t.Fatalf("plan = %q", plan)
	}

	got, _ := l.Get(rec.ID)
	if got.Status == StatusRolledBack {
		t.Fatal("dry run must not change installation status")
	}
}

func TestLedgerRollback_RefusesAlreadyRolledBack(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	before := map[string]PackageSnapshot{"nginx": {Name: "nginx", Installed: false}}
	rec, _ := l.Record(ctx, TypeInstall, []string{"nginx"}, nil, fakeCapture(before))
	rec.Status = StatusRolledBack
	l.save(rec)

	ok, msg, err := l.Rollback(ctx, rec.ID, false)
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if ok {
		t.Fatalf("expected refusal, got success with message %q", msg)
	}
}
