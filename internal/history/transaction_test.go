package history

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestHistory(t *testing.T) *TransactionHistory {
	t.Helper()
	h, err := Open(filepath.Join(t.TempDir(), "transaction_history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return h
}

func TestIsCriticalPackage(t *testing.T) {
	cases := map[string]bool{
		"systemd":     true,
		"libc6-dev":   true,
		"nginx":       false,
		"grub-common": true,
		"htop":        false,
	}
	for pkg, want := range cases {
		if got := isCriticalPackage(pkg); got != want {
			t.Errorf("isCriticalPackage(%q) = %v, want %v", pkg, got, want)
		}
	}
}

func TestSynthesizeRollbackCommands_Install(t *testing.T) {
	before := map[string]PackageSnapshot{"htop": {Name: "htop", Installed: false}}
	cmds := synthesizeRollbackCommands(TypeInstall, []string{"htop"}, before)
	if len(cmds) != 1 || cmds[0] != "sudo apt remove -y htop" {
		t.Fatalf("cmds = %v", cmds)
	}
}

func TestSynthesizeRollbackCommands_RemoveReinstallsPinnedVersion(t *testing.T) {
	before := map[string]PackageSnapshot{"htop": {Name: "htop", Installed: true, Version: "3.0.5-7"}}
	cmds := synthesizeRollbackCommands(TypeRemove, []string{"htop"}, before)
	if len(cmds) != 1 || cmds[0] != "sudo apt install -y htop=3.0.5-7" {
		t.Fatalf("cmds = %v", cmds)
	}
}

func TestSynthesizeRollbackCommands_PurgeWarnsAboutConfig(t *testing.T) {
	before := map[string]PackageSnapshot{"nginx": {Name: "nginx", Installed: true, Version: "1.18"}}
	cmds := synthesizeRollbackCommands(TypePurge, []string{"nginx"}, before)
	if len(cmds) != 2 {
		t.Fatalf("cmds = %v, want install + comment", cmds)
	}
	if cmds[1][0] != '#' {
		t.Fatalf("expected trailing comment line noting config loss, got %q", cmds[1])
	}
}

func TestAssessRollbackSafety_RefusesCriticalPackage(t *testing.T) {
	safe, warning := assessRollbackSafety(TypeRemove, []string{"systemd-sysv"})
	if safe {
		t.Fatal("expected rollback to be marked unsafe for a critical package")
	}
	if warning == "" {
		t.Fatal("expected a warning message")
	}
}

func TestAssessRollbackSafety_SafeForOrdinaryPackage(t *testing.T) {
	safe, _ := assessRollbackSafety(TypeInstall, []string{"htop"})
	if !safe {
		t.Fatal("expected rollback to be safe for an ordinary package")
	}
}

func TestBeginAndGet_RoundTrips(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	tx, err := h.Begin(ctx, TypeInstall, []string{"nonexistent-test-package"}, "apt-get install -y nonexistent-test-package")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if tx.Status != StatusInProgress {
		t.Fatalf("status = %v, want in_progress", tx.Status)
	}

	got, err := h.Get(tx.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ID != tx.ID {
		t.Fatalf("Get returned %+v", got)
	}
}

func TestComplete_UpdatesStatusAndCapturesAfterState(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	tx, err := h.Begin(ctx, TypeInstall, []string{"nonexistent-test-package"}, "cmd")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := h.Complete(ctx, tx, true, ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if tx.Status != StatusCompleted {
		t.Fatalf("status = %v, want completed", tx.Status)
	}

	got, err := h.Get(tx.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("persisted status = %v, want completed", got.Status)
	}
}

func TestGetRecent_OrdersMostRecentFirst(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	first, _ := h.Begin(ctx, TypeInstall, []string{"pkg-a"}, "cmd-a")
	second, _ := h.Begin(ctx, TypeRemove, []string{"pkg-b"}, "cmd-b")

	recent, err := h.GetRecent(10)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].ID != second.ID || recent[1].ID != first.ID {
		t.Fatalf("order = [%s, %s], want most-recent first", recent[0].ID, recent[1].ID)
	}
}

func TestSearch_FiltersByStatusAndPackage(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	tx, _ := h.Begin(ctx, TypeInstall, []string{"special-filter-pkg"}, "cmd")
	h.Complete(ctx, tx, true, "")

	results, err := h.Search(SearchFilter{Package: "special-filter-pkg", Status: StatusCompleted})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != tx.ID {
		t.Fatalf("results = %v", results)
	}

	noMatch, err := h.Search(SearchFilter{Package: "special-filter-pkg", Status: StatusFailed})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(noMatch) != 0 {
		t.Fatalf("expected no matches for wrong status, got %v", noMatch)
	}
}

func TestGetStats_TalliesByStatusAndType(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	tx1, _ := h.Begin(ctx, TypeInstall, []string{"pkg-a"}, "cmd")
	h.Complete(ctx, tx1, true, "")
	tx2, _ := h.Begin(ctx, TypeRemove, []string{"pkg-b"}, "cmd")
	h.Complete(ctx, tx2, false, "boom")

	stats, err := h.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Total != 2 {
		t.Fatalf("total = %d, want 2", stats.Total)
	}
	if stats.ByStatus[StatusCompleted] != 1 || stats.ByStatus[StatusFailed] != 1 {
		t.Fatalf("byStatus = %v", stats.ByStatus)
	}
	if stats.ByType[TypeInstall] != 1 || stats.ByType[TypeRemove] != 1 {
		t.Fatalf("byType = %v", stats.ByType)
	}
}
