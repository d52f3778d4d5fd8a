package impact

import (
	"context"
	"testing"

	"cortex/internal/depgraph"
)

type fakeGraph struct {
	reverse map[string][]string
}

func (f *fakeGraph) GetPackageInfo(ctx context.Context, name string) *depgraph.Package { return nil }
func (f *fakeGraph) GetReverseDependencies(ctx context.Context, name string) []string {
	return f.reverse[name]
}
func (f *fakeGraph) GetTransitiveDependents(ctx context.Context, name string, maxDepth int) ([]string, int) {
	return nil, 0
}

func newFakeGraphForOrdering() *fakeGraph {
	// "base" is depended on by "leaf"; removing in a safe order means
	// leaf (no remaining dependents within the candidate set) goes first.
	return &fakeGraph{reverse: map[string][]string{
		"base": {"leaf"},
		"leaf": nil,
	}}
}

func TestCalculateSeverity_ThresholdsClassifyCorrectly(t *testing.T) {
	a := New(nil)

	cases := []struct {
		total int
		want  Severity
	}{
		{0, SeveritySafe},
		{1, SeverityLow},
		{5, SeverityMedium},
		{20, SeverityHigh},
		{50, SeverityCritical},
	}
	for _, c := range cases {
		r := Result{TotalAffected: c.total}
		if got := a.calculateSeverity(r); got != c.want {
			t.Errorf("calculateSeverity(total=%d) = %q, want %q", c.total, got, c.want)
		}
	}
}

func TestCalculateSeverity_CriticalRunningServiceOverridesCount(t *testing.T) {
	a := New(nil)
	r := Result{
		TotalAffected: 1,
		AffectedServices: []ServiceInfo{
			{Name: "nginx", Status: ServiceRunning, Critical: true},
		},
	}
	if got := a.calculateSeverity(r); got != SeverityCritical {
		t.Fatalf("got %q, want critical", got)
	}
}

func TestCalculateSeverity_AlreadyCriticalStaysCritical(t *testing.T) {
	a := New(nil)
	r := Result{Severity: SeverityCritical, TotalAffected: 0}
	if got := a.calculateSeverity(r); got != SeverityCritical {
		t.Fatalf("got %q, want critical", got)
	}
}

func TestRecommendations_SafeToRemoveSuggestsProceeding(t *testing.T) {
	a := New(nil)
	r := Result{TargetPackage: "htop", SafeToRemove: true, Severity: SeveritySafe}
	recs := a.recommendations(r)

	found := false
	for _, rec := range recs {
		if containsSubstring(rec, "safely removed") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a 'safely removed' recommendation, got %v", recs)
	}
}

func TestRecommendations_UnsafeSuggestsReview(t *testing.T) {
	a := New(nil)
	r := Result{TargetPackage: "libc6", SafeToRemove: false, Severity: SeverityCritical}
	recs := a.recommendations(r)

	found := false
	for _, rec := range recs {
		if containsSubstring(rec, "NOT safe") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a 'NOT safe' recommendation, got %v", recs)
	}
}

func TestRecommendations_AlternativesSurfaced(t *testing.T) {
	a := New(nil)
	r := Result{TargetPackage: "nginx", SafeToRemove: true}
	recs := a.recommendations(r)

	found := false
	for _, rec := range recs {
		if containsSubstring(rec, "apache2") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected nginx alternatives to be suggested, got %v", recs)
	}
}

func TestGetSafeRemovalOrder_OrdersLeavesBeforeDependedUpon(t *testing.T) {
	g := newFakeGraphForOrdering()
	a := New(g)

	order := a.GetSafeRemovalOrder(nil, []string{"base", "leaf"})
	if len(order) != 2 {
		t.Fatalf("order = %v, want 2 entries", order)
	}
	if order[0] != "leaf" {
		t.Fatalf("order = %v, want leaf removed first", order)
	}
}

func TestFormatBytes_PicksAppropriateUnit(t *testing.T) {
	cases := map[int64]string{
		500:                    "500 bytes",
		2048:                   "2.00 KB",
		5 * 1024 * 1024:        "5.00 MB",
		3 * 1024 * 1024 * 1024: "3.00 GB",
	}
	for n, want := range cases {
		if got := formatBytes(n); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func containsSubstring(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}
