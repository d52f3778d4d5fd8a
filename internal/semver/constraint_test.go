package semver

import "testing"

func mustVersion(t *testing.T, s string) Version {
	t.Helper()
	v, ok := ParseVersion(s)
	if !ok {
		t.Fatalf("ParseVersion(%q) failed", s)
	}
	return v
}

func TestParseConstraint_Kinds(t *testing.T) {
	cases := []struct {
		in       string
		wantType ConstraintType
		wantOK   bool
	}{
		{"", Any, true},
		{"*", Any, true},
		{"^1.2.3", Caret, true},
		{"~1.2.3", Tilde, true},
		{">=1.0.0", GreaterEq, true},
		{">1.0.0", Greater, true},
		{"<=1.0.0", LessEq, true},
		{"<1.0.0", Less, true},
		{"=1.0.0", Exact, true},
		{"1.0.0", Exact, true},
		{">=1.0.0 <2.0.0", RangeKind, true},
		{"not-a-version", "", false},
	}
	for _, c := range cases {
		got, ok := ParseConstraint(c.in)
		if ok != c.wantOK {
			t.Errorf("ParseConstraint(%q) ok = %v, want %v", c.in, ok, c.wantOK)
			continue
		}
		if ok && got.Type != c.wantType {
			t.Errorf("ParseConstraint(%q) type = %v, want %v", c.in, got.Type, c.wantType)
		}
	}
}

func TestCaretSatisfies(t *testing.T) {
	c, ok := ParseConstraint("^1.2.3")
	if !ok {
		t.Fatal("parse failed")
	}
	if !c.Satisfies(mustVersion(t, "1.2.3")) {
		t.Error("^1.2.3 should satisfy 1.2.3")
	}
	if !c.Satisfies(mustVersion(t, "1.9.0")) {
		t.Error("^1.2.3 should satisfy 1.9.0")
	}
	if c.Satisfies(mustVersion(t, "2.0.0")) {
		t.Error("^1.2.3 should not satisfy 2.0.0")
	}
	if c.Satisfies(mustVersion(t, "1.2.2")) {
		t.Error("^1.2.3 should not satisfy 1.2.2")
	}
}

func TestCaretZeroMajorSatisfies(t *testing.T) {
	c, ok := ParseConstraint("^0.2.3")
	if !ok {
		t.Fatal("parse failed")
	}
	if !c.Satisfies(mustVersion(t, "0.2.9")) {
		t.Error("^0.2.3 should satisfy 0.2.9")
	}
	if c.Satisfies(mustVersion(t, "0.3.0")) {
		t.Error("^0.2.3 should not satisfy 0.3.0 (0.x treats minor as breaking)")
	}
}

func TestTildeSatisfies(t *testing.T) {
	c, ok := ParseConstraint("~1.2.3")
	if !ok {
		t.Fatal("parse failed")
	}
	if !c.Satisfies(mustVersion(t, "1.2.9")) {
		t.Error("~1.2.3 should satisfy 1.2.9")
	}
	if c.Satisfies(mustVersion(t, "1.3.0")) {
		t.Error("~1.2.3 should not satisfy 1.3.0")
	}
}

func TestRangeSatisfies(t *testing.T) {
	c, ok := ParseConstraint(">=1.0.0 <2.0.0")
	if !ok {
		t.Fatal("parse failed")
	}
	if !c.Satisfies(mustVersion(t, "1.5.0")) {
		t.Error("range should satisfy 1.5.0")
	}
	if c.Satisfies(mustVersion(t, "2.0.0")) {
		t.Error("range should not satisfy 2.0.0 (exclusive upper bound)")
	}
	if c.Satisfies(mustVersion(t, "0.9.0")) {
		t.Error("range should not satisfy 0.9.0 (below lower bound)")
	}
}

func TestAnySatisfiesEverything(t *testing.T) {
	c, _ := ParseConstraint("*")
	if !c.Satisfies(mustVersion(t, "0.0.1")) {
		t.Error("Any should satisfy any version")
	}
}
