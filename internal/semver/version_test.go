package semver

import "testing"

func TestParseVersion(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"1.2.3", true},
		{"0.0.1", true},
		{"1.2.3-beta.1", true},
		{"1.2.3+build.5", true},
		{"1.2.3-beta.1+build.5", true},
		{"1.2", false},
		{"v1.2.3", false},
		{"1.2.3.4", false},
		{"", false},
	}
	for _, c := range cases {
		_, ok := ParseVersion(c.in)
		if ok != c.ok {
			t.Errorf("ParseVersion(%q) ok = %v, want %v", c.in, ok, c.ok)
		}
	}
}

func TestVersionLess(t *testing.T) {
	v1, _ := ParseVersion("1.2.3")
	v2, _ := ParseVersion("1.2.4")
	v3, _ := ParseVersion("2.0.0")
	pre, _ := ParseVersion("1.2.3-beta")

	if !v1.Less(v2) {
		t.Errorf("expected 1.2.3 < 1.2.4")
	}
	if !v2.Less(v3) {
		t.Errorf("expected 1.2.4 < 2.0.0")
	}
	if !pre.Less(v1) {
		t.Errorf("expected prerelease < release of same major.minor.patch")
	}
	if v1.Less(v1) {
		t.Errorf("expected v1 not less than itself")
	}
}

func TestVersionEqualIgnoresBuild(t *testing.T) {
	v1, _ := ParseVersion("1.2.3+build.1")
	v2, _ := ParseVersion("1.2.3+build.2")
	if !v1.Equal(v2) {
		t.Errorf("expected build metadata to be ignored in equality")
	}
}

func TestBreakingChangeFrom(t *testing.T) {
	v1, _ := ParseVersion("1.0.0")
	v2major, _ := ParseVersion("2.0.0")
	v2minor, _ := ParseVersion("1.1.0")
	v2patch, _ := ParseVersion("1.0.1")

	if got := v2major.BreakingChangeFrom(v1); got != RiskHigh {
		t.Errorf("major bump risk = %v, want %v", got, RiskHigh)
	}
	if got := v2minor.BreakingChangeFrom(v1); got != RiskLow {
		t.Errorf("minor bump risk = %v, want %v", got, RiskLow)
	}
	if got := v2patch.BreakingChangeFrom(v1); got != RiskNone {
		t.Errorf("patch bump risk = %v, want %v", got, RiskNone)
	}
}
