package semver

// Dependency is (package_name, Constraint, source_package).
type Dependency struct {
	Package    string
	Constraint Constraint
	Source     string
}

// VersionConflict aggregates >=2 dependencies of the same package.
type VersionConflict struct {
	Package         string
	Dependencies    []Dependency
	ResolvedVersion *Version
}

// IsConflicting reports whether any pairwise combination of this
// conflict's constraints is incompatible, per the conservative
// compatibility table below. Compatible means "maybe
// satisfiable"; this deliberately may miss some real conflicts.
func (vc VersionConflict) IsConflicting() bool {
	if len(vc.Dependencies) < 2 {
		return false
	}
	constraints := make([]Constraint, len(vc.Dependencies))
	for i, d := range vc.Dependencies {
		constraints[i] = d.Constraint
	}
	for i, c1 := range constraints {
		for _, c2 := range constraints[i+1:] {
			if !constraintsCompatible(c1, c2) {
				return true
			}
		}
	}
	return false
}

// constraintsCompatible is the pairwise compatibility table.
// All pairings default to compatible except the enumerated
// incompatible cases.
func constraintsCompatible(c1, c2 Constraint) bool {
	if c1.Type == Any || c2.Type == Any {
		return true
	}
	if !c1.HasVersion || !c2.HasVersion {
		return true
	}

	// Caret vs Caret: both major > 0 and differing majors -> incompatible.
	if c1.Type == Caret && c2.Type == Caret {
		if c1.Version.Major > 0 && c2.Version.Major > 0 && c1.Version.Major != c2.Version.Major {
			return false
		}
		return true
	}

	// Caret vs Tilde (either order): differing majors -> incompatible;
	// same major but the tilde's minor is lower than the caret's minor
	// -> incompatible.
	if c1.Type == Caret && c2.Type == Tilde {
		return caretTildeCompatible(c1, c2)
	}
	if c1.Type == Tilde && c2.Type == Caret {
		return caretTildeCompatible(c2, c1)
	}

	return true
}

func caretTildeCompatible(caret, tilde Constraint) bool {
	if caret.Version.Major != tilde.Version.Major {
		return false
	}
	if tilde.Version.Minor < caret.Version.Minor {
		return false
	}
	return true
}

// Resolver accumulates dependencies keyed by package name and detects
// conflicts among them.
type Resolver struct {
	dependencies map[string][]Dependency
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{dependencies: make(map[string][]Dependency)}
}

// AddDependency parses constraintStr and, on success, records the
// dependency under package. Returns false if the constraint is
// unparseable.
func (r *Resolver) AddDependency(pkg, constraintStr, source string) bool {
	c, ok := ParseConstraint(constraintStr)
	if !ok {
		return false
	}
	r.dependencies[pkg] = append(r.dependencies[pkg], Dependency{
		Package:    pkg,
		Constraint: c,
		Source:     source,
	})
	return true
}

// DetectConflicts returns one VersionConflict per package with >=2
// dependencies whose constraints are pairwise incompatible.
func (r *Resolver) DetectConflicts() []VersionConflict {
	var conflicts []VersionConflict
	for pkg, deps := range r.dependencies {
		if len(deps) < 2 {
			continue
		}
		vc := VersionConflict{Package: pkg, Dependencies: deps}
		if vc.IsConflicting() {
			conflicts = append(conflicts, vc)
		}
	}
	return conflicts
}
