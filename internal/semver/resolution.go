package semver

import "fmt"

// ResolutionStrategy is (name, description, risk, changes[], recommended).
type ResolutionStrategy struct {
	Name        string
	Description string
	Risk        BreakingChangeRisk
	Changes     []string
	Recommended bool
}

// SuggestResolutions emits up to four strategies, in order:
// (1) Use latest compatible, (2) Update <source> per
// Caret/Tilde dependency, (3) Pin versions, (4) Use version override. The
// first emitted strategy is marked recommended.
func SuggestResolutions(conflict VersionConflict) []ResolutionStrategy {
	deps := conflict.Dependencies
	if len(deps) < 2 {
		return nil
	}

	var strategies []ResolutionStrategy

	if s, ok := commonVersionStrategy(conflict); ok {
		strategies = append(strategies, s)
	}

	for _, dep := range deps {
		if dep.Constraint.Type == Caret || dep.Constraint.Type == Tilde {
			strategies = append(strategies, ResolutionStrategy{
				Name:        fmt.Sprintf("Update %s", dep.Source),
				Description: fmt.Sprintf("Update %s to a version compatible with other constraints", dep.Source),
				Risk:        RiskLow,
				Changes:     []string{fmt.Sprintf("Update %s to latest compatible version", dep.Source)},
			})
		}
	}

	strategies = append(strategies, ResolutionStrategy{
		Name:        "Pin versions",
		Description: "Pin all packages to specific compatible versions",
		Risk:        RiskMedium,
		Changes: []string{
			fmt.Sprintf("Pin %s to a specific version", conflict.Package),
			"May require manual testing for compatibility",
		},
	})

	strategies = append(strategies, ResolutionStrategy{
		Name:        "Use version override",
		Description: "Force a specific version using package manager overrides",
		Risk:        RiskHigh,
		Changes: []string{
			fmt.Sprintf("Add resolution override for %s", conflict.Package),
			"May cause runtime issues if incompatible",
		},
	})

	if len(strategies) > 0 {
		strategies[0].Recommended = true
	}
	return strategies
}

// commonVersionStrategy implements the "Use latest compatible" heuristic:
// recommended iff every constraint is Caret/Tilde/GreaterEq and they all
// share a single major version.
func commonVersionStrategy(conflict VersionConflict) (ResolutionStrategy, bool) {
	majors := make(map[int]struct{})
	allCompatible := true

	for _, d := range conflict.Dependencies {
		c := d.Constraint
		if c.HasVersion {
			majors[c.Version.Major] = struct{}{}
		}
		if c.Type != Caret && c.Type != Tilde && c.Type != GreaterEq {
			allCompatible = false
		}
	}

	if !allCompatible || len(majors) != 1 {
		return ResolutionStrategy{}, false
	}

	var major int
	for m := range majors {
		major = m
	}

	return ResolutionStrategy{
		Name:        "Use latest compatible",
		Description: fmt.Sprintf("Use the latest %d.x.x version", major),
		Risk:        RiskNone,
		Changes: []string{
			fmt.Sprintf("All constraints are compatible within %d.x range", major),
			"Install the latest version that satisfies all constraints",
		},
		Recommended: true,
	}, true
}
