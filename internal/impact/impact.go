// Package impact analyzes the blast radius of removing a package:
// direct/transitive dependents, apt cascade/autoremove simulation,
// systemd service mapping, severity classification, and a rule-based
// recommendation engine, built atop internal/depgraph for the adjacency
// queries instead of re-deriving them.
package impact

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"cortex/internal/depgraph"
	"cortex/internal/logging"
)

// Severity is the classified blast radius of a removal.
type Severity string

const (
	SeveritySafe     Severity = "safe"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ServiceStatus is a systemd unit's observed state.
type ServiceStatus string

const (
	ServiceRunning  ServiceStatus = "running"
	ServiceStopped  ServiceStatus = "stopped"
	ServiceNotFound ServiceStatus = "not_found"
	ServiceUnknown  ServiceStatus = "unknown"
)

// ServiceInfo describes one systemd unit affected by a removal.
type ServiceInfo struct {
	Name        string
	Status      ServiceStatus
	Package     string
	Description string
	Critical    bool
}

// Result is the full impact analysis for a candidate removal.
type Result struct {
	TargetPackage        string
	DirectDependents     []string
	TransitiveDependents []string
	AffectedServices     []ServiceInfo
	OrphanedPackages     []string
	CascadePackages      []string
	Severity             Severity
	TotalAffected        int
	CascadeDepth         int
	Recommendations      []string
	Warnings             []string
	SafeToRemove         bool
}

// RemovalPlan is a concrete, user-confirmable set of commands to remove
// a package and clean up after it.
type RemovalPlan struct {
	TargetPackage        string
	PackagesToRemove     []string
	AutoremoveCandidates []string
	ConfigFilesAffected  []string
	Commands             []string
	EstimatedFreedSpace  string
}

// packageServiceMap maps well-known packages to their systemd units.
var packageServiceMap = map[string][]string{
	"nginx":           {"nginx"},
	"nginx-core":      {"nginx"},
	"apache2":         {"apache2"},
	"apache2-bin":     {"apache2"},
	"mysql-server":    {"mysql", "mysqld"},
	"mariadb-server":  {"mariadb", "mysql"},
	"postgresql":      {"postgresql", "postgresql@*"},
	"postgresql-14":   {"postgresql", "postgresql@14-main"},
	"redis-server":    {"redis-server", "redis"},
	"mongodb-server":  {"mongod", "mongodb"},
	"tomcat9":         {"tomcat9"},
	"uwsgi":           {"uwsgi"},
	"gunicorn":        {"gunicorn"},
	"openssh-server":  {"ssh", "sshd"},
	"systemd":         {"systemd-*"},
	"cron":            {"cron", "crond"},
	"rsyslog":         {"rsyslog"},
	"docker.io":       {"docker"},
	"docker-ce":       {"docker"},
	"containerd":      {"containerd"},
	"network-manager": {"NetworkManager"},
	"avahi-daemon":    {"avahi-daemon"},
	"cups":            {"cups"},
	"postfix":         {"postfix"},
	"exim4":           {"exim4"},
}

var criticalServices = map[string]bool{
	"ssh": true, "sshd": true, "systemd": true, "NetworkManager": true,
	"docker": true, "postgresql": true, "mysql": true, "mysqld": true,
	"nginx": true, "apache2": true,
}

var alternativesMap = map[string][]string{
	"nginx":          {"apache2", "caddy", "lighttpd"},
	"apache2":        {"nginx", "caddy", "lighttpd"},
	"mysql-server":   {"mariadb-server", "postgresql"},
	"mariadb-server": {"mysql-server", "postgresql"},
	"postgresql":     {"mysql-server", "mariadb-server"},
	"vim":            {"neovim", "nano", "emacs"},
	"nano":           {"vim", "neovim", "emacs"},
}

const (
	criticalDependentsThreshold = 50
	highDependentsThreshold     = 20
	mediumDependentsThreshold   = 5
)

// DependencyGraph is the slice of *depgraph.Graph this package depends
// on, narrowed to an interface so tests can substitute a fake instead
// of shelling out to dpkg/apt.
type DependencyGraph interface {
	GetPackageInfo(ctx context.Context, name string) *depgraph.Package
	GetReverseDependencies(ctx context.Context, name string) []string
	GetTransitiveDependents(ctx context.Context, name string, maxDepth int) ([]string, int)
}

// Analyzer orchestrates impact analysis atop a dependency graph.
type Analyzer struct {
	graph DependencyGraph

	serviceMu    sync.Mutex
	serviceCache map[string]ServiceInfo
}

// New builds an Analyzer over graph (expected to already be, or about
// to be, Initialize'd by the caller).
func New(graph DependencyGraph) *Analyzer {
	return &Analyzer{graph: graph, serviceCache: map[string]ServiceInfo{}}
}

func runCommand(ctx context.Context, timeout time.Duration, name string, args ...string) (string, bool) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := exec.CommandContext(cctx, name, args...).Output()
	return string(out), err == nil
}

// Analyze runs the full impact pipeline: presence and essential checks,
// dependent/cascade/orphan discovery, service mapping, severity
// classification, and recommendations.
func (a *Analyzer) Analyze(ctx context.Context, pkg string) Result {
	log := logging.Get(logging.CategoryImpact)
	result := Result{TargetPackage: pkg, SafeToRemove: true}

	info := a.graph.GetPackageInfo(ctx, pkg)
	installed := info != nil && info.Installed

	if !installed {
		if !a.packageExistsInApt(ctx, pkg) {
			result.Warnings = append(result.Warnings, "package '"+pkg+"' not found in repositories")
			result.Recommendations = append(result.Recommendations, "check package name spelling or search with: apt search "+pkg)
			return result
		}
		result.Warnings = append(result.Warnings, "package '"+pkg+"' is not currently installed")
		result.Recommendations = append(result.Recommendations, "showing potential impact if this package were installed and removed")
	}

	if installed && info.Essential {
		result.Warnings = append(result.Warnings, "'"+pkg+"' is marked as ESSENTIAL; removing it may break the system")
		result.Severity = SeverityCritical
		result.SafeToRemove = false
	}

	result.DirectDependents = a.graph.GetReverseDependencies(ctx, pkg)
	result.TransitiveDependents, result.CascadeDepth = a.graph.GetTransitiveDependents(ctx, pkg, 0)

	affected := map[string]bool{}
	for _, p := range result.DirectDependents {
		affected[p] = true
	}
	for _, p := range result.TransitiveDependents {
		affected[p] = true
	}
	result.TotalAffected = len(affected)

	result.CascadePackages = a.cascadePackages(ctx, pkg)
	result.OrphanedPackages = a.orphanedPackages(ctx, pkg)

	packagesToCheck := append([]string{pkg}, setToSlice(affected)...)
	result.AffectedServices = a.affectedServices(ctx, packagesToCheck)

	result.Severity = a.calculateSeverity(result)
	if result.Severity == SeverityCritical || result.Severity == SeverityHigh {
		result.SafeToRemove = false
	}

	result.Recommendations = append(result.Recommendations, a.recommendations(result)...)

	log.Debug("impact: analyzed %q -> severity=%s total_affected=%d", pkg, result.Severity, result.TotalAffected)
	return result
}

func setToSlice(s map[string]bool) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

func (a *Analyzer) packageExistsInApt(ctx context.Context, pkg string) bool {
	out, ok := runCommand(ctx, 30*time.Second, "apt-cache", "show", pkg)
	return ok && strings.TrimSpace(out) != ""
}

func (a *Analyzer) cascadePackages(ctx context.Context, pkg string) []string {
	out, ok := runCommand(ctx, 30*time.Second, "apt-get", "-s", "remove", pkg)
	if !ok {
		return nil
	}
	var cascade []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Remv ") {
			fields := strings.Fields(line)
			if len(fields) >= 2 && fields[1] != pkg {
				cascade = append(cascade, fields[1])
			}
		}
	}
	return cascade
}

func (a *Analyzer) orphanedPackages(ctx context.Context, pkg string) []string {
	out, ok := runCommand(ctx, 30*time.Second, "apt-get", "-s", "autoremove", "--purge")
	if !ok {
		return nil
	}
	var orphaned []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Remv ") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				orphaned = append(orphaned, fields[1])
			}
		}
	}
	return orphaned
}

func (a *Analyzer) calculateSeverity(r Result) Severity {
	if r.Severity == SeverityCritical {
		return SeverityCritical
	}

	for _, svc := range r.AffectedServices {
		if svc.Critical && svc.Status == ServiceRunning {
			return SeverityCritical
		}
	}

	switch {
	case r.TotalAffected >= criticalDependentsThreshold:
		return SeverityCritical
	case r.TotalAffected >= highDependentsThreshold:
		return SeverityHigh
	case r.TotalAffected >= mediumDependentsThreshold:
		return SeverityMedium
	case r.TotalAffected > 0:
		return SeverityLow
	default:
		return SeveritySafe
	}
}

func (a *Analyzer) recommendations(r Result) []string {
	var recs []string

	if r.Severity == SeverityCritical {
		recs = append(recs, "CRITICAL: this package is essential to the system; removal may break it")
	}
	if r.Severity == SeverityHigh {
		recs = append(recs, "HIGH IMPACT: many packages depend on this; consider removing dependents first")
	}

	var running []string
	for _, svc := range r.AffectedServices {
		if svc.Status == ServiceRunning {
			running = append(running, svc.Name)
		}
	}
	if len(running) > 0 {
		names := strings.Join(truncateList(running, 3), ", ")
		if len(running) > 3 {
			names += " (+" + strconv.Itoa(len(running)-3) + " more)"
		}
		recs = append(recs, "stop affected services before removal: "+names)
	}

	for _, svc := range r.AffectedServices {
		if svc.Critical {
			recs = append(recs, "critical services will be affected; ensure alternative access before proceeding")
			break
		}
	}

	if len(r.DirectDependents) > 5 {
		recs = append(recs, "consider removing these dependent packages first: "+strings.Join(truncateList(r.DirectDependents, 5), ", "))
	}

	if len(r.OrphanedPackages) > 0 {
		recs = append(recs, "run 'apt autoremove' after removal to clean up "+strconv.Itoa(len(r.OrphanedPackages))+" orphaned package(s)")
	}

	if r.SafeToRemove {
		recs = append(recs, "this package can be safely removed; add --purge to also remove configuration files")
	} else {
		recs = append(recs, "this package is NOT safe to remove due to dependencies or critical services; review the impact details before proceeding")
	}

	if alts := alternativesMap[r.TargetPackage]; len(alts) > 0 {
		recs = append(recs, "alternative packages: "+strings.Join(alts, ", "))
	}

	return recs
}

func truncateList(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

// GenerateRemovalPlan builds a concrete, unconfirmed removal plan; the
// caller is responsible for user confirmation before running Commands
// (note the deliberate absence of -y).
func (a *Analyzer) GenerateRemovalPlan(ctx context.Context, pkg string, purge bool) RemovalPlan {
	plan := RemovalPlan{TargetPackage: pkg}

	cascade := a.cascadePackages(ctx, pkg)
	plan.PackagesToRemove = append([]string{pkg}, cascade...)
	plan.AutoremoveCandidates = a.orphanedPackages(ctx, pkg)
	plan.ConfigFilesAffected = a.configFiles(ctx, pkg)
	plan.EstimatedFreedSpace = a.estimatedFreedSpace(ctx, plan.PackagesToRemove)

	if purge {
		plan.Commands = []string{
			"sudo apt-get purge " + pkg,
			"sudo apt-get autoremove",
		}
	} else {
		plan.Commands = []string{
			"sudo apt-get remove " + pkg,
			"sudo apt-get autoremove",
		}
	}

	return plan
}

func (a *Analyzer) configFiles(ctx context.Context, pkg string) []string {
	out, ok := runCommand(ctx, 30*time.Second, "dpkg-query", "-L", pkg)
	if !ok {
		return nil
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "/etc/") {
			files = append(files, line)
		}
	}
	return files
}

func (a *Analyzer) estimatedFreedSpace(ctx context.Context, packages []string) string {
	var totalBytes int64
	for _, pkg := range packages {
		out, ok := runCommand(ctx, 30*time.Second, "dpkg-query", "-W", "-f=${Installed-Size}", pkg)
		if !ok {
			continue
		}
		if kb, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64); err == nil {
			totalBytes += kb * 1024
		}
	}
	return formatBytes(totalBytes)
}

func formatBytes(n int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case n >= gb:
		return strconv.FormatFloat(float64(n)/float64(gb), 'f', 2, 64) + " GB"
	case n >= mb:
		return strconv.FormatFloat(float64(n)/float64(mb), 'f', 2, 64) + " MB"
	case n >= kb:
		return strconv.FormatFloat(float64(n)/float64(kb), 'f', 2, 64) + " KB"
	default:
		return strconv.FormatInt(n, 10) + " bytes"
	}
}

// GetSafeRemovalOrder orders packages so that each package's remaining
// reverse dependents (within the candidate set) are removed first,
// breaking cycles by emitting the unresolved remainder verbatim.
func (a *Analyzer) GetSafeRemovalOrder(ctx context.Context, packages []string) []string {
	remaining := map[string]bool{}
	for _, p := range packages {
		remaining[p] = true
	}

	var ordered []string
	for len(remaining) > 0 {
		var safe []string
		for pkg := range remaining {
			blocked := false
			for _, dep := range a.graph.GetReverseDependencies(ctx, pkg) {
				if remaining[dep] {
					blocked = true
					break
				}
			}
			if !blocked {
				safe = append(safe, pkg)
			}
		}

		if len(safe) > 0 {
			ordered = append(ordered, safe...)
			for _, pkg := range safe {
				delete(remaining, pkg)
			}
		} else {
			ordered = append(ordered, setToSlice(remaining)...)
			break
		}
	}

	return ordered
}
