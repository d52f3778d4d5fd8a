package impact

import (
	"context"
	"strings"
	"time"
)

const serviceSuffix = ".service"

// affectedServices resolves every package in packages to the systemd
// units it provides, deduplicated by unit name across the whole list.
func (a *Analyzer) affectedServices(ctx context.Context, packages []string) []ServiceInfo {
	var affected []ServiceInfo
	seen := map[string]bool{}

	for _, pkg := range packages {
		for _, svc := range a.servicesForPackage(ctx, pkg) {
			if !seen[svc.Name] {
				seen[svc.Name] = true
				affected = append(affected, svc)
			}
		}
	}

	return affected
}

func (a *Analyzer) servicesForPackage(ctx context.Context, pkg string) []ServiceInfo {
	names := packageServiceMap[pkg]
	if len(names) == 0 {
		names = a.detectServicesFromPackage(ctx, pkg)
	}

	var services []ServiceInfo
	for _, name := range names {
		if strings.Contains(name, "*") {
			for _, expanded := range a.expandServicePattern(ctx, name) {
				services = append(services, a.serviceInfo(ctx, expanded, pkg))
			}
		} else {
			services = append(services, a.serviceInfo(ctx, name, pkg))
		}
	}
	return services
}

func (a *Analyzer) detectServicesFromPackage(ctx context.Context, pkg string) []string {
	out, ok := runCommand(ctx, 30*time.Second, "dpkg-query", "-L", pkg)
	if !ok {
		return nil
	}

	var services []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "/systemd/") && strings.HasSuffix(line, serviceSuffix) {
			parts := strings.Split(line, "/")
			name := strings.TrimSuffix(parts[len(parts)-1], serviceSuffix)
			services = append(services, name)
		}
	}
	return services
}

func (a *Analyzer) expandServicePattern(ctx context.Context, pattern string) []string {
	base := strings.ReplaceAll(pattern, "*", "")

	out, ok := runCommand(ctx, 10*time.Second, "systemctl", "list-units", "--type=service", "--all", "--no-legend")
	if !ok {
		return []string{base}
	}

	var matched []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		name := strings.TrimSuffix(fields[0], serviceSuffix)
		if strings.Contains(name, base) {
			matched = append(matched, name)
		}
	}
	if len(matched) == 0 {
		return []string{base}
	}
	return matched
}

func (a *Analyzer) serviceInfo(ctx context.Context, name, pkg string) ServiceInfo {
	a.serviceMu.Lock()
	if info, ok := a.serviceCache[name]; ok {
		a.serviceMu.Unlock()
		return info
	}
	a.serviceMu.Unlock()

	info := ServiceInfo{
		Name:        name,
		Status:      a.serviceStatus(ctx, name),
		Package:     pkg,
		Description: "Service provided by " + pkg,
		Critical:    criticalServices[name],
	}

	a.serviceMu.Lock()
	a.serviceCache[name] = info
	a.serviceMu.Unlock()
	return info
}

func (a *Analyzer) serviceStatus(ctx context.Context, name string) ServiceStatus {
	out, ok := runCommand(ctx, 10*time.Second, "systemctl", "is-active", name)
	if !ok {
		if _, exists := runCommand(ctx, 10*time.Second, "systemctl", "cat", name); !exists {
			return ServiceNotFound
		}
		return ServiceStopped
	}

	switch strings.ToLower(strings.TrimSpace(out)) {
	case "active":
		return ServiceRunning
	case "inactive", "failed":
		return ServiceStopped
	default:
		return ServiceUnknown
	}
}
