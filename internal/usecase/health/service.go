package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the catalog answers but an optional component does not.
	Degraded Status = "degraded"
	// Unhealthy indicates the catalog is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentCatalog = "catalog"
	ComponentCache   = "cache"
)

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	catalog Pinger
	cache   Pinger
}

// New creates a Service. cache can be nil.
func New(catalog, cache Pinger) *Service {
	return &Service{catalog: catalog, cache: cache}
}

// Check runs health checks against all components. Search keeps working
// without the cache, so a cache failure only degrades the report.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{ComponentCatalog: probe(ctx, s.catalog)}
	if s.cache != nil {
		checks[ComponentCache] = probe(ctx, s.cache)
	}

	status := Healthy
	switch {
	case checks[ComponentCatalog] == CheckError:
		status = Unhealthy
	case checks[ComponentCache] == CheckError:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}

func probe(ctx context.Context, p Pinger) CheckResult {
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
