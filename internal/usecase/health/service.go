package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Check names reported in Report.Checks.
const (
	CheckCache = "cache"
	CheckLLM   = "llm"
)

// Service coordinates health checks.
type Service struct {
	cache CachePinger
	llm   LLMChecker
}

// New creates a Service. cache is nil when the cache driver is "none".
func New(cache CachePinger, llm LLMChecker) *Service {
	return &Service{cache: cache, llm: llm}
}

// Check runs health checks against all components. A failing provider makes
// the service unusable; a failing cache only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.cache != nil {
		checks[CheckCache] = result(s.cache.Ping(ctx))
	}
	checks[CheckLLM] = result(s.llm.HealthCheck(ctx))

	status := Healthy
	switch {
	case checks[CheckLLM] == CheckError:
		status = Unhealthy
	case checks[CheckCache] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
