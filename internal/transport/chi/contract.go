package chi

import (
	"context"

	"github.com/kailas-cloud/bshr/internal/domain"
	domusage "github.com/kailas-cloud/bshr/internal/domain/usage"
	healthuc "github.com/kailas-cloud/bshr/internal/usecase/health"
)

// Answerer runs the research pipeline for one topic.
type Answerer interface {
	Run(ctx context.Context, topic string) (domain.Report, error)
}

// UsageReporter reports completion token usage.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// HealthChecker aggregates dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
