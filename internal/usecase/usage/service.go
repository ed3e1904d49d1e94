package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/bshr/internal/domain/usage"
)

// Service reports completion token consumption against the configured budget.
type Service struct {
	br BudgetReader
}

// New creates a Service. br can be nil (unlimited mode, nothing tracked).
func New(br BudgetReader) *Service {
	return &Service{br: br}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := time.Now().UTC()
	var start, end int64
	var b domusage.Budget

	switch period {
	case domusage.PeriodDay:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		start = dayStart.UnixMilli()
		end = dayStart.Add(24 * time.Hour).UnixMilli()
		if s.br != nil {
			b = budgetOf(s.br.DailyLimit(), s.br.DailyUsed(), s.br.RemainingDaily())
		}
	case domusage.PeriodMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		start = monthStart.UnixMilli()
		end = monthStart.AddDate(0, 1, 0).UnixMilli()
		if s.br != nil {
			b = budgetOf(s.br.MonthlyLimit(), s.br.MonthlyUsed(), s.br.RemainingMonthly())
		}
	default:
		// total has no boundaries; the monthly window is the widest one tracked
		if s.br != nil {
			b = budgetOf(s.br.MonthlyLimit(), s.br.MonthlyUsed(), s.br.RemainingMonthly())
		}
	}

	b.ResetsAt = end
	return domusage.NewReport(period, start, end, b)
}

func budgetOf(limit, used, remaining int64) domusage.Budget {
	return domusage.Budget{
		Limit:     limit,
		Used:      used,
		Remaining: remaining,
		Exhausted: limit > 0 && remaining <= 0,
	}
}
