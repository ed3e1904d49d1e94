// Package usage describes completion token consumption over a reporting period.
package usage

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// ParsePeriod maps user input to a Period. Unknown values fall back to PeriodMonth.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodDay, PeriodTotal:
		return Period(s)
	default:
		return PeriodMonth
	}
}

// Budget is a token budget snapshot.
type Budget struct {
	Limit     int64 // 0 = unlimited
	Used      int64
	Remaining int64
	Exhausted bool
	ResetsAt  int64 // unix millis, 0 when the period has no end
}

// Report is completion usage for a period.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	budget      Budget
}

// NewReport creates a usage report.
func NewReport(period Period, start, end int64, b Budget) Report {
	return Report{period: period, periodStart: start, periodEnd: end, budget: b}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp (unix millis).
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// Budget returns the budget status.
func (r *Report) Budget() Budget { return r.budget }
