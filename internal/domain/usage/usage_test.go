package usage

import "testing"

func TestNewReport(t *testing.T) {
	b := Budget{Limit: 1000000, Used: 384200, Remaining: 615800, ResetsAt: 1700000000000}

	r := NewReport(PeriodMonth, 1700000000, 1702600000, b)

	if r.Period() != PeriodMonth {
		t.Errorf("Period() = %q", r.Period())
	}
	if r.PeriodStart() != 1700000000 {
		t.Errorf("PeriodStart() = %d", r.PeriodStart())
	}
	if r.PeriodEnd() != 1702600000 {
		t.Errorf("PeriodEnd() = %d", r.PeriodEnd())
	}
	if r.Budget().Used != 384200 {
		t.Errorf("Budget().Used = %d", r.Budget().Used)
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in   string
		want Period
	}{
		{"day", PeriodDay},
		{"total", PeriodTotal},
		{"month", PeriodMonth},
		{"", PeriodMonth},
		{"week", PeriodMonth},
	}
	for _, tc := range tests {
		if got := ParsePeriod(tc.in); got != tc.want {
			t.Errorf("ParsePeriod(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
