package bshr

import (
	"time"

	"github.com/kailas-cloud/bshr/internal/domain"
)

// Item traces one retrieved document. Condensed and Hypothesis are empty
// when the model produced nothing usable.
type Item struct {
	Query      string
	Source     string // "wikipedia" or "searx"
	Condensed  string
	Relevant   bool
	Hypothesis string
}

// Report is the outcome of one Answer call.
type Report struct {
	RunID       string
	Topic       string
	Answer      string
	Queries     []string
	Items       []Item
	Winner      string
	Rounds      int
	Merges      int
	RoundSizes  []int
	ModelCalls  int
	TotalTokens int
	Duration    time.Duration
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}

func reportFromDomain(rep domain.Report) Report {
	items := make([]Item, len(rep.Items))
	for i, it := range rep.Items {
		items[i] = Item{
			Query:      it.Query,
			Source:     string(it.Source),
			Condensed:  it.Condensed.OrElse(""),
			Relevant:   it.Relevant,
			Hypothesis: it.Hypothesis.OrElse(""),
		}
	}
	return Report{
		RunID:       rep.RunID,
		Topic:       rep.Topic,
		Answer:      rep.Answer,
		Queries:     rep.Queries,
		Items:       items,
		Winner:      rep.Winner.OrElse(""),
		Rounds:      rep.Rounds,
		Merges:      rep.Merges,
		RoundSizes:  rep.RoundSizes,
		ModelCalls:  rep.ModelCalls,
		TotalTokens: rep.TotalTokens,
		Duration:    rep.Duration,
	}
}
