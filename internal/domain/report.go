package domain

import "time"

// RelevanceMode selects what the pipeline does with relevance verdicts.
type RelevanceMode string

const (
	// RelevanceIgnore computes verdicts for reporting only; every item is hypothesized.
	RelevanceIgnore RelevanceMode = "ignore"
	// RelevanceFilter drops items judged irrelevant before hypothesis generation.
	RelevanceFilter RelevanceMode = "filter"
)

// ItemTrace records what happened to one retrieved item.
type ItemTrace struct {
	Query      string
	Source     Source
	Condensed  Text
	Relevant   bool
	Hypothesis Text
}

// Report is the terminal artifact of one pipeline run: the answer plus the
// intermediate artifacts that produced it.
type Report struct {
	RunID       string
	Topic       string
	Queries     []string
	Retrieved   int
	Items       []ItemTrace
	Hypotheses  []Text
	Winner      Text
	Rounds      int
	Merges      int
	RoundSizes  []int
	Answer      string
	ModelCalls  int
	TotalTokens int
	Duration    time.Duration
}
