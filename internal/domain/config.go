package domain

// KeyPrefix namespaces every key the service writes to the KV store.
const KeyPrefix = "bshr:"

// Pipeline defaults. The reference pipeline brainstorms four queries per topic.
const (
	DefaultQueryCount  = 4
	DefaultConcurrency = 4
	DefaultWordLimit   = 400
)
