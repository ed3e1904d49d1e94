package bshr

import "context"

// Completer turns a system and user prompt into text.
// Implementations should return an error wrapping ErrRateLimited on throttling
// so the client can back off and retry.
type Completer interface {
	Complete(ctx context.Context, system, user string) (Completion, error)
}

// Completion is the model output and the tokens it consumed.
type Completion struct {
	Text        string
	TotalTokens int
}
