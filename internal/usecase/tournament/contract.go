package tournament

import (
	"context"

	"github.com/kailas-cloud/bshr/internal/domain"
)

// Completer produces model completions.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

// Condenser compresses a merged hypothesis before it advances.
type Condenser interface {
	Condense(ctx context.Context, content domain.Text, topic string) (domain.Text, error)
}
