package processing

import (
	"context"

	"github.com/kailas-cloud/bshr/internal/domain"
)

// Completer produces model completions.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}
