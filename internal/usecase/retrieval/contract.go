package retrieval

import (
	"context"

	"github.com/kailas-cloud/bshr/internal/domain"
)

// Source fetches text for one query from one backend.
type Source interface {
	Retrieve(ctx context.Context, query string) (domain.Retrieved, error)
}
