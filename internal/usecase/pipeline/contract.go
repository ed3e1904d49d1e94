package pipeline

import (
	"context"

	"github.com/kailas-cloud/bshr/internal/domain"
	"github.com/kailas-cloud/bshr/internal/usecase/tournament"
)

// Brainstormer turns a topic into search queries.
type Brainstormer interface {
	GenerateQueries(ctx context.Context, topic string, n int) ([]string, error)
}

// Retriever fetches content for a set of queries.
type Retriever interface {
	Retrieve(ctx context.Context, queries []string) ([]domain.Content, error)
}

// Processor condenses, judges and hypothesizes per retrieved item.
type Processor interface {
	Condense(ctx context.Context, content domain.Text, topic string) (domain.Text, error)
	RelevancyCheck(ctx context.Context, content domain.Text, query, topic string) (bool, error)
	GenerateHypothesis(ctx context.Context, content domain.Text, topic string) (domain.Text, error)
}

// Tournament reduces hypotheses to a winner.
type Tournament interface {
	Run(ctx context.Context, hypotheses []domain.Text, topic string) (tournament.Result, error)
}

// Responder writes the final answer.
type Responder interface {
	GenerateResponse(ctx context.Context, questionCtx string, winner domain.Text) (string, error)
}
