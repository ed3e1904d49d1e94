package respond

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/bshr/internal/domain"
	"github.com/kailas-cloud/bshr/internal/prompt"
)

// Service writes the user-facing answer from the winning hypothesis.
type Service struct {
	llm Completer
}

// New creates a responder.
func New(llm Completer) *Service {
	return &Service{llm: llm}
}

// GenerateResponse elaborates winner into an answer for the question in questionCtx.
// Any failure, including an empty answer, is fatal to the run.
func (s *Service) GenerateResponse(ctx context.Context, questionCtx string, winner domain.Text) (string, error) {
	res, err := s.llm.Complete(ctx, prompt.Respond(questionCtx, winner))
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}

	answer := strings.TrimSpace(res.Text)
	if answer == "" {
		return "", fmt.Errorf("generate response: empty answer: %w", domain.ErrMalformedCompletion)
	}
	return answer, nil
}
