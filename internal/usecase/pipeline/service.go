package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bshr/internal/domain"
	"github.com/kailas-cloud/bshr/internal/fanout"
	logpkg "github.com/kailas-cloud/bshr/internal/logger"
	"github.com/kailas-cloud/bshr/internal/metrics"
	"github.com/kailas-cloud/bshr/internal/prompt"
)

// Stage labels for bshr_pipeline_stage_duration_seconds.
const (
	StageBrainstorm = "brainstorm"
	StageRetrieve   = "retrieve"
	StageProcess    = "process"
	StageTournament = "tournament"
	StageRespond    = "respond"
)

// Orchestrator runs brainstorm, retrieval, per-item processing, the
// tournament and the responder for one topic.
type Orchestrator struct {
	brainstorm  Brainstormer
	retrieval   Retriever
	processor   Processor
	tournament  Tournament
	responder   Responder
	queries     int
	concurrency int
	relevance   domain.RelevanceMode
	newID       func() string
}

// New creates an orchestrator with the default query count, concurrency and
// relevance mode (ignore).
func New(b Brainstormer, r Retriever, p Processor, t Tournament, resp Responder) *Orchestrator {
	return &Orchestrator{
		brainstorm:  b,
		retrieval:   r,
		processor:   p,
		tournament:  t,
		responder:   resp,
		queries:     domain.DefaultQueryCount,
		concurrency: domain.DefaultConcurrency,
		relevance:   domain.RelevanceIgnore,
		newID:       uuid.NewString,
	}
}

// WithQueries sets how many search queries are brainstormed.
func (o *Orchestrator) WithQueries(n int) *Orchestrator {
	o.queries = n
	return o
}

// WithConcurrency caps the items processed at once.
func (o *Orchestrator) WithConcurrency(n int) *Orchestrator {
	o.concurrency = n
	return o
}

// WithRelevanceMode selects whether irrelevant items are dropped.
func (o *Orchestrator) WithRelevanceMode(m domain.RelevanceMode) *Orchestrator {
	o.relevance = m
	return o
}

// Run answers topic. Either the full report with an answer is returned or an error; never a partial answer.
func (o *Orchestrator) Run(ctx context.Context, topic string) (rep domain.Report, err error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.Report{}, domain.ErrInvalidTopic
	}

	start := time.Now()
	rep = domain.Report{RunID: o.newID(), Topic: topic}

	ctx, logger := logpkg.WithFields(ctx, zap.String("run_id", rep.RunID))
	ctx, usage := domain.NewContextWithUsage(ctx)

	defer func() {
		rep.ModelCalls = usage.Calls()
		rep.TotalTokens = usage.TotalTokens()
		rep.Duration = time.Since(start)

		status := "success"
		if err != nil {
			status = runStatus(err)
			logger.Error("pipeline_run",
				zap.String("topic", topic),
				zap.String("status", status),
				zap.Int("model_calls", rep.ModelCalls),
				zap.Int("total_tokens", rep.TotalTokens),
				zap.Duration("duration", rep.Duration),
				zap.Error(err),
			)
		} else {
			logger.Info("pipeline_run",
				zap.String("topic", topic),
				zap.String("status", status),
				zap.Strings("queries", rep.Queries),
				zap.Int("retrieved", rep.Retrieved),
				zap.Int("hypotheses", len(rep.Hypotheses)),
				zap.Ints("round_sizes", rep.RoundSizes),
				zap.Int("merges", rep.Merges),
				zap.String("winner", rep.Winner.OrElse(prompt.NoContent)),
				zap.Int("model_calls", rep.ModelCalls),
				zap.Int("total_tokens", rep.TotalTokens),
				zap.Duration("duration", rep.Duration),
			)
		}
		metrics.PipelineRunsTotal.WithLabelValues(status).Inc()
	}()

	// 1. Brainstorm
	if err = stage(StageBrainstorm, func() error {
		rep.Queries, err = o.brainstorm.GenerateQueries(ctx, topic, o.queries)
		return err
	}); err != nil {
		return rep, err
	}

	// 2. Retrieve
	var contents []domain.Content
	if err = stage(StageRetrieve, func() error {
		contents, err = o.retrieval.Retrieve(ctx, rep.Queries)
		return err
	}); err != nil {
		return rep, err
	}
	rep.Retrieved = len(contents)
	if len(contents) == 0 {
		return rep, fmt.Errorf("nothing retrieved for %d queries: %w", len(rep.Queries), domain.ErrNoHypotheses)
	}

	// 3. Condense, judge, hypothesize, condense per item
	if err = stage(StageProcess, func() error {
		rep.Items, err = fanout.Map(ctx, o.concurrency, contents, func(ctx context.Context, _ int, c domain.Content) (domain.ItemTrace, error) {
			return o.processItem(ctx, c, topic)
		})
		return err
	}); err != nil {
		return rep, err
	}

	dropped := 0
	for _, it := range rep.Items {
		if o.relevance == domain.RelevanceFilter && !it.Relevant {
			dropped++
			continue
		}
		rep.Hypotheses = append(rep.Hypotheses, it.Hypothesis)
	}
	if dropped > 0 {
		logger.Info("Dropped irrelevant items",
			zap.Int("dropped", dropped), zap.Int("kept", len(rep.Hypotheses)))
	}
	if len(rep.Hypotheses) == 0 {
		return rep, fmt.Errorf("all %d items judged irrelevant: %w", len(rep.Items), domain.ErrNoHypotheses)
	}

	// 4. Tournament
	if err = stage(StageTournament, func() error {
		res, terr := o.tournament.Run(ctx, rep.Hypotheses, topic)
		if terr != nil {
			return terr
		}
		rep.Winner, rep.Rounds, rep.Merges, rep.RoundSizes = res.Winner, res.Rounds, res.Merges, res.History
		return nil
	}); err != nil {
		return rep, err
	}
	metrics.TournamentRounds.Observe(float64(rep.Rounds))

	// 5. Respond
	if err = stage(StageRespond, func() error {
		rep.Answer, err = o.responder.GenerateResponse(ctx, prompt.QuestionContext(topic), rep.Winner)
		return err
	}); err != nil {
		return rep, err
	}

	return rep, nil
}

// processItem runs condense, relevance check, hypothesize and condense for one item.
// In filter mode an irrelevant item gets no hypothesis.
func (o *Orchestrator) processItem(ctx context.Context, c domain.Content, topic string) (domain.ItemTrace, error) {
	trace := domain.ItemTrace{Query: c.Query(), Source: c.Source()}

	condensed, err := o.processor.Condense(ctx, domain.SomeText(c.Text()), topic)
	if err != nil {
		return trace, err
	}
	trace.Condensed = condensed

	trace.Relevant, err = o.processor.RelevancyCheck(ctx, condensed, c.Query(), topic)
	if err != nil {
		return trace, err
	}
	if o.relevance == domain.RelevanceFilter && !trace.Relevant {
		return trace, nil
	}

	draft, err := o.processor.GenerateHypothesis(ctx, condensed, topic)
	if err != nil {
		return trace, err
	}
	trace.Hypothesis, err = o.processor.Condense(ctx, draft, topic)
	return trace, err
}

func stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.PipelineStageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func runStatus(err error) string {
	var exhausted *domain.RetryExhaustedError
	switch {
	case errors.As(err, &exhausted):
		return "rate_limited"
	case errors.Is(err, domain.ErrNoHypotheses):
		return "no_hypotheses"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
