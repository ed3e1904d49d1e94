package tournament

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kailas-cloud/bshr/internal/domain"
)

// --- Mocks ---

// mergeCompleter returns "(a+b)" built from the two numbered hypotheses in the prompt.
type mergeCompleter struct {
	calls atomic.Int32
	err   error
}

func (m *mergeCompleter) Complete(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	m.calls.Add(1)
	if m.err != nil {
		return domain.Completion{}, m.err
	}
	var a, b string
	for _, line := range strings.Split(req.User, "\n") {
		switch {
		case strings.HasPrefix(line, "1. "):
			a = strings.TrimPrefix(line, "1. ")
		case strings.HasPrefix(line, "2. "):
			b = strings.TrimPrefix(line, "2. ")
		}
	}
	return domain.Completion{Text: "(" + a + "+" + b + ")"}, nil
}

// passCondenser returns its input and counts calls.
type passCondenser struct {
	mu    sync.Mutex
	calls int
}

func (p *passCondenser) Condense(_ context.Context, content domain.Text, _ string) (domain.Text, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return content, nil
}

func texts(vals ...string) []domain.Text {
	out := make([]domain.Text, len(vals))
	for i, v := range vals {
		out[i] = domain.SomeText(v)
	}
	return out
}

// --- Tests ---

func TestRun_RoundAndMergeCounts(t *testing.T) {
	for n := 1; n <= 17; n++ {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			in := make([]domain.Text, n)
			for i := range in {
				in[i] = domain.SomeText(fmt.Sprintf("h%d", i))
			}
			llm := &mergeCompleter{}
			cond := &passCondenser{}

			res, err := New(llm, cond).Run(context.Background(), in, "topic")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			wantRounds := int(math.Ceil(math.Log2(float64(n))))
			if res.Rounds != wantRounds {
				t.Errorf("rounds = %d, want %d", res.Rounds, wantRounds)
			}
			if res.Merges != n-1 {
				t.Errorf("merges = %d, want %d", res.Merges, n-1)
			}
			if int(llm.calls.Load()) != n-1 {
				t.Errorf("model calls = %d, want %d", llm.calls.Load(), n-1)
			}
			if cond.calls != n-1 {
				t.Errorf("condense calls = %d, want %d", cond.calls, n-1)
			}
			if !res.Winner.Present() {
				t.Error("expected a winner")
			}
			if last := res.History[len(res.History)-1]; last != 1 {
				t.Errorf("history must end at 1, got %v", res.History)
			}
		})
	}
}

func TestRun_SingleHypothesisUnchanged(t *testing.T) {
	llm := &mergeCompleter{}
	res, err := New(llm, &passCondenser{}).Run(context.Background(), texts("only"), "topic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := res.Winner.Get(); v != "only" {
		t.Errorf("winner = %q", v)
	}
	if res.Rounds != 0 || res.Merges != 0 || llm.calls.Load() != 0 {
		t.Errorf("expected no work, got rounds=%d merges=%d calls=%d", res.Rounds, res.Merges, llm.calls.Load())
	}
}

func TestRun_ByeAdvancesUnchanged(t *testing.T) {
	res, err := New(&mergeCompleter{}, &passCondenser{}).Run(context.Background(), texts("A", "B", "C"), "topic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Round 1: [(A+B), C]. Round 2: ((A+B)+C).
	if v, _ := res.Winner.Get(); v != "((A+B)+C)" {
		t.Errorf("winner = %q, want ((A+B)+C)", v)
	}
	if fmt.Sprint(res.History) != "[3 2 1]" {
		t.Errorf("history = %v", res.History)
	}
}

func TestRun_FiveHypotheses(t *testing.T) {
	res, err := New(&mergeCompleter{}, &passCondenser{}).Run(context.Background(), texts("a", "b", "c", "d", "e"), "topic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(res.History) != "[5 3 2 1]" {
		t.Errorf("history = %v, want [5 3 2 1]", res.History)
	}
	if v, _ := res.Winner.Get(); v != "(((a+b)+(c+d))+e)" {
		t.Errorf("winner = %q", v)
	}
	if res.Rounds != 3 || res.Merges != 4 {
		t.Errorf("rounds=%d merges=%d", res.Rounds, res.Merges)
	}
}

func TestRun_AbsentHypothesesParticipate(t *testing.T) {
	in := []domain.Text{domain.SomeText("A"), domain.NoText()}
	res, err := New(&mergeCompleter{}, &passCondenser{}).Run(context.Background(), in, "topic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := res.Winner.Get(); v != "(A+(no content))" {
		t.Errorf("winner = %q", v)
	}
}

func TestRun_Empty(t *testing.T) {
	_, err := New(&mergeCompleter{}, &passCondenser{}).Run(context.Background(), nil, "topic")
	if !errors.Is(err, domain.ErrNoHypotheses) {
		t.Fatalf("expected ErrNoHypotheses, got %v", err)
	}
}

func TestRun_MergeErrorAborts(t *testing.T) {
	llm := &mergeCompleter{err: fmt.Errorf("wrapped: %w", domain.ErrProviderError)}
	_, err := New(llm, &passCondenser{}).Run(context.Background(), texts("a", "b", "c", "d"), "topic")
	if !errors.Is(err, domain.ErrProviderError) {
		t.Fatalf("expected ErrProviderError, got %v", err)
	}
}

func TestRun_SerialConcurrencyGivesSameResult(t *testing.T) {
	in := texts("a", "b", "c", "d", "e", "f", "g")
	parallel, err := New(&mergeCompleter{}, &passCondenser{}).WithConcurrency(8).Run(context.Background(), in, "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	serial, err := New(&mergeCompleter{}, &passCondenser{}).WithConcurrency(1).Run(context.Background(), in, "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pv, _ := parallel.Winner.Get()
	sv, _ := serial.Winner.Get()
	if pv != sv {
		t.Errorf("winners differ: %q vs %q", pv, sv)
	}
}
