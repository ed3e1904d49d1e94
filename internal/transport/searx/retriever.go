package searx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/kailas-cloud/bshr/internal/domain"
	"github.com/kailas-cloud/bshr/internal/metrics"
)

// maxPageBytes caps how much of a result page is read.
const maxPageBytes = 4 << 20

// Retriever queries a SearxNG instance, fetches the top result and returns
// the first words of its visible text.
type Retriever struct {
	endpoint  string
	wordLimit int
	userAgent string
	client    *http.Client
	logger    *zap.Logger
}

// Config holds the retriever settings.
type Config struct {
	URL       string // search endpoint, e.g. http://searx:8080/search
	WordLimit int
	UserAgent string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// New creates a SearxNG retriever.
func New(cfg Config) *Retriever {
	limit := cfg.WordLimit
	if limit <= 0 {
		limit = domain.DefaultWordLimit
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Retriever{
		endpoint:  cfg.URL,
		wordLimit: limit,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
		logger:    cfg.Logger,
	}
}

// Retrieve implements domain.Retriever. No results or a page without text is a miss.
func (r *Retriever) Retrieve(ctx context.Context, query string) (domain.Retrieved, error) {
	pageURL, err := r.topResult(ctx, query)
	if err != nil {
		r.count("error")
		return domain.Retrieved{}, err
	}
	if pageURL == "" {
		r.logger.Debug("No Searx results", zap.String("query", query))
		r.count("miss")
		return domain.Miss(), nil
	}

	text, err := r.fetchText(ctx, pageURL)
	if err != nil {
		r.count("error")
		return domain.Retrieved{}, err
	}
	if text == "" {
		r.count("miss")
		return domain.Miss(), nil
	}

	r.logger.Debug("Extracted page content", zap.String("url", pageURL), zap.Int("bytes", len(text)))
	r.count("found")
	return domain.Found(text), nil
}

func (r *Retriever) topResult(ctx context.Context, query string) (string, error) {
	params := url.Values{"q": {query}, "format": {"json"}}
	resp, err := r.do(ctx, r.endpoint+"?"+params.Encode(), "application/json")
	if err != nil {
		return "", fmt.Errorf("searx search %q: %w", query, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Results []struct {
			URL   string `json:"url"`
			Title string `json:"title"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("searx search %q: %w: decode: %v", query, domain.ErrRetrievalFailed, err)
	}
	if len(payload.Results) == 0 {
		return "", nil
	}
	return payload.Results[0].URL, nil
}

func (r *Retriever) fetchText(ctx context.Context, pageURL string) (string, error) {
	resp, err := r.do(ctx, pageURL, "text/html,application/xhtml+xml")
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w: parse: %v", pageURL, domain.ErrRetrievalFailed, err)
	}
	return FirstWords(VisibleText(doc), r.wordLimit), nil
}

func (r *Retriever) do(ctx context.Context, target, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrievalFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: http %d", domain.ErrRetrievalFailed, resp.StatusCode)
	}
	return resp, nil
}

func (r *Retriever) count(result string) {
	metrics.RetrievalTotal.WithLabelValues(string(domain.SourceWeb), result).Inc()
}

// VisibleText concatenates the text nodes of doc, skipping script, style and noscript.
func VisibleText(doc *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}

// FirstWords collapses whitespace and keeps at most limit words.
func FirstWords(text string, limit int) string {
	words := strings.Fields(text)
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}
	return strings.Join(words, " ")
}
