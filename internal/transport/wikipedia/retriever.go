package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bshr/internal/domain"
	"github.com/kailas-cloud/bshr/internal/metrics"
)

// DefaultURL is the English Wikipedia MediaWiki API endpoint.
const DefaultURL = "https://en.wikipedia.org/w/api.php"

// Retriever looks a query up on a MediaWiki API and returns the intro extract
// of the best matching article.
type Retriever struct {
	endpoint  string
	userAgent string
	client    *http.Client
	logger    *zap.Logger
}

// Config holds the retriever settings.
type Config struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// New creates a MediaWiki retriever.
func New(cfg Config) *Retriever {
	endpoint := cfg.URL
	if endpoint == "" {
		endpoint = DefaultURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Retriever{
		endpoint:  endpoint,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
		logger:    cfg.Logger,
	}
}

// Retrieve implements domain.Retriever. No search hits or an empty extract is a miss.
func (r *Retriever) Retrieve(ctx context.Context, query string) (domain.Retrieved, error) {
	title, err := r.topTitle(ctx, query)
	if err != nil {
		r.count("error")
		return domain.Retrieved{}, err
	}
	if title == "" {
		r.logger.Debug("No Wikipedia results", zap.String("query", query))
		r.count("miss")
		return domain.Miss(), nil
	}

	extract, err := r.extract(ctx, title)
	if err != nil {
		r.count("error")
		return domain.Retrieved{}, err
	}
	if strings.TrimSpace(extract) == "" {
		r.count("miss")
		return domain.Miss(), nil
	}

	r.count("found")
	return domain.Found(extract), nil
}

func (r *Retriever) topTitle(ctx context.Context, query string) (string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"format":   {"json"},
	}

	var payload struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := r.get(ctx, params, &payload); err != nil {
		return "", fmt.Errorf("wikipedia search %q: %w", query, err)
	}
	if len(payload.Query.Search) == 0 {
		return "", nil
	}
	return payload.Query.Search[0].Title, nil
}

func (r *Retriever) extract(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"titles":      {title},
		"format":      {"json"},
	}

	var payload struct {
		Query struct {
			Pages map[string]struct {
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := r.get(ctx, params, &payload); err != nil {
		return "", fmt.Errorf("wikipedia extract %q: %w", title, err)
	}
	// A single title yields a single page.
	for _, page := range payload.Query.Pages {
		if page.Extract != "" {
			return page.Extract, nil
		}
	}
	return "", nil
}

func (r *Retriever) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRetrievalFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http %d", domain.ErrRetrievalFailed, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", domain.ErrRetrievalFailed, err)
	}
	return nil
}

func (r *Retriever) count(result string) {
	metrics.RetrievalTotal.WithLabelValues(string(domain.SourceEncyclopedia), result).Inc()
}
