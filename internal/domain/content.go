package domain

import "context"

// Retriever fetches external text for one query. A miss is a value, not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (Retrieved, error)
}

// Source identifies the retrieval backend a piece of content came from.
type Source string

// Retrieval sources.
const (
	SourceEncyclopedia Source = "wikipedia"
	SourceWeb          Source = "searx"
)

// Retrieved is the outcome of one retrieval call: either text or a miss.
// A miss is not an error.
type Retrieved struct {
	text  string
	found bool
}

// Found wraps retrieved text.
func Found(text string) Retrieved { return Retrieved{text: text, found: true} }

// Miss reports that the source had nothing for the query.
func Miss() Retrieved { return Retrieved{} }

// Text returns the retrieved text and whether anything was found.
func (r Retrieved) Text() (string, bool) { return r.text, r.found }

// IsMiss reports whether the source returned nothing.
func (r Retrieved) IsMiss() bool { return !r.found }

// Content is retrieved text together with the query and source that produced it.
type Content struct {
	query  string
	source Source
	text   string
}

// NewContent creates a Content value.
func NewContent(query string, source Source, text string) Content {
	return Content{query: query, source: source, text: text}
}

// Query returns the normalized query that produced the content.
func (c Content) Query() string { return c.query }

// Source returns the retrieval backend.
func (c Content) Source() Source { return c.source }

// Text returns the raw retrieved text.
func (c Content) Text() string { return c.text }
