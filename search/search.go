// Package search provides web search clients used to ground health
// information answers.
package search

import (
	"context"
	"errors"
)

// ErrSearchFailed is returned when the search backend rejects a request.
var ErrSearchFailed = errors.New("search failed")

// Result is a single web search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Searcher runs a web search and returns at most maxResults hits.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, query string, maxResults int) ([]Result, error)

// Search implements Searcher.
func (f SearcherFunc) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	return f(ctx, query, maxResults)
}
