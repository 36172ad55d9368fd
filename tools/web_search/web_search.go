package web_search

import "context"

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher finds supporting pages for a query. The fact-checker agent uses
// it to gather evidence context before prompting.
type Searcher interface {
	Discover(ctx context.Context, q string, k int) ([]Result, error)
}
