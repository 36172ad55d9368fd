package serper

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/newsbot/internal/agent/core"
	"github.com/mohammad-safakhou/newsbot/tools/web_search"
)

const endpoint = "https://google.serper.dev/search"

// Search implements web_search.Searcher against serper.dev.
type Search struct {
	ApiKey string
	http   *core.HTTPClient
}

func New(apiKey string, timeout time.Duration) *Search {
	return &Search{ApiKey: apiKey, http: core.NewHTTPClient(timeout, 1, 300*time.Millisecond)}
}

func (s *Search) Discover(ctx context.Context, q string, k int) ([]web_search.Result, error) {
	if k <= 0 {
		k = 5
	}
	payload := map[string]any{"q": q, "num": k}
	headers := map[string]string{"X-API-KEY": s.ApiKey}

	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := s.http.DoJSON(ctx, "POST", endpoint, headers, payload, &raw); err != nil {
		return nil, err
	}

	var out []web_search.Result
	for i, it := range raw.Organic {
		if i >= k {
			break
		}
		out = append(out, web_search.Result{Title: it.Title, URL: it.Link, Snippet: it.Snippet})
	}
	return out, nil
}
