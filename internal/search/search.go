package search

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/mohammad-safakhou/newsbot/models"
)

// Hit is one search result over stored analyses.
type Hit struct {
	ID      string  `json:"id"`
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

type docMeta struct {
	URL     string
	Title   string
	Summary string
}

// Index is an in-memory BM25 index over analyzed articles. It is rebuilt on
// process restart from whatever gets analyzed next; durable search is not a
// goal here.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
	meta  map[string]docMeta
}

// NewIndex builds an empty in-memory index.
func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("bleve: %w", err)
	}
	return &Index{index: idx, meta: make(map[string]docMeta)}, nil
}

// Add indexes one analysis. A nil *Index is a no-op.
func (x *Index) Add(a models.Analysis) error {
	if x == nil {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	doc := map[string]interface{}{
		"title":      a.Article.Title,
		"summary":    a.Summary.Summary,
		"assessment": a.OverallAssessment,
	}
	if err := x.index.Index(a.ID, doc); err != nil {
		return err
	}
	x.meta[a.ID] = docMeta{URL: a.Article.URL, Title: a.Article.Title, Summary: a.Summary.Summary}
	return nil
}

// Search runs a query-string query and returns up to k hits.
func (x *Index) Search(q string, k int) ([]Hit, error) {
	if x == nil {
		return nil, nil
	}
	if k <= 0 {
		k = 10
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	query := bleve.NewQueryStringQuery(q)
	req := bleve.NewSearchRequestOptions(query, k, 0, false)
	res, err := x.index.Search(req)
	if err != nil {
		return nil, err
	}
	var out []Hit
	for _, hit := range res.Hits {
		m := x.meta[hit.ID]
		out = append(out, Hit{
			ID:      hit.ID,
			URL:     m.URL,
			Title:   m.Title,
			Snippet: snippet(m.Summary),
			Score:   hit.Score,
		})
	}
	return out, nil
}

func snippet(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
