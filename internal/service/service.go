package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/mohammad-safakhou/newsbot/config"
	"github.com/mohammad-safakhou/newsbot/internal/cache"
	"github.com/mohammad-safakhou/newsbot/internal/scrape"
	"github.com/mohammad-safakhou/newsbot/internal/search"
	"github.com/mohammad-safakhou/newsbot/internal/store"
	"github.com/mohammad-safakhou/newsbot/models"
	"github.com/mohammad-safakhou/newsbot/news/newsapi"
)

const (
	// MaxBatchSize bounds how many URLs a single batch request may carry.
	MaxBatchSize = 10

	batchConcurrency = 4
)

// Analyzer runs the full agent pipeline over one article.
type Analyzer interface {
	Analyze(ctx context.Context, article models.Article) (models.Analysis, error)
}

// Scraper turns a URL into an article.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string) (models.Article, error)
}

// NewsSource wraps the headline/search provider.
type NewsSource interface {
	Everything(ctx context.Context, query string, limit int) ([]models.Headline, error)
	TopHeadlines(ctx context.Context, category string, limit int) ([]models.Headline, error)
}

// Service ties scraping, the agent pipeline, caching, storage and search
// together behind the operations the HTTP layer exposes.
type Service struct {
	scraper  Scraper
	pipeline Analyzer
	news     NewsSource
	cache    *cache.Cache
	store    *store.Store
	index    *search.Index
	logger   *log.Logger
}

// New wires a Service. cache, st and idx may be nil; the corresponding
// behavior degrades gracefully.
func New(scraper Scraper, pipeline Analyzer, news NewsSource, c *cache.Cache, st *store.Store, idx *search.Index) *Service {
	return &Service{
		scraper:  scraper,
		pipeline: pipeline,
		news:     news,
		cache:    c,
		store:    st,
		index:    idx,
		logger:   log.New(log.Writer(), "[SERVICE] ", log.LstdFlags),
	}
}

// FromConfig builds the default production wiring.
func FromConfig(cfg *config.Config, pipeline Analyzer, c *cache.Cache, st *store.Store, idx *search.Index) *Service {
	return New(scrape.New(cfg.Scrape), pipeline, newsapi.New(cfg.Sources.NewsAPI), c, st, idx)
}

// AnalyzeURL scrapes the URL and runs the agent pipeline over it. Results are
// served from the cache when a previous analysis of the same URL is fresh.
func (s *Service) AnalyzeURL(ctx context.Context, rawURL string) (models.Analysis, error) {
	if cached, ok := s.cache.GetAnalysis(ctx, rawURL); ok {
		s.logger.Printf("cache hit for %s", rawURL)
		return cached, nil
	}

	article, err := s.scraper.Scrape(ctx, rawURL)
	if err != nil {
		return models.Analysis{}, err
	}

	analysis, err := s.pipeline.Analyze(ctx, article)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("analysis failed: %w", err)
	}

	s.persist(ctx, analysis)
	return analysis, nil
}

// BatchItem is one outcome of a batch analysis, kept in request order.
type BatchItem struct {
	URL      string           `json:"url"`
	Analysis *models.Analysis `json:"analysis,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// AnalyzeBatch fans AnalyzeURL out over up to MaxBatchSize URLs with bounded
// concurrency. Individual failures are reported per URL and do not abort the
// rest of the batch.
func (s *Service) AnalyzeBatch(ctx context.Context, urls []string) ([]BatchItem, error) {
	if len(urls) == 0 {
		return []BatchItem{}, nil
	}
	if len(urls) > MaxBatchSize {
		return nil, fmt.Errorf("maximum %d urls per batch, got %d", MaxBatchSize, len(urls))
	}

	items := make([]BatchItem, len(urls))
	sem := make(chan struct{}, batchConcurrency)
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			items[i].URL = u
			a, err := s.AnalyzeURL(ctx, u)
			if err != nil {
				s.logger.Printf("batch item %s failed: %v", u, err)
				items[i].Error = err.Error()
				return
			}
			items[i].Analysis = &a
		}(i, u)
	}
	wg.Wait()
	return items, nil
}

// SearchTopic finds recent articles about a topic via the news provider.
func (s *Service) SearchTopic(ctx context.Context, topic string, limit int) ([]models.Headline, error) {
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if limit <= 0 {
		limit = 5
	}
	return s.news.Everything(ctx, topic, limit)
}

// TopHeadlines returns the current top headlines for a category, consulting
// the cache first.
func (s *Service) TopHeadlines(ctx context.Context, category string, limit int) ([]models.Headline, error) {
	if !newsapi.IsValidCategory(category) {
		return nil, fmt.Errorf("invalid category %q, must be one of %v", category, newsapi.ValidCategories)
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	if cached, ok := s.cache.GetHeadlines(ctx, category); ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	headlines, err := s.news.TopHeadlines(ctx, category, limit)
	if err != nil {
		return nil, err
	}
	s.cache.PutHeadlines(ctx, category, headlines)
	return headlines, nil
}

// WarmHeadlines refreshes the headline cache for the given categories, or
// every valid category when none are given. Used by the scheduler; errors
// are logged per category and the pass continues.
func (s *Service) WarmHeadlines(ctx context.Context, categories []string, limit int) {
	if len(categories) == 0 {
		categories = newsapi.ValidCategories
	}
	if limit <= 0 {
		limit = 10
	}
	for _, cat := range categories {
		if !newsapi.IsValidCategory(cat) {
			s.logger.Printf("skipping unknown warm category %q", cat)
			continue
		}
		headlines, err := s.news.TopHeadlines(ctx, cat, limit)
		if err != nil {
			s.logger.Printf("warm headlines %s: %v", cat, err)
			continue
		}
		s.cache.PutHeadlines(ctx, cat, headlines)
	}
}

// GetAnalysis loads a stored analysis by id. Returns store.ErrNotFound when
// absent and store.ErrUnavailable when no store is configured.
func (s *Service) GetAnalysis(ctx context.Context, id string) (models.Analysis, error) {
	if s.store == nil {
		return models.Analysis{}, store.ErrUnavailable
	}
	return s.store.GetAnalysis(ctx, id)
}

// ListAnalyses returns the most recent stored analyses.
func (s *Service) ListAnalyses(ctx context.Context, limit int) ([]store.AnalysisRow, error) {
	if s.store == nil {
		return nil, store.ErrUnavailable
	}
	return s.store.ListRecent(ctx, limit)
}

// SearchAnalyses runs a full-text query over analyses indexed this process
// lifetime.
func (s *Service) SearchAnalyses(q string, limit int) ([]search.Hit, error) {
	if q == "" {
		return nil, fmt.Errorf("query is required")
	}
	return s.index.Search(q, limit)
}

func (s *Service) persist(ctx context.Context, a models.Analysis) {
	s.cache.PutAnalysis(ctx, a)
	if s.store != nil {
		if err := s.store.SaveAnalysis(ctx, a); err != nil {
			s.logger.Printf("save analysis %s: %v", a.ID, err)
		}
	}
	if err := s.index.Add(a); err != nil {
		s.logger.Printf("index analysis %s: %v", a.ID, err)
	}
}
