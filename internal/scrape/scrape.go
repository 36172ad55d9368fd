package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"
	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"
	"github.com/mohammad-safakhou/newsbot/config"
	"github.com/mohammad-safakhou/newsbot/models"
)

// ScrapeError marks failures caused by the target page rather than by us.
// The HTTP layer maps it to a 400 response.
type ScrapeError struct {
	URL string
	Err error
}

func (e *ScrapeError) Error() string { return fmt.Sprintf("scrape %s: %v", e.URL, e.Err) }
func (e *ScrapeError) Unwrap() error { return e.Err }

// Fetcher retrieves the raw HTML of a page.
type Fetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// Scraper fetches a page and extracts article text and metadata.
type Scraper struct {
	fetcher  Fetcher
	timeout  time.Duration
	maxChars int
}

// New builds a Scraper from config.
func New(cfg config.ScrapeConfig) *Scraper {
	var f Fetcher
	switch cfg.Fetcher {
	case "http":
		f = &HTTPFetcher{Client: &http.Client{Timeout: cfg.Timeout}}
	default:
		f = &ChromedpFetcher{}
	}
	return &Scraper{fetcher: f, timeout: cfg.Timeout, maxChars: cfg.MaxChars}
}

// NewWithFetcher builds a Scraper around an explicit fetcher (used in tests).
func NewWithFetcher(f Fetcher, timeout time.Duration, maxChars int) *Scraper {
	return &Scraper{fetcher: f, timeout: timeout, maxChars: maxChars}
}

// Scrape downloads rawURL and extracts the main article content.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (models.Article, error) {
	if strings.TrimSpace(rawURL) == "" {
		return models.Article{}, &ScrapeError{URL: rawURL, Err: fmt.Errorf("empty url")}
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return models.Article{}, &ScrapeError{URL: rawURL, Err: fmt.Errorf("invalid url")}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	html, err := s.fetcher.FetchHTML(ctx, rawURL)
	if err != nil {
		return models.Article{}, &ScrapeError{URL: rawURL, Err: err}
	}

	article, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		return models.Article{}, &ScrapeError{URL: rawURL, Err: fmt.Errorf("extract: %w", err)}
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return models.Article{}, &ScrapeError{URL: rawURL, Err: fmt.Errorf("no readable content")}
	}
	if len(text) > s.maxChars {
		cut := s.maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = "No title found"
	}
	source := strings.TrimSpace(article.SiteName)
	if source == "" {
		source = u.Host
	}

	out := models.Article{
		Title:    title,
		URL:      rawURL,
		Content:  text,
		Author:   strings.TrimSpace(article.Byline),
		Source:   source,
		TopImage: article.Image,
	}
	if ts := extractPublishedAt(html); ts != nil {
		out.PublishedAt = ts
	}
	return out, nil
}

// extractPublishedAt looks for common publish-date meta tags in raw HTML.
func extractPublishedAt(html string) *time.Time {
	for _, marker := range []string{
		`property="article:published_time" content="`,
		`name="article:published_time" content="`,
		`itemprop="datePublished" content="`,
		`name="date" content="`,
	} {
		idx := strings.Index(html, marker)
		if idx < 0 {
			continue
		}
		rest := html[idx+len(marker):]
		end := strings.IndexByte(rest, '"')
		if end <= 0 {
			continue
		}
		if t, err := dateparse.ParseAny(rest[:end]); err == nil {
			return &t
		}
	}
	return nil
}

// ChromedpFetcher renders pages in headless Chrome.
type ChromedpFetcher struct{}

func (f *ChromedpFetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent("newsbot/1.0 (+contact@example.com)"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

// HTTPFetcher fetches pages with a plain HTTP GET. It misses JS-rendered
// content but needs no Chrome binary.
type HTTPFetcher struct {
	Client *http.Client
}

func (f *HTTPFetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "newsbot/1.0 (+contact@example.com)")
	resp, err := f.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
