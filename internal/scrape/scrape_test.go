package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>Quakes Shake Region</title>
<meta property="article:published_time" content="2024-03-15T09:30:00Z">
<meta property="og:site_name" content="Example News">
</head>
<body>
<article>
<h1>Quakes Shake Region</h1>
<p>A magnitude 5.8 earthquake struck the coastal region early on Friday,
rattling windows and knocking items off shelves across several towns.
Authorities reported no serious injuries but inspections of bridges and
older buildings were underway throughout the morning.</p>
<p>Seismologists said aftershocks were likely over the coming days and
urged residents to review their emergency plans. Schools in two districts
cancelled classes as a precaution while crews checked for damage.</p>
</article>
</body>
</html>`

type fakeFetcher struct {
	html string
	err  error
}

func (f *fakeFetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	return f.html, f.err
}

func TestScrapeExtractsArticle(t *testing.T) {
	s := NewWithFetcher(&fakeFetcher{html: samplePage}, 5*time.Second, 20000)

	a, err := s.Scrape(context.Background(), "https://news.example.com/quakes")
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if a.Title != "Quakes Shake Region" {
		t.Fatalf("unexpected title: %q", a.Title)
	}
	if !strings.Contains(a.Content, "magnitude 5.8 earthquake") {
		t.Fatalf("content missing article text: %q", a.Content)
	}
	if a.URL != "https://news.example.com/quakes" {
		t.Fatalf("unexpected url: %q", a.URL)
	}
	if a.PublishedAt == nil || a.PublishedAt.UTC().Format("2006-01-02") != "2024-03-15" {
		t.Fatalf("publish date not extracted: %v", a.PublishedAt)
	}
}

func TestScrapeTruncatesContent(t *testing.T) {
	s := NewWithFetcher(&fakeFetcher{html: samplePage}, 5*time.Second, 50)

	a, err := s.Scrape(context.Background(), "https://news.example.com/quakes")
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(a.Content) > 50 {
		t.Fatalf("content not truncated: %d chars", len(a.Content))
	}
}

func TestScrapeTruncationKeepsRuneBoundary(t *testing.T) {
	page := `<html><head><title>T</title></head><body><article><p>` +
		strings.Repeat("日", 200) + `</p></article></body></html>`
	// 40 is not a multiple of 3, so a naive byte cut would split a rune
	s := NewWithFetcher(&fakeFetcher{html: page}, 5*time.Second, 40)

	a, err := s.Scrape(context.Background(), "https://news.example.com/unicode")
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(a.Content) > 40 {
		t.Fatalf("content not truncated: %d bytes", len(a.Content))
	}
	if !utf8.ValidString(a.Content) {
		t.Fatalf("truncation split a rune: %q", a.Content)
	}
}

func TestScrapeInvalidURL(t *testing.T) {
	s := NewWithFetcher(&fakeFetcher{html: samplePage}, 5*time.Second, 20000)

	for _, u := range []string{"", "   ", "ftp://example.com/x", "not a url"} {
		_, err := s.Scrape(context.Background(), u)
		var se *ScrapeError
		if !errors.As(err, &se) {
			t.Fatalf("expected ScrapeError for %q, got %v", u, err)
		}
	}
}

func TestScrapeFetchFailure(t *testing.T) {
	s := NewWithFetcher(&fakeFetcher{err: errors.New("connection refused")}, 5*time.Second, 20000)

	_, err := s.Scrape(context.Background(), "https://news.example.com/down")
	var se *ScrapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected ScrapeError, got %v", err)
	}
	if se.URL != "https://news.example.com/down" {
		t.Fatalf("error should carry url, got %q", se.URL)
	}
}

func TestScrapeEmptyPage(t *testing.T) {
	s := NewWithFetcher(&fakeFetcher{html: "<html><body></body></html>"}, 5*time.Second, 20000)

	_, err := s.Scrape(context.Background(), "https://news.example.com/empty")
	var se *ScrapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected ScrapeError for empty page, got %v", err)
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "newsbot/") {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := &HTTPFetcher{Client: srv.Client()}
	html, err := f.FetchHTML(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchHTML: %v", err)
	}
	if !strings.Contains(html, "Quakes Shake Region") {
		t.Fatal("fetched html missing page content")
	}
}

func TestHTTPFetcherNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f := &HTTPFetcher{Client: srv.Client()}
	if _, err := f.FetchHTML(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestExtractPublishedAtMissing(t *testing.T) {
	if ts := extractPublishedAt("<html><head></head></html>"); ts != nil {
		t.Fatalf("expected nil for page without date meta, got %v", ts)
	}
}
