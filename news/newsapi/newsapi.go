package newsapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mohammad-safakhou/newsbot/config"
	"github.com/mohammad-safakhou/newsbot/internal/agent/core"
	"github.com/mohammad-safakhou/newsbot/models"
)

// ValidCategories are the top-headline categories newsapi.org accepts.
var ValidCategories = []string{
	"general", "business", "entertainment", "health",
	"science", "sports", "technology",
}

// IsValidCategory reports whether c is an accepted headline category.
func IsValidCategory(c string) bool {
	for _, v := range ValidCategories {
		if v == c {
			return true
		}
	}
	return false
}

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

type response struct {
	Status       string    `json:"status"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []article `json:"articles"`
}

// Client talks to newsapi.org.
type Client struct {
	cfg  config.NewsAPIConfig
	http *core.HTTPClient
}

// New builds a NewsAPI client from config.
func New(cfg config.NewsAPIConfig) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://newsapi.org/v2"
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &Client{cfg: cfg, http: core.NewHTTPClient(15*time.Second, 2, 300*time.Millisecond)}
}

// Everything searches newsapi.org /everything for a topic, newest first.
func (c *Client) Everything(ctx context.Context, query string, limit int) ([]models.Headline, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", fmt.Sprint(c.pageSize(limit)))
	return c.fetch(ctx, "/everything", params)
}

// TopHeadlines fetches newsapi.org /top-headlines for a category.
func (c *Client) TopHeadlines(ctx context.Context, category string, limit int) ([]models.Headline, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("country", "us")
	params.Set("pageSize", fmt.Sprint(c.pageSize(limit)))
	return c.fetch(ctx, "/top-headlines", params)
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]models.Headline, error) {
	reqURL := fmt.Sprintf("%s%s?%s", c.cfg.Endpoint, path, params.Encode())
	headers := map[string]string{"X-Api-Key": c.cfg.APIKey}

	var resp response
	if err := c.http.DoJSON(ctx, "GET", reqURL, headers, nil, &resp); err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	if resp.Status != "ok" {
		msg := resp.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("newsapi error: %s", msg)
	}

	out := make([]models.Headline, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.URL == "" {
			continue
		}
		out = append(out, models.Headline{
			Title:       a.Title,
			URL:         a.URL,
			Description: a.Description,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
			Author:      a.Author,
		})
	}
	return out, nil
}

func (c *Client) pageSize(limit int) int {
	if limit <= 0 {
		limit = 10
	}
	if c.cfg.MaxResults > 0 && limit > c.cfg.MaxResults {
		limit = c.cfg.MaxResults
	}
	return limit
}
