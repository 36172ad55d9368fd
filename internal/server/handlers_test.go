package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/newsbot/internal/scrape"
	"github.com/mohammad-safakhou/newsbot/internal/search"
	"github.com/mohammad-safakhou/newsbot/internal/service"
	"github.com/mohammad-safakhou/newsbot/models"
)

type stubScraper struct {
	fail bool
}

func (s *stubScraper) Scrape(ctx context.Context, rawURL string) (models.Article, error) {
	if s.fail {
		return models.Article{}, &scrape.ScrapeError{URL: rawURL, Err: errors.New("blocked")}
	}
	return models.Article{URL: rawURL, Title: "Stub Article", Content: "body"}, nil
}

type stubAnalyzer struct{}

func (s *stubAnalyzer) Analyze(ctx context.Context, article models.Article) (models.Analysis, error) {
	return models.Analysis{
		ID:                "an-1",
		Article:           article,
		Summary:           models.Summary{OriginalTitle: article.Title, Summary: "short"},
		FactChecks:        []models.FactCheck{},
		CredibilityScore:  64,
		OverallAssessment: "ok",
	}, nil
}

type stubNews struct {
	headlines []models.Headline
}

func (s *stubNews) Everything(ctx context.Context, query string, limit int) ([]models.Headline, error) {
	return s.headlines, nil
}

func (s *stubNews) TopHeadlines(ctx context.Context, category string, limit int) ([]models.Headline, error) {
	return s.headlines, nil
}

func newTestHandler(t *testing.T, scraperFails bool) *AnalysisHandler {
	t.Helper()
	idx, err := search.NewIndex()
	if err != nil {
		t.Fatalf("search.NewIndex: %v", err)
	}
	news := &stubNews{headlines: []models.Headline{{Title: "H", URL: "https://h.example"}}}
	svc := service.New(&stubScraper{fail: scraperFails}, &stubAnalyzer{}, news, nil, nil, idx)
	return &AnalysisHandler{Svc: svc}
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestAnalyzeArticleEndpoint(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/article", strings.NewReader(`{"url":"https://x.example/story"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.analyzeArticle(e.NewContext(req, rec)); err != nil {
		t.Fatalf("analyzeArticle: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var a models.Analysis
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.CredibilityScore != 64 || a.Summary.Summary != "short" {
		t.Fatalf("unexpected analysis: %+v", a)
	}
}

func TestAnalyzeArticleMissingURL(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/article", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.analyzeArticle(e.NewContext(req, rec))
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAnalyzeArticleScrapeFailureIs400(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, true)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/article", strings.NewReader(`{"url":"https://x.example/blocked"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.analyzeArticle(e.NewContext(req, rec))
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for scrape failure, got %d", code)
	}
}

func TestAnalyzeBatchEndpoint(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/batch", strings.NewReader(`["https://x.example/1","https://x.example/2"]`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.analyzeBatch(e.NewContext(req, rec)); err != nil {
		t.Fatalf("analyzeBatch: %v", err)
	}
	var resp BatchAnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || resp.Successful != 2 {
		t.Fatalf("unexpected batch response: %+v", resp)
	}
}

func TestAnalyzeBatchEmptyBody(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/batch", strings.NewReader(`[]`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.analyzeBatch(e.NewContext(req, rec)); err != nil {
		t.Fatalf("analyzeBatch: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty batch, got %d", rec.Code)
	}
	var resp BatchAnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 0 || resp.Successful != 0 {
		t.Fatalf("expected zero counts, got %+v", resp)
	}
}

func TestAnalyzeBatchTooManyURLs(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, false)

	var urls []string
	for i := 0; i < 11; i++ {
		urls = append(urls, `"https://x.example/n"`)
	}
	body := "[" + strings.Join(urls, ",") + "]"
	req := httptest.NewRequest(http.MethodPost, "/api/analyze/batch", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.analyzeBatch(e.NewContext(req, rec))
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized batch, got %d", code)
	}
}

func TestHeadlinesEndpoint(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/headlines/science?limit=5", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("category")
	ctx.SetParamValues("science")

	if err := h.headlines(ctx); err != nil {
		t.Fatalf("headlines: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"category":"science"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestHeadlinesInvalidCategory(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/headlines/politics", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("category")
	ctx.SetParamValues("politics")

	err := h.headlines(ctx)
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestHeadlinesLimitTooLarge(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/headlines/science?limit=51", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("category")
	ctx.SetParamValues("science")

	err := h.headlines(ctx)
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for limit over 50, got %d", code)
	}
	var he *echo.HTTPError
	errors.As(err, &he)
	if msg, _ := he.Message.(string); !strings.Contains(msg, "50") {
		t.Fatalf("error should state the limit: %v", he.Message)
	}
}

func TestGetAnalysisWithoutStore(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/analyses/an-1", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("an-1")

	err := h.getAnalysis(ctx)
	if code := httpCode(t, err); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without store, got %d", code)
	}
}

func TestSearchAnalysesEndpoint(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, false)

	// analyze first so the index has a document
	areq := httptest.NewRequest(http.MethodPost, "/api/analyze/article", strings.NewReader(`{"url":"https://x.example/s"}`))
	areq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	arec := httptest.NewRecorder()
	if err := h.analyzeArticle(e.NewContext(areq, arec)); err != nil {
		t.Fatalf("analyzeArticle: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/analyses/search?q=Stub", nil)
	rec := httptest.NewRecorder()
	if err := h.searchAnalyses(e.NewContext(req, rec)); err != nil {
		t.Fatalf("searchAnalyses: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Fatalf("expected one hit: %s", rec.Body.String())
	}
}

func TestSearchAnalysesRequiresQuery(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/analyses/search", nil)
	rec := httptest.NewRecorder()

	err := h.searchAnalyses(e.NewContext(req, rec))
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}
