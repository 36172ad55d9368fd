package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/newsbot/internal/scrape"
	"github.com/mohammad-safakhou/newsbot/internal/service"
	"github.com/mohammad-safakhou/newsbot/internal/store"
	"github.com/mohammad-safakhou/newsbot/news/newsapi"
)

const maxHeadlineLimit = 50

type AnalyzeRequest struct {
	URL string `json:"url"`
}

type BatchAnalyzeResponse struct {
	Analyses   []service.BatchItem `json:"analyses"`
	Total      int                 `json:"total_requested"`
	Successful int                 `json:"successful_analyses"`
}

type TopicSearchRequest struct {
	Topic string `json:"topic"`
	Limit int    `json:"limit"`
}

// AnalysisHandler exposes the article analysis endpoints.
type AnalysisHandler struct {
	Svc *service.Service
}

func (h *AnalysisHandler) Register(g *echo.Group) {
	g.POST("/analyze/article", h.analyzeArticle)
	g.POST("/analyze/batch", h.analyzeBatch)
	g.POST("/search/topic", h.searchTopic)
	g.GET("/headlines/:category", h.headlines)
	g.GET("/analyses", h.listAnalyses)
	g.GET("/analyses/search", h.searchAnalyses)
	g.GET("/analyses/:id", h.getAnalysis)
}

func (h *AnalysisHandler) analyzeArticle(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}
	analysis, err := h.Svc.AnalyzeURL(c.Request().Context(), req.URL)
	if err != nil {
		var se *scrape.ScrapeError
		if errors.As(err, &se) {
			return echo.NewHTTPError(http.StatusBadRequest, "error processing article: "+se.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, analysis)
}

func (h *AnalysisHandler) analyzeBatch(c echo.Context) error {
	var urls []string
	if err := c.Bind(&urls); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := h.Svc.AnalyzeBatch(c.Request().Context(), urls)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resp := BatchAnalyzeResponse{Analyses: items, Total: len(items)}
	for _, it := range items {
		if it.Analysis != nil {
			resp.Successful++
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AnalysisHandler) searchTopic(c echo.Context) error {
	var req TopicSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Topic) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "topic is required")
	}
	headlines, err := h.Svc.SearchTopic(c.Request().Context(), req.Topic, req.Limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"topic":         req.Topic,
		"total_results": len(headlines),
		"articles":      headlines,
	})
}

func (h *AnalysisHandler) headlines(c echo.Context) error {
	category := c.Param("category")
	if !newsapi.IsValidCategory(category) {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("invalid category %q, must be one of %v", category, newsapi.ValidCategories))
	}
	limit := intQuery(c, "limit", 10)
	if limit > maxHeadlineLimit {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("maximum %d headlines allowed", maxHeadlineLimit))
	}
	headlines, err := h.Svc.TopHeadlines(c.Request().Context(), category, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"category":      category,
		"total_results": len(headlines),
		"headlines":     headlines,
	})
}

func (h *AnalysisHandler) getAnalysis(c echo.Context) error {
	a, err := h.Svc.GetAnalysis(c.Request().Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUnavailable):
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, store.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AnalysisHandler) listAnalyses(c echo.Context) error {
	rows, err := h.Svc.ListAnalyses(c.Request().Context(), intQuery(c, "limit", 20))
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"analyses": rows, "count": len(rows)})
}

func (h *AnalysisHandler) searchAnalyses(c echo.Context) error {
	q := c.QueryParam("q")
	hits, err := h.Svc.SearchAnalyses(q, intQuery(c, "limit", 10))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"query": q, "hits": hits, "count": len(hits)})
}

func intQuery(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
