package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/mohammad-safakhou/newsbot/config"
	agentcore "github.com/mohammad-safakhou/newsbot/internal/agent/core"
	agenttele "github.com/mohammad-safakhou/newsbot/internal/agent/telemetry"
	"github.com/mohammad-safakhou/newsbot/internal/cache"
	"github.com/mohammad-safakhou/newsbot/internal/search"
	"github.com/mohammad-safakhou/newsbot/internal/service"
	"github.com/mohammad-safakhou/newsbot/internal/store"
	"github.com/mohammad-safakhou/newsbot/tools/web_search"
	"github.com/mohammad-safakhou/newsbot/tools/web_search/serper"
)

// Run builds the full service from config and serves HTTP until the listener
// fails.
func Run(cfg *appconfig.Config) error {
	e := newEcho()

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"service": "newsbot",
			"version": "1.0.0",
			"status":  "running",
			"endpoints": []string{
				"POST /api/analyze/article",
				"POST /api/analyze/batch",
				"POST /api/search/topic",
				"GET /api/headlines/:category",
				"GET /api/analyses",
				"GET /api/analyses/:id",
				"GET /api/analyses/search",
			},
		})
	})
	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()

	var c *cache.Cache
	if cfg.Storage.Redis.Enabled() {
		var err error
		c, err = cache.New(ctx, cfg.Storage.Redis)
		if err != nil {
			return err
		}
	}

	var st *store.Store
	if cfg.Storage.Postgres.Enabled() {
		dsn := cfg.Storage.Postgres.DSN()
		if err := store.Migrate("file://migrations", dsn, "up", 0); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		var err error
		st, err = store.NewWithDSN(ctx, dsn)
		if err != nil {
			return err
		}
	}

	idx, err := search.NewIndex()
	if err != nil {
		return err
	}

	tele := agenttele.NewTelemetry(cfg.Telemetry)
	llm, err := agentcore.NewLLMProvider(cfg.LLM)
	if err != nil {
		return err
	}
	var searcher web_search.Searcher
	if cfg.Sources.WebSearch.SerperAPIKey != "" {
		searcher = serper.New(cfg.Sources.WebSearch.SerperAPIKey, cfg.Sources.WebSearch.Timeout)
	}
	pipeline := agentcore.NewPipeline(cfg, llm, searcher, tele)

	svc := service.FromConfig(cfg, pipeline, c, st, idx)

	api := e.Group("/api")
	if cfg.Server.JWTSecret != "" {
		api.Use(authMiddleware([]byte(cfg.Server.JWTSecret)))
	}
	ah := &AnalysisHandler{Svc: svc}
	ah.Register(api)

	if cfg.Schedule.HeadlinesCron != "" {
		sched := &Scheduler{
			Svc:        svc,
			Cache:      c,
			Cron:       cfg.Schedule.HeadlinesCron,
			Categories: cfg.Schedule.Categories,
			Limit:      cfg.Schedule.Limit,
			Stop:       make(chan struct{}),
		}
		sched.Start()
	}

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":8000"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// newEcho builds the echo instance with recovery, CORS and a unified JSON
// error handler.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))
	return e
}
