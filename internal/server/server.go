package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/mohammad-safakhou/govqa/config"
	"github.com/mohammad-safakhou/govqa/internal/cache"
	"github.com/mohammad-safakhou/govqa/internal/qa"
	"github.com/mohammad-safakhou/govqa/internal/segment"
	"github.com/mohammad-safakhou/govqa/internal/store"
)

// Run wires the pipeline together and serves the HTTP API until the listener
// stops.
func Run(cfg *appconfig.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
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
		AllowOrigins: cfg.General.AllowOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()
	dsn := cfg.Storage.Postgres.DSN()
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: %w", err)
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	seg, err := segment.NewGSE()
	if err != nil {
		return fmt.Errorf("load segmenter dictionary: %w", err)
	}

	llmClient := qa.NewClient(cfg.LLM, log.New(log.Writer(), "[LLM] ", log.LstdFlags))
	composer := &qa.Composer{
		Matcher:             &qa.Matcher{Source: st},
		Generator:           llmClient,
		Estimator:           &qa.Estimator{Seg: seg},
		Recorder:            st,
		ConfidenceThreshold: cfg.QA.ConfidenceThreshold,
		ManualChatURL:       cfg.QA.ManualChatURL,
		Logger:              log.New(log.Writer(), "[QA] ", log.LstdFlags),
	}

	if cfg.Storage.Redis.Host != "" {
		rdb, err := cache.Conn(ctx, cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, cfg.Storage.Redis.Timeout)
		if err != nil {
			return fmt.Errorf("redis connection failed (%s:%s): %w", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, err)
		}
		composer.Cache = cache.NewAnswers(rdb, cfg.QA.AnswerCacheTTL, nil)
	}

	h := &QAHandler{
		Composer:      composer,
		ManualChatURL: cfg.QA.ManualChatURL,
		Logger:        baseLogger,
	}
	h.Register(e.Group("/api"))

	addr := cfg.General.Listen
	if addr == "" {
		addr = ":5000"
	}
	log.Printf("listening on %s (generation timeout %s)", addr, llmClient.Timeout())
	return e.Start(addr)
}
