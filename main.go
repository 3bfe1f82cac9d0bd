package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/pistainteligente/pista/cache"
	"github.com/pistainteligente/pista/config"
	"github.com/pistainteligente/pista/db"
	"github.com/pistainteligente/pista/handlers"
	"github.com/pistainteligente/pista/jobs"
	applog "github.com/pistainteligente/pista/logger"
	mw "github.com/pistainteligente/pista/middleware"
	"github.com/pistainteligente/pista/patterns"
	"github.com/pistainteligente/pista/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bdb, err := db.Setup(ctx, cfg)
	if err != nil {
		logger.Fatal("database setup failed", zap.Error(err))
	}
	defer bdb.Close()

	if cfg.DBDriver == config.DriverSQLite {
		if err := db.CreateTables(ctx, bdb); err != nil {
			logger.Fatal("create tables failed", zap.Error(err))
		}
	}

	results := store.New(bdb)

	var resultCache cache.Store
	if cfg.RedisURL != "" {
		rs, err := cache.NewRedisStore(cfg.RedisURL, "pista:")
		if err != nil {
			logger.Fatal("redis setup failed", zap.Error(err))
		}
		defer rs.Close()
		resultCache = rs
	} else {
		resultCache = cache.NewMemoryStore(cfg.CacheSize, cfg.CacheTTL)
	}

	svc := patterns.NewService(results, logger,
		patterns.WithCache(resultCache, cfg.CacheTTL),
		patterns.WithTimeout(cfg.StoreTimeout),
		patterns.WithLocation(cfg.Location()),
	)

	if cfg.WarmCron != "" {
		runner := jobs.NewRunner(logger, ctx)
		defaults := cfg.PatternDefaults()
		withFuture := defaults
		withFuture.RequireFutureMatch = true
		if _, err := runner.Add(cfg.WarmCron, jobs.WarmPatterns(svc, logger, defaults, withFuture)); err != nil {
			logger.Fatal("invalid WARM_CRON", zap.String("spec", cfg.WarmCron), zap.Error(err))
		}
		runner.Start()
		defer runner.Stop()
	}

	h := handlers.New(results, svc, resultCache, cfg.PatternDefaults(), logger)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handlers.ErrorHandler(logger)
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			switch {
			case v.Status >= 500:
				logger.Error("http request", fields...)
			case v.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))

	// Public
	e.GET("/healthz", h.Health)
	api := e.Group("/api")
	api.GET("/analisis/patrones", h.Patterns)
	api.GET("/hipodromos", h.Tracks)

	// Admin – require a service-role token
	if cfg.JWTSecret != "" {
		admin := api.Group("/admin", mw.JWT(cfg.JWTKey(), mw.ServiceRole))
		admin.DELETE("/cache", h.FlushCache)
	} else {
		logger.Warn("JWT_SECRET not set, admin routes disabled")
	}

	var s *http.Server
	if cfg.Debug {
		s = &http.Server{Addr: cfg.Port, Handler: e}
	} else {
		autoTLS := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache(".cache"),
			HostPolicy: autocert.HostWhitelist(cfg.TLSDomains...),
		}
		s = &http.Server{
			Addr:         ":443",
			Handler:      e,
			TLSConfig:    autoTLS.TLSConfig(),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  15 * time.Second,
		}
	}

	go func() {
		var err error
		if s.TLSConfig != nil {
			logger.Info("starting server", zap.String("mode", "tls"), zap.Strings("domains", cfg.TLSDomains))
			err = s.ListenAndServeTLS("", "")
		} else {
			logger.Info("starting server", zap.String("mode", "debug"), zap.String("addr", cfg.Port))
			err = s.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server exited", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
