package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"ercot-forecast/internal/api"
	"ercot-forecast/internal/catalog"
	"ercot-forecast/internal/config"
	"ercot-forecast/internal/data"
	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/logging"
	"ercot-forecast/internal/market"
	"ercot-forecast/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}
	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	metrics.Init()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	cat, err := catalog.Default().WithBaseURL(cfg.APIBaseURL)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	auth := data.NewAuthenticator(data.AuthConfig{
		URL:      cfg.AuthURL,
		ClientID: cfg.ClientID,
		Scope:    cfg.Scope,
		Username: cfg.Username,
		Password: cfg.Password,
		Lifetime: cfg.TokenLifetime,
	}, httpClient, logger)

	var cache *data.ResponseCache
	if cfg.CacheActive() {
		logger.Warn("response cache enabled; for local development only", "ttl", cfg.CacheTTL)
		cache = data.NewResponseCache(cfg.CacheTTL)
		defer cache.Close()
	}
	client := data.NewClient(auth, data.ClientConfig{
		SubscriptionKey:   cfg.SubscriptionKey,
		Timeout:           cfg.RequestTimeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
		MaxPages:          cfg.MaxPages,
		Cache:             cache,
		Logger:            logger,
		HTTP:              httpClient,
	})

	svc := market.New(cat, client,
		market.WithLogger(logger),
		market.WithDiagnostics(diag.Tee(diag.LogSink{Logger: logger}, metrics.WarningSink{})),
		market.WithPageSize(cfg.PageSize),
	)

	router := api.NewRouter(api.Options{
		Service:         svc,
		Logger:          logger,
		MaxResponseRows: cfg.MaxResponseRows,
		CORSOrigins:     cfg.AllowedOrigins(),
		Metrics:         promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting API server", "addr", cfg.Addr, "env", cfg.Env, "endpoints", len(cat.Names()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "cached_responses", cache.Len())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
