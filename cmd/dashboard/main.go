package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard/internal/aggregator"
	"github.com/kjstillabower/weather-dashboard/internal/cities"
	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/config"
	"github.com/kjstillabower/weather-dashboard/internal/dashboard"
	"github.com/kjstillabower/weather-dashboard/internal/detail"
	httphandler "github.com/kjstillabower/weather-dashboard/internal/http"
	"github.com/kjstillabower/weather-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/traffic"
)

const inFlightCheckInterval = 100 * time.Millisecond

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	weatherClient, err := client.NewOpenWeatherClient(cfg.WeatherAPIKey, cfg.WeatherAPIURL, cfg.WeatherAPITimeout)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}
	if !weatherClient.HasAPIKey() {
		logger.Warn("no weather API key configured; every fetch will fail until WEATHER_API_KEY is set")
	}

	tracker := traffic.NewTracker(cfg.DegradedWindow)
	list := cities.NewList(cfg.Cities, cfg.CityMaxLength)
	if list.Len() != len(cfg.Cities) {
		logger.Warn("invalid or duplicate configured cities skipped",
			zap.Strings("configured", cfg.Cities), zap.Strings("tracked", list.Snapshot()))
	}
	dash := dashboard.New(list, aggregator.New(weatherClient, tracker, logger), cfg.Unit, logger)
	dash.SetBatchTimeout(cfg.RequestTimeout)
	details := detail.NewService(weatherClient, logger)

	hub := httphandler.NewHub(dash.View, logger)
	unsubscribe := dash.Subscribe(func(dashboard.View) { hub.Publish() })
	defer unsubscribe()

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(dash, details, &httphandler.HealthConfig{
		APIKeyConfigured: weatherClient.HasAPIKey(),
		Tracker:          tracker,
		DegradedErrorPct: cfg.DegradedErrorPct,
	}, logger)
	inFlight := &httphandler.InFlightTracker{}
	router := httphandler.NewRouter(httphandler.RouterConfig{
		Handler:        handler,
		Hub:            hub,
		InFlight:       inFlight,
		Limiter:        limiter,
		Tracker:        tracker,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	// The initial batch runs once at startup; later batches only follow list changes.
	go func() {
		initCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		defer cancel()
		if err := dash.Refresh(initCtx); err != nil {
			logger.Warn("initial dashboard load", zap.Error(err))
		}
		lifecycle.Set(lifecycle.Serving)
		logger.Info("initial dashboard load complete", zap.Int("cities", list.Len()))
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.Set(lifecycle.Draining)
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight.Count()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.InFlightTimeout)
	defer waitCancel()
	if err := inFlight.WaitForZero(waitCtx, inFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", inFlight.Count()))
	}

	logger.Info("shutdown complete")
	_ = observability.Flush(logger)
}
