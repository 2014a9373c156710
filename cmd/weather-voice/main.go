package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	httpapi "github.com/i474232898/weather-voice/internal/api/http"
	"github.com/i474232898/weather-voice/internal/config"
	"github.com/i474232898/weather-voice/internal/scheduler"
	"github.com/i474232898/weather-voice/internal/store"
	"github.com/i474232898/weather-voice/internal/summary"
	"github.com/i474232898/weather-voice/internal/weather"
	"github.com/i474232898/weather-voice/internal/weather/providers"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	if cfg.OpenWeatherAPIKey == "" {
		log.Warn("OPENWEATHER_API_KEY is not set; weather requests will fail")
	}
	if cfg.GeminiAPIKey == "" {
		log.Warn("GEMINI_API_KEY is not set; summarize requests will fail")
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	sched := scheduler.New()

	// Payload cache: Redis when configured, otherwise in memory.
	var cache weather.PayloadCache
	if cfg.RedisURL != "" {
		rs, err := store.NewRedisStore(cfg.RedisURL, "weather-voice:")
		if err != nil {
			log.Fatalf("failed to configure redis: %v", err)
		}
		defer rs.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rs.Ping(pingCtx); err != nil {
			log.WithFields(log.Fields{"error": err}).Warn("redis is not reachable; payloads will be fetched upstream")
		}
		cancel()
		cache = rs
	} else {
		mem := store.NewMemoryStore(cfg.CacheMaxEntries)
		if err := sched.Sweep(mem, cfg.CacheSweepInterval); err != nil {
			log.Fatalf("failed to schedule cache sweep: %v", err)
		}
		cache = mem
	}

	backoff := providers.DefaultBackoff
	backoff.MaxRetries = cfg.HTTPMaxRetries

	owm := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey,
		providers.WithCache(cache, cfg.CacheTTL),
		providers.WithBackoff(backoff),
		providers.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	var geocoder weather.Geocoder = owm
	if cfg.GeocoderProvider == "google" {
		geocoder = providers.NewGoogleGeocoder(cfg.GeocoderAPIKey)
	}

	// Core services.
	weatherSvc := weather.NewService(geocoder, owm)

	summarySvc := summary.NewService(summary.NewClient(cfg.Gemini()))

	if err := sched.Warm(weatherSvc, cfg.WarmCities, cfg.WarmInterval); err != nil {
		log.Fatalf("failed to schedule warm-up: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	app := httpapi.NewApp("weather-voice")
	httpapi.RegisterRoutes(app, weatherSvc, summarySvc)

	go func() {
		log.WithFields(log.Fields{"port": cfg.Port}).Info("listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
