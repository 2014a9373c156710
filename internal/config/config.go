package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/i474232898/weather-voice/internal/summary"
)

type AppConfig struct {
	// Secrets. Empty values are allowed at startup; the endpoints that need
	// them answer with a configuration error instead.
	OpenWeatherAPIKey string
	GeminiAPIKey      string
	GeocoderAPIKey    string

	// GeocoderProvider selects "openweather" (default) or "google".
	GeocoderProvider string

	GeminiModel           string
	GeminiTemperature     float64
	GeminiTopK            int
	GeminiMaxOutputTokens int

	HTTPTimeout    time.Duration
	HTTPMaxRetries int

	// Provider throttling; RateLimitRPS <= 0 disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	// Freshness window for raw provider payloads.
	CacheTTL        time.Duration
	CacheMaxEntries int
	// RedisURL switches the payload cache to Redis when set.
	RedisURL string

	// CacheSweepInterval controls how often expired entries are evicted.
	CacheSweepInterval time.Duration

	// WarmCities are fetched every WarmInterval to keep the cache fresh.
	WarmCities   []string
	WarmInterval time.Duration

	// SpeechCommand is an external TTS program; empty logs utterances instead.
	SpeechCommand string

	LogLevel string
	Port     string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.GeocoderProvider = strings.ToLower(getenvDefault("GEOCODER_PROVIDER", "openweather"))
	if cfg.GeocoderProvider != "openweather" && cfg.GeocoderProvider != "google" {
		return nil, fmt.Errorf("invalid GEOCODER_PROVIDER: %s", cfg.GeocoderProvider)
	}

	cfg.GeminiModel = getenvDefault("GEMINI_MODEL", "gemini-1.5-flash")
	temp, err := strconv.ParseFloat(getenvDefault("GEMINI_TEMPERATURE", "0.4"), 64)
	if err != nil || temp < 0 || temp > 2 {
		return nil, fmt.Errorf("invalid GEMINI_TEMPERATURE: %q", os.Getenv("GEMINI_TEMPERATURE"))
	}
	cfg.GeminiTemperature = temp
	cfg.GeminiTopK = getenvInt("GEMINI_TOP_K", 40)
	cfg.GeminiMaxOutputTokens = getenvInt("GEMINI_MAX_OUTPUT_TOKENS", 150)

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	cfg.HTTPMaxRetries = getenvInt("HTTP_MAX_RETRIES", 0)

	rps, err := strconv.ParseFloat(getenvDefault("RATE_LIMIT_RPS", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	cfg.RateLimitRPS = rps
	cfg.RateLimitBurst = getenvInt("RATE_LIMIT_BURST", 4)

	// Five minutes matches the upstream revalidation window.
	if cfg.CacheTTL, err = getenvDuration("WEATHER_CACHE_TTL", "5m"); err != nil {
		return nil, err
	}
	cfg.CacheMaxEntries = getenvInt("WEATHER_CACHE_MAX_ENTRIES", 1000)
	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.CacheSweepInterval, err = getenvDuration("CACHE_SWEEP_INTERVAL", "1m"); err != nil {
		return nil, err
	}

	cfg.WarmCities = splitList(os.Getenv("WARM_CITIES"))
	if cfg.WarmInterval, err = getenvDuration("WARM_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	cfg.SpeechCommand = os.Getenv("SPEECH_COMMAND")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

// Gemini returns the generator client settings.
func (c *AppConfig) Gemini() summary.Config {
	g := summary.DefaultConfig()
	g.APIKey = c.GeminiAPIKey
	g.Model = c.GeminiModel
	g.Temperature = c.GeminiTemperature
	g.TopK = c.GeminiTopK
	g.MaxOutputTokens = c.GeminiMaxOutputTokens
	g.MaxRetries = c.HTTPMaxRetries
	return g
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
