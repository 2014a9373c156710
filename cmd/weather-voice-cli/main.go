package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/i474232898/weather-voice/internal/apiclient"
	"github.com/i474232898/weather-voice/internal/config"
	"github.com/i474232898/weather-voice/internal/session"
	"github.com/i474232898/weather-voice/internal/speech"
	"github.com/i474232898/weather-voice/internal/store"
	"github.com/i474232898/weather-voice/internal/summary"
	"github.com/i474232898/weather-voice/internal/weather"
	"github.com/i474232898/weather-voice/internal/weather/providers"
)

const help = `commands:
  city <name>        look up a city
  here <lat> <lon>   look up coordinates
  units <metric|imperial>
  refresh            repeat the last lookup
  voice <on|off>
  stop               stop speaking
  show               print the current view
  quit`

func main() {
	server := flag.String("server", "", "weather-voice server URL; empty runs the pipeline in-process")
	city := flag.String("city", "", "city to look up on start")
	units := flag.String("units", "metric", "initial unit system")
	mute := flag.Bool("mute", false, "start with voice output disabled")
	flag.Parse()

	log.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	source, summarizer := backends(cfg, *server)

	var synth speech.Synthesizer = speech.LogSynthesizer{}
	if cfg.SpeechCommand != "" {
		cs, err := speech.NewCommandSynthesizer(cfg.SpeechCommand)
		if err != nil {
			log.Fatalf("speech: %v", err)
		}
		synth = cs
	}
	voice := speech.NewController(synth)
	defer voice.Close()

	sess := session.New(source, summarizer, voice)
	sess.SetVoice(!*mute)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if u, err := weather.ParseUnits(*units); err == nil {
		_ = sess.SwitchUnits(ctx, u)
	}
	if *city != "" {
		go func() { report(sess, sess.Search(ctx, *city)) }()
	}

	fmt.Println(help)
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !dispatch(ctx, sess, line) {
				return
			}
		}
	}
}

// dispatch runs one command; network work goes to the background so a new
// lookup can supersede one still in flight.
func dispatch(ctx context.Context, sess *session.Session, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch fields[0] {
	case "city":
		go func() { report(sess, sess.Search(ctx, arg)) }()
	case "here":
		if len(fields) != 3 {
			fmt.Println("usage: here <lat> <lon>")
			return true
		}
		lat, errLat := strconv.ParseFloat(fields[1], 64)
		lon, errLon := strconv.ParseFloat(fields[2], 64)
		if errLat != nil || errLon != nil {
			fmt.Println("coordinates must be numbers")
			return true
		}
		go func() { report(sess, sess.Locate(ctx, lat, lon)) }()
	case "units":
		u, err := weather.ParseUnits(arg)
		if err != nil {
			fmt.Println(err)
			return true
		}
		go func() { report(sess, sess.SwitchUnits(ctx, u)) }()
	case "refresh":
		go func() { report(sess, sess.Refresh(ctx)) }()
	case "voice":
		sess.SetVoice(arg != "off")
	case "stop":
		sess.Stop()
	case "show":
		report(sess, nil)
	case "quit", "exit":
		return false
	default:
		fmt.Println(help)
	}
	return true
}

func report(sess *session.Session, err error) {
	if errors.Is(err, session.ErrSuperseded) {
		return
	}

	v := sess.View()
	if v.Err != nil {
		fmt.Printf("error: %v\n", v.Err)
		return
	}
	if v.Weather == nil {
		return
	}

	m := v.Weather
	fmt.Printf("\n%s  %s%s (feels like %s%s), %s, wind %s %s\n",
		m.Location.Name,
		strconv.FormatFloat(m.Current.Temp, 'f', 1, 64), m.Units.TempSymbol(),
		strconv.FormatFloat(m.Current.FeelsLike, 'f', 1, 64), m.Units.TempSymbol(),
		m.Current.Description,
		strconv.FormatFloat(m.Current.WindSpeed, 'f', 1, 64), m.Units.SpeedSymbol(),
	)
	if today, ok := m.Today(); ok {
		fmt.Printf("today: high %s%s, low %s%s\n",
			strconv.FormatFloat(today.Temp.Max, 'f', 0, 64), m.Units.TempSymbol(),
			strconv.FormatFloat(today.Temp.Min, 'f', 0, 64), m.Units.TempSymbol(),
		)
	}
	for _, a := range m.Alerts {
		fmt.Printf("ALERT: %s\n", a.Event)
	}
	if v.Summary != "" {
		fmt.Printf("summary: %s\n", v.Summary)
	}
}

// backends returns the weather and summary sources: the HTTP API when a
// server is given, otherwise the providers wired directly.
func backends(cfg *config.AppConfig, server string) (session.WeatherSource, session.Summarizer) {
	if server != "" {
		c := apiclient.New(server, cfg.HTTPTimeout+20*time.Second, cfg.HTTPMaxRetries)
		return c, c
	}

	backoff := providers.DefaultBackoff
	backoff.MaxRetries = cfg.HTTPMaxRetries

	owm := providers.NewOpenWeatherProvider(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.OpenWeatherAPIKey,
		providers.WithCache(store.NewMemoryStore(cfg.CacheMaxEntries), cfg.CacheTTL),
		providers.WithBackoff(backoff),
		providers.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)
	var geocoder weather.Geocoder = owm
	if cfg.GeocoderProvider == "google" {
		geocoder = providers.NewGoogleGeocoder(cfg.GeocoderAPIKey)
	}

	return weather.NewService(geocoder, owm), summary.NewService(summary.NewClient(cfg.Gemini()))
}
