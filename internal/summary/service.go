package summary

import (
	"context"
	"time"

	"github.com/i474232898/weather-voice/internal/weather"
)

// Generator turns a prompt into plain text.
type Generator interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Result is a summary together with the unit system it was written for.
type Result struct {
	Text  string        `json:"summary"`
	Units weather.Units `json:"units"`
}

// Service composes prompts from models and hands them to a Generator.
type Service struct {
	gen Generator
	now func() time.Time
}

// NewService creates a Service that timestamps prompts with the wall clock.
func NewService(gen Generator) *Service {
	return &Service{gen: gen, now: time.Now}
}

// WithClock returns a copy of s that reads the time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	c := *s
	c.now = now
	return &c
}

// Summarize writes a spoken summary of m.
func (s *Service) Summarize(ctx context.Context, m weather.Model) (Result, error) {
	prompt, err := Compose(m, s.now())
	if err != nil {
		return Result{}, err
	}

	text, err := s.gen.Summarize(ctx, prompt)
	if err != nil {
		return Result{}, err
	}

	return Result{Text: text, Units: m.Units}, nil
}
