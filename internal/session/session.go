package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/i474232898/weather-voice/internal/summary"
	"github.com/i474232898/weather-voice/internal/weather"
)

// SummaryUnavailable is shown when the generator fails but weather succeeded.
const SummaryUnavailable = "Could not generate a weather summary."

var (
	// ErrEmptyCity is returned by Search for a blank city name.
	ErrEmptyCity = errors.New("please enter a city name")
	// ErrSuperseded is returned when a newer query or unit switch started
	// while this one was in flight; its result was discarded.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// WeatherSource fetches both unit systems for a query.
type WeatherSource interface {
	FetchDual(ctx context.Context, q weather.Query) (weather.Dual, error)
}

// Summarizer writes a summary for one model.
type Summarizer interface {
	Summarize(ctx context.Context, m weather.Model) (summary.Result, error)
}

// Speaker is the voice output the session drives.
type Speaker interface {
	Speak(text string)
	Stop()
	SetEnabled(on bool)
	Enabled() bool
}

// View is a snapshot of what a UI would render.
type View struct {
	Generation       uint64
	Units            weather.Units
	Weather          *weather.Model
	Summary          string
	SummaryAvailable bool
	Err              error
}

// Session is the state behind one user's screen: the fetched model pair,
// the selected unit system, the current summary and the voice preference.
// Network calls run without the lock held; every result is checked against
// the generation and summary sequence it was started under before it is
// applied.
type Session struct {
	source WeatherSource
	sum    Summarizer
	voice  Speaker

	mu        sync.Mutex
	gen       uint64
	seq       uint64
	units     weather.Units
	dual      *weather.Dual
	lastQuery *weather.Query
	text      string
	textOK    bool
	err       error
}

// New creates a session showing metric units.
func New(source WeatherSource, sum Summarizer, voice Speaker) *Session {
	return &Session{
		source: source,
		sum:    sum,
		voice:  voice,
		units:  weather.Metric,
	}
}

// Search fetches the weather for a city name.
func (s *Session) Search(ctx context.Context, city string) error {
	city = strings.TrimSpace(city)
	if city == "" {
		s.mu.Lock()
		s.err = ErrEmptyCity
		s.mu.Unlock()
		return ErrEmptyCity
	}
	return s.run(ctx, weather.Query{City: city})
}

// Locate fetches the weather for coordinates, e.g. from device geolocation.
func (s *Session) Locate(ctx context.Context, lat, lon float64) error {
	return s.run(ctx, weather.CoordinatesQuery(lat, lon))
}

// Refresh repeats the last successful query. It does nothing when no
// weather is loaded.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	q := s.lastQuery
	loaded := s.dual != nil
	s.mu.Unlock()

	if q == nil || !loaded {
		return nil
	}
	return s.run(ctx, *q)
}

func (s *Session) run(ctx context.Context, q weather.Query) error {
	s.mu.Lock()
	s.gen++
	s.seq++
	gen := s.gen
	s.dual = nil
	s.text, s.textOK, s.err = "", false, nil
	s.mu.Unlock()

	dual, err := s.source.FetchDual(ctx, q)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		log.WithFields(log.Fields{"generation": gen}).Debug("discarding stale weather result")
		return ErrSuperseded
	}
	if err != nil {
		s.err = err
		s.mu.Unlock()
		return err
	}
	s.dual = &dual
	s.lastQuery = &q
	seq := s.seq
	m := dual.Get(s.units)
	s.mu.Unlock()

	return s.summarize(ctx, gen, seq, m)
}

// SwitchUnits selects the other model of the held pair and regenerates the
// summary for it. No weather request is made.
func (s *Session) SwitchUnits(ctx context.Context, units weather.Units) error {
	s.mu.Lock()
	s.units = units
	if s.dual == nil {
		s.mu.Unlock()
		return nil
	}
	s.seq++
	gen, seq := s.gen, s.seq
	m := s.dual.Get(units)
	s.mu.Unlock()

	return s.summarize(ctx, gen, seq, m)
}

func (s *Session) summarize(ctx context.Context, gen, seq uint64, m weather.Model) error {
	res, err := s.sum.Summarize(ctx, m)

	s.mu.Lock()
	if gen != s.gen || seq != s.seq {
		s.mu.Unlock()
		log.WithFields(log.Fields{"generation": gen, "seq": seq}).Debug("discarding stale summary")
		return ErrSuperseded
	}
	if err != nil {
		// Weather stays on screen; only the summary region degrades.
		s.text, s.textOK = SummaryUnavailable, false
		s.mu.Unlock()
		log.WithFields(log.Fields{"error": err, "units": m.Units}).Warn("summary unavailable")
		return nil
	}
	s.text, s.textOK = res.Text, true
	// Spoken under the lock: the last applied summary is the last one spoken.
	if s.voice != nil {
		s.voice.Speak(res.Text)
	}
	s.mu.Unlock()
	return nil
}

// SetVoice toggles spoken output.
func (s *Session) SetVoice(on bool) {
	if s.voice != nil {
		s.voice.SetEnabled(on)
	}
}

// Stop silences the current utterance.
func (s *Session) Stop() {
	if s.voice != nil {
		s.voice.Stop()
	}
}

// View returns the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Generation:       s.gen,
		Units:            s.units,
		Summary:          s.text,
		SummaryAvailable: s.textOK,
		Err:              s.err,
	}
	if s.dual != nil {
		m := s.dual.Get(s.units)
		v.Weather = &m
	}
	return v
}
