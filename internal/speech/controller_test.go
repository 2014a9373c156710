package speech

import (
	"context"
	"sync"
	"testing"
	"time"
)

// blockingSynth plays until canceled and records every start and stop.
type blockingSynth struct {
	mu      sync.Mutex
	started []string
	stopped []string
	playing int
	overlap bool
}

func (s *blockingSynth) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	s.started = append(s.started, text)
	s.playing++
	if s.playing > 1 {
		s.overlap = true
	}
	s.mu.Unlock()

	<-ctx.Done()

	s.mu.Lock()
	s.playing--
	s.stopped = append(s.stopped, text)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *blockingSynth) snapshot() (started, stopped []string, overlap bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.started...), append([]string(nil), s.stopped...), s.overlap
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSpeakReplacesCurrentUtterance(t *testing.T) {
	synth := &blockingSynth{}
	c := NewController(synth)
	defer c.Close()

	c.Speak("A")
	waitFor(t, func() bool { s, _, _ := synth.snapshot(); return len(s) == 1 })

	c.Speak("B")
	waitFor(t, func() bool { s, _, _ := synth.snapshot(); return len(s) == 2 })

	started, stopped, overlap := synth.snapshot()
	if overlap {
		t.Fatal("two utterances played at once")
	}
	if started[0] != "A" || started[1] != "B" {
		t.Fatalf("started = %v", started)
	}
	if len(stopped) != 1 || stopped[0] != "A" {
		t.Fatalf("stopped = %v, want [A]", stopped)
	}
	if text, ok := c.Current(); !ok || text != "B" {
		t.Fatalf("current = %q, %v; want B", text, ok)
	}
	if c.State() != Speaking {
		t.Fatalf("state = %s, want speaking", c.State())
	}
}

func TestStopReturnsToIdle(t *testing.T) {
	synth := &blockingSynth{}
	c := NewController(synth)

	c.Speak("hello")
	c.Stop()

	if c.State() != Idle {
		t.Fatalf("state = %s, want idle", c.State())
	}
	if _, ok := c.Current(); ok {
		t.Fatal("expected no current utterance")
	}
	_, stopped, _ := synth.snapshot()
	if len(stopped) != 1 {
		t.Fatalf("stopped = %v, want one canceled utterance", stopped)
	}

	// Stopping an idle controller is harmless.
	c.Stop()
}

func TestDisabledControllerIsSilent(t *testing.T) {
	synth := &blockingSynth{}
	c := NewController(synth)

	c.Speak("first")
	c.SetEnabled(false)

	if c.Enabled() || c.State() != Idle {
		t.Fatalf("enabled=%v state=%s after disabling", c.Enabled(), c.State())
	}

	c.Speak("second")
	started, _, _ := synth.snapshot()
	for _, s := range started {
		if s == "second" {
			t.Fatal("disabled controller spoke")
		}
	}

	c.SetEnabled(true)
	c.Speak("")
	if c.State() != Idle {
		t.Fatal("empty text should not start playback")
	}
}

func TestFinishedUtteranceClearsState(t *testing.T) {
	c := NewController(LogSynthesizer{WordsPerMinute: 60000})

	c.Speak("one two")
	waitFor(t, func() bool { return c.State() == Idle })
}
