package speech

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

// State is the controller's playback state.
type State int

const (
	Idle State = iota
	Speaking
)

func (s State) String() string {
	if s == Speaking {
		return "speaking"
	}
	return "idle"
}

// Synthesizer renders text as audio. Speak blocks until the utterance has
// finished or ctx is canceled, and must return promptly after cancellation.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

type utterance struct {
	text   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Controller owns the single active utterance. A new Speak cancels the
// current one before starting, so two utterances never overlap.
type Controller struct {
	mu      sync.Mutex
	synth   Synthesizer
	enabled bool
	current *utterance
}

// NewController creates an enabled controller speaking through synth.
func NewController(synth Synthesizer) *Controller {
	return &Controller{synth: synth, enabled: true}
}

// Speak replaces whatever is playing with text. It returns once the previous
// utterance has stopped and the new one has started; playback itself runs in
// the background. Speak is a no-op when voice output is disabled.
func (c *Controller) Speak(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled || text == "" {
		return
	}

	c.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	u := &utterance{text: text, cancel: cancel, done: make(chan struct{})}
	c.current = u

	go c.play(ctx, u)
}

func (c *Controller) play(ctx context.Context, u *utterance) {
	err := c.synth.Speak(ctx, u.text)
	u.cancel()
	close(u.done)

	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithFields(log.Fields{"error": err}).Warn("speech synthesis failed")
	}

	c.mu.Lock()
	if c.current == u {
		c.current = nil
	}
	c.mu.Unlock()
}

// Stop cancels any utterance in flight and leaves the controller idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	if c.current == nil {
		return
	}
	u := c.current
	c.current = nil
	u.cancel()
	<-u.done
}

// SetEnabled toggles voice output. Disabling stops the current utterance.
func (c *Controller) SetEnabled(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = on
	if !on {
		c.stopLocked()
	}
}

// Enabled reports the voice preference.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// State reports whether an utterance is playing.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return Speaking
	}
	return Idle
}

// Current returns the text being spoken, if any.
func (c *Controller) Current() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return "", false
	}
	return c.current.text, true
}

// Close stops playback and disables further output.
func (c *Controller) Close() {
	c.SetEnabled(false)
}
