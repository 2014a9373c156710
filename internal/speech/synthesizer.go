package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// CommandSynthesizer speaks by running an external TTS program such as
// espeak or say with the text as its last argument.
type CommandSynthesizer struct {
	Name string
	Args []string
}

// NewCommandSynthesizer parses a command line like "espeak -s 160".
func NewCommandSynthesizer(cmdline string) (*CommandSynthesizer, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty speech command")
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return nil, fmt.Errorf("speech command %q: %w", fields[0], err)
	}
	return &CommandSynthesizer{Name: fields[0], Args: fields[1:]}, nil
}

func (s *CommandSynthesizer) Speak(ctx context.Context, text string) error {
	args := append(append([]string{}, s.Args...), text)
	cmd := exec.CommandContext(ctx, s.Name, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("run %s: %w", s.Name, err)
	}
	return nil
}

// LogSynthesizer writes utterances to the log and holds the line for as long
// as reading them aloud would take. It stands in where no audio device exists.
type LogSynthesizer struct {
	WordsPerMinute int
}

func (s LogSynthesizer) Speak(ctx context.Context, text string) error {
	wpm := s.WordsPerMinute
	if wpm <= 0 {
		wpm = 160
	}
	words := len(strings.Fields(text))
	d := time.Duration(words) * time.Minute / time.Duration(wpm)

	log.WithFields(log.Fields{"words": words}).Infof("speaking: %s", text)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		log.Info("speech canceled")
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var (
	_ Synthesizer = (*CommandSynthesizer)(nil)
	_ Synthesizer = LogSynthesizer{}
)
