package speech

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Speaker reads assistant messages aloud in voice mode.
// Speak blocks until the text has been spoken or ctx is done.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop()
}

// Nop finishes immediately
type Nop struct{}

func (Nop) Speak(context.Context, string) error { return nil }
func (Nop) Stop()                                 {}

// Narrator "speaks" by writing the text out and holding for as long as it
// would take to read it at WordsPerMinute.
type Narrator struct {
	out            io.Writer
	wordsPerMinute int
	logger         zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewNarrator(out io.Writer, wordsPerMinute int, logger zerolog.Logger) *Narrator {
	if wordsPerMinute <= 0 {
		wordsPerMinute = 180
	}
	return &Narrator{
		out:            out,
		wordsPerMinute: wordsPerMinute,
		logger:         logger.With().Str("component", "speech").Logger(),
	}
}

// Duration is how long text takes to read aloud
func (n *Narrator) Duration(text string) time.Duration {
	words := len(strings.Fields(text))
	return time.Duration(words) * time.Minute / time.Duration(n.wordsPerMinute)
}

func (n *Narrator) Speak(ctx context.Context, text string) error {
	ctx, cancel := context.WithCancel(ctx)
	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
	}
	n.cancel = cancel
	n.mu.Unlock()
	defer cancel()

	if n.out != nil {
		if _, err := fmt.Fprintf(n.out, "🔊 %s\n", text); err != nil {
			return fmt.Errorf("failed to write speech: %w", err)
		}
	}

	d := n.Duration(text)
	n.logger.Debug().Dur("duration", d).Msg("Speaking")

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		n.logger.Debug().Msg("Speech interrupted")
		return ctx.Err()
	}
}

// Stop interrupts whatever is being spoken
func (n *Narrator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
}
