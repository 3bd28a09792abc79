package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"val8-concierge/internal/clock"
	"val8-concierge/internal/events"
	"val8-concierge/internal/ledger"
	"val8-concierge/internal/models"
	"val8-concierge/internal/script"
	"val8-concierge/internal/speech"
	"val8-concierge/internal/view"
)

var (
	ErrEmptyInput            = errors.New("empty input")
	ErrBusy                  = errors.New("session is busy")
	ErrWrongMode             = errors.New("not available in this mode")
	ErrCheckoutUnavailable   = errors.New("checkout is not available yet")
	ErrUnknownRecommendation = errors.New("unknown recommendation")
	ErrUnknownCategory       = errors.New("unknown category")
	ErrUnreachableView       = errors.New("view is not reachable")
)

// Delays are the pauses that fake typing and thinking
type Delays struct {
	Typing      time.Duration
	Processing  time.Duration
	SpeechPause time.Duration
	Checkout    time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		Typing:      400 * time.Millisecond,
		Processing:  800 * time.Millisecond,
		SpeechPause: 500 * time.Millisecond,
		Checkout:    1500 * time.Millisecond,
	}
}

// Options configure a session. Zero values fall back to sensible defaults.
type Options struct {
	Clock     clock.Clock
	Delays    Delays
	Speaker   speech.Speaker
	Publisher events.Publisher
	Logger    zerolog.Logger
	Demo      bool
	Voice     bool
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Delays == (Delays{}) {
		o.Delays = DefaultDelays()
	}
	if o.Speaker == nil {
		o.Speaker = speech.Nop{}
	}
	if o.Publisher == nil {
		o.Publisher = events.Discard{}
	}
	return o
}

// turn is the assistant half of an exchange, worked out while processing and
// applied when responding.
type turn struct {
	text            string
	quickReplies    []string
	card            *models.BookedItem
	recommendations []models.Recommendation
	reveal          []models.Category
	checkout        bool
	advance         bool
	selected        *models.Recommendation
	confirmed       bool
}

// Session is one conversation. All state lives behind mu and every phase
// change happens in a task scheduled on the session clock.
type Session struct {
	id        string
	catalog   *script.Catalog
	clock     clock.Clock
	delays    Delays
	speaker   speech.Speaker
	publisher events.Publisher
	logger    zerolog.Logger

	mu       sync.Mutex
	script   *script.Script
	demo     bool
	voice    bool
	phase    models.Phase
	step     int
	messages []models.Message
	ledger   *ledger.Ledger
	trip     models.TripContext
	revealed []models.Category

	checkoutTriggered    bool
	checkoutCompleted    bool
	recommendationsShown bool
	selected             *models.Recommendation
	user                 models.UserInfo
	confirmed            bool
	requested            models.View
	lastView             models.View

	// epoch invalidates scheduled work from before the last reset
	epoch        uint64
	timer        clock.Timer
	cancelSpeech context.CancelFunc

	lastActive time.Time

	outbox []events.Event
	pubMu  sync.Mutex
}

// New creates a session on the given script
func New(id string, catalog *script.Catalog, scriptID string, opts Options) (*Session, error) {
	sc, err := catalog.Get(scriptID)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		id:         id,
		catalog:    catalog,
		clock:      opts.Clock,
		delays:     opts.Delays,
		speaker:    opts.Speaker,
		publisher:  opts.Publisher,
		logger:     opts.Logger.With().Str("component", "engine").Str("session", id).Logger(),
		script:     sc,
		demo:       opts.Demo,
		voice:      opts.Voice,
		phase:      models.PhaseIdle,
		ledger:     ledger.New(),
		lastView:   models.ViewWelcome,
		lastActive: opts.Clock.Now(),
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

// Submit sends a user message through the conversation
func (s *Session) Submit(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}
	return s.mutate(func() error {
		if s.phase != models.PhaseIdle {
			s.logger.Info().Str("phase", string(s.phase)).Msg("Rejected input while busy")
			return ErrBusy
		}
		s.requested = ""
		s.appendMessage(models.SenderUser, text, nil)
		s.run(s.delays.Processing, func() turn {
			if s.demo {
				return s.demoTurn(text)
			}
			return s.standardTurn(text)
		})
		return nil
	})
}

func (s *Session) demoTurn(text string) turn {
	exhausted := s.script.Exhausted(s.step)
	step := s.script.Step(s.step)
	t := turn{
		text:         step.Response,
		quickReplies: step.QuickReplies,
		advance:      !exhausted,
	}
	s.mergeTrip(s.script.TripHints(text))
	if exhausted {
		return t
	}

	booked := 0
	for _, c := range step.Book {
		item, ok := s.script.Item(c)
		if !ok {
			continue
		}
		if err := s.ledger.Commit(c, item); err != nil {
			s.logger.Error().Err(err).Str("category", string(c)).Msg("Failed to book item")
			continue
		}
		booked++
	}
	if booked > 0 {
		s.emitLedger()
	}

	t.reveal = step.Reveal
	if n := len(step.Reveal); n > 0 {
		if item, ok := s.script.Item(step.Reveal[n-1]); ok {
			t.card = &item
		}
	}
	t.checkout = step.Checkout || s.step == s.script.Len()-1
	return t
}

func (s *Session) standardTurn(text string) turn {
	std := s.catalog.Standard()
	reply, trip := std.Respond(text)
	s.mergeTrip(trip)
	t := turn{text: reply.Response, quickReplies: reply.QuickReplies}
	if reply.ShowRecommendations {
		t.recommendations = std.Recommendations
	}
	return t
}

// run drives one exchange: typing, then processing (where prepare runs), then
// responding after the processing delay.
func (s *Session) run(processing time.Duration, prepare func() turn) {
	s.setPhase(models.PhaseTyping)
	s.schedule(s.delays.Typing, func() {
		s.setPhase(models.PhaseProcessing)
		t := prepare()
		s.schedule(processing, func() { s.respond(t) })
	})
}

func (s *Session) respond(t turn) {
	s.setPhase(models.PhaseResponding)

	if t.selected != nil {
		s.selected = t.selected
	}
	if t.confirmed {
		s.confirmed = true
	}
	if len(t.recommendations) > 0 {
		s.recommendationsShown = true
	}
	if t.reveal != nil {
		s.revealed = append([]models.Category(nil), t.reveal...)
	}
	if t.checkout && !s.checkoutTriggered {
		s.checkoutTriggered = true
		s.logger.Info().Int("step", s.step).Msg("Checkout triggered")
	}

	msg := s.appendMessage(models.SenderAssistant, t.text, func(m *models.Message) {
		m.QuickReplies = t.quickReplies
		m.Card = t.card
		m.Recommendations = t.recommendations
	})

	if s.voice {
		s.speak(msg.Text, t.advance)
		return
	}
	s.finish(t.advance)
}

func (s *Session) speak(text string, advance bool) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelSpeech = cancel
	epoch := s.epoch

	go func() {
		defer cancel()
		if err := s.speaker.Speak(ctx, text); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn().Err(err).Msg("Speech failed")
		}
		_ = s.mutate(func() error {
			if epoch != s.epoch {
				return nil
			}
			s.cancelSpeech = nil
			s.schedule(s.delays.SpeechPause, func() { s.finish(advance) })
			return nil
		})
	}()
}

func (s *Session) finish(advance bool) {
	if advance && s.step < s.script.Len() {
		s.step++
	}
	s.setPhase(models.PhaseIdle)
}

// schedule runs task after d unless the session is reset first
func (s *Session) schedule(d time.Duration, task func()) {
	epoch := s.epoch
	s.timer = s.clock.AfterFunc(d, func() {
		_ = s.mutate(func() error {
			if epoch != s.epoch {
				return nil
			}
			s.timer = nil
			task()
			return nil
		})
	})
}

// cancelPending drops any scheduled task and interrupts speech
func (s *Session) cancelPending() {
	s.epoch++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancelSpeech != nil {
		s.cancelSpeech()
		s.cancelSpeech = nil
	}
}

// Reset cancels in-flight work and clears the conversation
func (s *Session) Reset() {
	_ = s.mutate(func() error {
		s.resetLocked()
		return nil
	})
	s.speaker.Stop()
}

func (s *Session) resetLocked() {
	s.cancelPending()
	s.phase = models.PhaseIdle
	s.step = 0
	s.messages = nil
	s.ledger.Clear()
	s.trip = models.TripContext{}
	s.revealed = nil
	s.checkoutTriggered = false
	s.checkoutCompleted = false
	s.recommendationsShown = false
	s.selected = nil
	s.user = models.UserInfo{}
	s.confirmed = false
	s.requested = ""
	s.emit(events.Event{Type: events.TypeReset})
	s.logger.Debug().Msg("Session reset")
}

// Close stops pending work without publishing anything
func (s *Session) Close() {
	s.mu.Lock()
	s.cancelPending()
	s.mu.Unlock()
	s.speaker.Stop()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = s.clock.Now()
	s.mu.Unlock()
}

// idleSince reports when the session last changed or was looked up, and
// whether it is idle now.
func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, s.phase == models.PhaseIdle && s.timer == nil
}

// mutate runs f under the session lock, then publishes whatever it emitted
func (s *Session) mutate(f func() error) error {
	s.mu.Lock()
	s.lastActive = s.clock.Now()
	err := f()
	s.refreshView()
	s.mu.Unlock()
	s.flush()
	return err
}

func (s *Session) flush() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	out := s.outbox
	s.outbox = nil
	s.mu.Unlock()

	for _, e := range out {
		if err := s.publisher.Publish(e); err != nil {
			s.logger.Error().Err(err).Str("type", string(e.Type)).Msg("Failed to publish event")
		}
	}
}

func (s *Session) emit(e events.Event) {
	e.SessionID = s.id
	e.At = s.clock.Now()
	s.outbox = append(s.outbox, e)
}

func (s *Session) emitLedger() {
	s.emit(events.Event{Type: events.TypeLedger, Ledger: s.ledger.Ordered()})
}

func (s *Session) setPhase(p models.Phase) {
	s.phase = p
	s.logger.Debug().Str("phase", string(p)).Int("step", s.step).Msg("Phase changed")
	s.emit(events.Event{Type: events.TypePhase, Phase: p})
}

func (s *Session) appendMessage(sender models.Sender, text string, decorate func(*models.Message)) models.Message {
	msg := models.Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		Timestamp: s.clock.Now(),
	}
	if decorate != nil {
		decorate(&msg)
	}
	s.messages = append(s.messages, msg)
	s.emit(events.Event{Type: events.TypeMessage, Message: cloneMessage(msg)})
	return msg
}

func (s *Session) mergeTrip(update models.TripContext) {
	if !update.IsZero() {
		s.trip = s.trip.Merge(update)
	}
}

func (s *Session) viewInput() view.Input {
	return view.Input{
		Demo:                 s.demo,
		Phase:                s.phase,
		StepIndex:            s.step,
		MessageCount:         len(s.messages),
		LedgerSize:           s.ledger.Len(),
		CheckoutTriggered:    s.checkoutTriggered,
		CheckoutCompleted:    s.checkoutCompleted,
		RecommendationsShown: s.recommendationsShown,
		Selected:             s.selected != nil,
		Confirmed:            s.confirmed,
		Requested:            s.requested,
	}
}

func (s *Session) refreshView() {
	v := view.Resolve(s.viewInput())
	if v == s.lastView {
		return
	}
	s.lastView = v
	s.emit(events.Event{Type: events.TypeView, View: v})
}

func cloneMessage(m models.Message) *models.Message {
	out := m
	out.QuickReplies = append([]string(nil), m.QuickReplies...)
	if m.Card != nil {
		card := m.Card.Clone()
		out.Card = &card
	}
	out.Recommendations = append([]models.Recommendation(nil), m.Recommendations...)
	return &out
}
