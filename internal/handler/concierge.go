package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"val8-concierge/internal/engine"
	"val8-concierge/internal/events"
	"val8-concierge/internal/models"
)

const busyReply = "One moment, I'm still working on your last request."

// Replier delivers text back to a chat participant
type Replier interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

// Subscriber streams the events of a session
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID string) (<-chan events.Event, error)
}

type Config struct {
	Script string
	Demo   bool
}

// ConciergeHandler runs one concierge conversation per chat participant
type ConciergeHandler struct {
	registry   *engine.Registry
	subscriber Subscriber
	replier    Replier
	config     *Config
	log        zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	following map[string]context.CancelFunc
}

// NewConciergeHandler creates a new concierge handler
func NewConciergeHandler(registry *engine.Registry, subscriber Subscriber, replier Replier, cfg *Config, logger zerolog.Logger) *ConciergeHandler {
	ctx, cancel := context.WithCancel(context.Background())
	return &ConciergeHandler{
		registry:   registry,
		subscriber: subscriber,
		replier:    replier,
		config:     cfg,
		log:        logger.With().Str("component", "handler").Logger(),
		ctx:        ctx,
		cancel:     cancel,
		following:  make(map[string]context.CancelFunc),
	}
}

// HandleMessage feeds an incoming chat message into the sender's conversation
func (h *ConciergeHandler) HandleMessage(ctx context.Context, sender, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	session, created, err := h.registry.GetOrCreate(engine.Params{
		ID:     sender,
		Script: h.config.Script,
		Demo:   h.config.Demo,
	})
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	if created {
		if err := h.follow(session.ID()); err != nil {
			_ = h.registry.Remove(session.ID())
			return err
		}
		h.log.Info().Str("sender", sender).Msg("Started conversation")
	}

	if isResetCommand(text) {
		session.Reset()
		return h.replier.SendMessage(ctx, sender, "Starting over. Where would you like to go?")
	}

	text = ResolveQuickReply(session.Messages(), text)

	err = session.Submit(text)
	switch {
	case errors.Is(err, engine.ErrBusy):
		return h.replier.SendMessage(ctx, sender, busyReply)
	case errors.Is(err, engine.ErrEmptyInput):
		return nil
	case err != nil:
		return fmt.Errorf("failed to submit message: %w", err)
	}
	return nil
}

// follow forwards assistant messages of a session to the participant
func (h *ConciergeHandler) follow(sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.following[sessionID]; ok {
		return nil
	}

	ctx, cancel := context.WithCancel(h.ctx)
	ch, err := h.subscriber.Subscribe(ctx, sessionID)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to follow session: %w", err)
	}
	h.following[sessionID] = cancel

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for e := range ch {
			if e.Type != events.TypeMessage || e.Message == nil || e.Message.Sender != models.SenderAssistant {
				continue
			}
			if err := h.replier.SendMessage(h.ctx, sessionID, FormatReply(*e.Message)); err != nil {
				h.log.Error().Err(err).Str("sender", sessionID).Msg("Failed to deliver reply")
			}
		}
	}()
	return nil
}

// Forget stops forwarding replies of a session that is gone
func (h *ConciergeHandler) Forget(sessionID string) {
	h.mu.Lock()
	cancel, ok := h.following[sessionID]
	delete(h.following, sessionID)
	h.mu.Unlock()
	if ok {
		cancel()
		h.log.Info().Str("sender", sessionID).Msg("Conversation expired")
	}
}

// Close stops forwarding replies
func (h *ConciergeHandler) Close() {
	h.cancel()
	h.wg.Wait()
}

// FormatReply renders an assistant message as chat text: the response, the
// card it carries and its quick replies as a numbered menu.
func FormatReply(msg models.Message) string {
	var b strings.Builder
	b.WriteString(msg.Text)

	if card := msg.Card; card != nil {
		b.WriteString("\n\n")
		if card.Icon != "" {
			b.WriteString(card.Icon + " ")
		}
		b.WriteString("*" + card.Title + "*")
		if card.Subtitle != "" {
			b.WriteString("\n" + card.Subtitle)
		}
		for _, d := range card.Details {
			b.WriteString("\n• " + d)
		}
		if card.Price != "" {
			b.WriteString("\n💳 " + card.Price)
		}
	}

	for i, r := range msg.Recommendations {
		if i == 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\n🏨 *%s* (%s) %s", r.Name, r.ID, r.Price)
	}

	if len(msg.QuickReplies) > 0 {
		b.WriteString("\n\nReply with:")
		for i, r := range msg.QuickReplies {
			fmt.Fprintf(&b, "\n%d. %s", i+1, r)
		}
	}
	return b.String()
}

// ResolveQuickReply turns "2" into the second quick reply of the last assistant message.
// Anything else is returned unchanged.
func ResolveQuickReply(history []models.Message, text string) string {
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 {
		return text
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Sender != models.SenderAssistant {
			continue
		}
		if n <= len(history[i].QuickReplies) {
			return history[i].QuickReplies[n-1]
		}
		break
	}
	return text
}

func isResetCommand(text string) bool {
	switch strings.ToLower(text) {
	case "reset", "restart", "start over":
		return true
	}
	return false
}
