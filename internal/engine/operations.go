package engine

import (
	"fmt"

	"val8-concierge/internal/checkout"
	"val8-concierge/internal/events"
	"val8-concierge/internal/models"
	"val8-concierge/internal/script"
	"val8-concierge/internal/view"
)

// SelectScript resets the conversation and switches to another script
func (s *Session) SelectScript(id string) error {
	sc, err := s.catalog.Get(id)
	if err != nil {
		return err
	}
	err = s.mutate(func() error {
		s.resetLocked()
		s.script = sc
		s.emit(events.Event{Type: events.TypeScript, Script: sc.ID})
		return nil
	})
	s.speaker.Stop()
	return err
}

// SetMode switches between the scripted demo and the keyword flow. The
// conversation starts over.
func (s *Session) SetMode(demo bool) {
	_ = s.mutate(func() error {
		s.resetLocked()
		s.demo = demo
		return nil
	})
	s.speaker.Stop()
}

// SetVoice turns spoken replies on or off from the next reply on
func (s *Session) SetVoice(on bool) {
	s.mu.Lock()
	s.voice = on
	s.mu.Unlock()
}

// SelectRecommendation picks one of the hotels offered in the keyword flow
func (s *Session) SelectRecommendation(id string) error {
	return s.mutate(func() error {
		if s.demo {
			return ErrWrongMode
		}
		if s.phase != models.PhaseIdle {
			return ErrBusy
		}
		std := s.catalog.Standard()
		rec, ok := std.Recommendation(id)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownRecommendation, id)
		}
		s.requested = ""
		s.appendMessage(models.SenderUser, "I'd like to select "+rec.Name, nil)
		s.run(s.delays.Processing, func() turn {
			reply := std.Canned(script.ReplyHotelSelected)
			return turn{text: reply.Response, quickReplies: reply.QuickReplies, selected: &rec}
		})
		return nil
	})
}

// SubmitCheckout validates the contact form and confirms the booking.
// Invalid forms return checkout.ValidationErrors and change nothing.
func (s *Session) SubmitCheckout(info models.UserInfo) error {
	return s.mutate(func() error {
		if s.demo {
			return ErrWrongMode
		}
		if s.selected == nil || s.confirmed {
			return ErrCheckoutUnavailable
		}
		if s.phase != models.PhaseIdle {
			return ErrBusy
		}
		if err := checkout.Validate(info); err != nil {
			return err
		}
		s.user = info
		std := s.catalog.Standard()
		s.run(s.delays.Checkout, func() turn {
			reply := std.Canned(script.ReplyBookingConfirmed)
			return turn{text: reply.Response, quickReplies: reply.QuickReplies, confirmed: true}
		})
		return nil
	})
}

// CompleteDemoCheckout finishes the demo once enough of the trip is booked
func (s *Session) CompleteDemoCheckout() (checkout.Summary, error) {
	var summary checkout.Summary
	err := s.mutate(func() error {
		if !s.demo {
			return ErrWrongMode
		}
		if s.phase != models.PhaseIdle {
			return ErrBusy
		}
		if !s.checkoutTriggered && s.ledger.Len() < view.DemoCheckoutThreshold {
			return ErrCheckoutUnavailable
		}
		s.checkoutCompleted = true
		summary = checkout.Summarize(s.ledger.Ordered(), s.trip)
		s.logger.Info().Int("items", len(summary.Lines)).Msg("Demo checkout completed")
		return nil
	})
	return summary, err
}

// Summary totals what is booked so far
func (s *Session) Summary() checkout.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return checkout.Summarize(s.ledger.Ordered(), s.trip)
}

// ConfirmCategory books the current script's item for c directly
func (s *Session) ConfirmCategory(c models.Category) error {
	return s.mutate(func() error {
		item, ok := s.script.Item(c)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, c)
		}
		if err := s.ledger.Commit(c, item); err != nil {
			return err
		}
		s.emitLedger()
		return nil
	})
}

// EditBooking changes editable field values of a booked item
func (s *Session) EditBooking(c models.Category, values map[string]string) error {
	return s.mutate(func() error {
		if err := s.ledger.EditFields(c, values); err != nil {
			return err
		}
		s.emitLedger()
		return nil
	})
}

// Navigate asks for a specific view. It only succeeds when the session has
// reached the point where that view can be shown.
func (s *Session) Navigate(v models.View) error {
	return s.mutate(func() error {
		if !view.Reachable(s.viewInput(), v) {
			return fmt.Errorf("%w: %s", ErrUnreachableView, v)
		}
		s.requested = v
		return nil
	})
}

func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = *cloneMessage(m)
	}
	return out
}

func (s *Session) Ledger() map[models.Category]models.BookedItem {
	return s.ledger.Snapshot()
}

func (s *Session) Phase() models.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) View() models.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view.Resolve(s.viewInput())
}

// Snapshot is a consistent copy of everything a client needs to render
type Snapshot struct {
	ID                string                 `json:"id"`
	Script            string                 `json:"script"`
	Demo              bool                   `json:"demo"`
	Voice             bool                   `json:"voice"`
	Phase             models.Phase           `json:"phase"`
	Step              int                    `json:"step"`
	Steps             int                    `json:"steps"`
	View              models.View            `json:"view"`
	Messages          []models.Message       `json:"messages"`
	Ledger            []models.BookedItem    `json:"ledger"`
	Revealed          []models.Category      `json:"revealed"`
	Trip              models.TripContext     `json:"trip"`
	CheckoutTriggered bool                   `json:"checkout_triggered"`
	CheckoutCompleted bool                   `json:"checkout_completed"`
	Selected          *models.Recommendation `json:"selected,omitempty"`
	User              models.UserInfo        `json:"user"`
	Confirmed         bool                   `json:"confirmed"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]models.Message, len(s.messages))
	for i, m := range s.messages {
		messages[i] = *cloneMessage(m)
	}
	var selected *models.Recommendation
	if s.selected != nil {
		rec := *s.selected
		selected = &rec
	}
	return Snapshot{
		ID:                s.id,
		Script:            s.script.ID,
		Demo:              s.demo,
		Voice:             s.voice,
		Phase:             s.phase,
		Step:              s.step,
		Steps:             s.script.Len(),
		View:              view.Resolve(s.viewInput()),
		Messages:          messages,
		Ledger:            s.ledger.Ordered(),
		Revealed:          append([]models.Category(nil), s.revealed...),
		Trip:              s.trip,
		CheckoutTriggered: s.checkoutTriggered,
		CheckoutCompleted: s.checkoutCompleted,
		Selected:          selected,
		User:              s.user,
		Confirmed:         s.confirmed,
	}
}
