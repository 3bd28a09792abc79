package script

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"val8-concierge/internal/models"
)

// Reply keys of the standard flow
const (
	ReplyWelcome             = "welcome"
	ReplyAtlantaIntent       = "atlanta_intent"
	ReplyRelaxing            = "relaxing_style"
	ReplyAdventure           = "adventure_style"
	ReplySocial              = "social_style"
	ReplyDurationSelected    = "duration_selected"
	ReplyHotelSelected       = "hotel_selected"
	ReplyBookingConfirmed    = "booking_confirmed"
	ReplyConciergeEscalation = "concierge_escalation"
	ReplyQuestion            = "question_response"
	ReplyFallback            = "fallback"
)

var requiredReplies = []string{
	ReplyWelcome, ReplyAtlantaIntent, ReplyRelaxing, ReplyAdventure, ReplySocial,
	ReplyDurationSelected, ReplyHotelSelected, ReplyBookingConfirmed,
	ReplyConciergeEscalation, ReplyQuestion, ReplyFallback,
}

var nightsPattern = regexp.MustCompile(`(\d+)\s*night`)

// Reply is a canned assistant answer
type Reply struct {
	Response            string   `yaml:"response"`
	QuickReplies        []string `yaml:"quick_replies"`
	ShowRecommendations bool     `yaml:"show_recommendations"`
}

// Standard is the keyword-driven, non-demo flow
type Standard struct {
	Replies         map[string]Reply        `yaml:"replies"`
	QuickActions    []QuickAction           `yaml:"quick_actions"`
	Recommendations []models.Recommendation `yaml:"recommendations"`
}

func ParseStandard(data []byte) (*Standard, error) {
	var s Standard
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse standard replies: %w", err)
	}
	for _, key := range requiredReplies {
		if _, ok := s.Replies[key]; !ok {
			return nil, fmt.Errorf("%w: standard replies missing %q", ErrInvalidScript, key)
		}
	}
	return &s, nil
}

// Respond picks the canned reply for text and the trip context it implies.
// Rules are checked in order and the first hit wins.
func (s *Standard) Respond(text string) (Reply, models.TripContext) {
	input := strings.ToLower(text)

	switch {
	case strings.Contains(input, "atlanta"):
		return s.Canned(ReplyAtlantaIntent), models.TripContext{Destination: "Atlanta"}
	case strings.Contains(input, "relax"):
		return s.Canned(ReplyRelaxing), models.TripContext{Style: "Relaxing"}
	case strings.Contains(input, "adventure"):
		return s.Canned(ReplyAdventure), models.TripContext{Style: "Adventure"}
	case strings.Contains(input, "social"):
		return s.Canned(ReplySocial), models.TripContext{Style: "Social"}
	}

	if m := nightsPattern.FindStringSubmatch(input); m != nil {
		return s.Canned(ReplyDurationSelected), models.TripContext{Duration: m[1] + " nights"}
	}

	switch {
	case strings.Contains(input, "concierge"):
		return s.Canned(ReplyConciergeEscalation), models.TripContext{}
	case strings.Contains(input, "question"):
		return s.Canned(ReplyQuestion), models.TripContext{}
	case containsAny(input, []string{"plan a trip", "plan another trip"}):
		return s.Canned(ReplyWelcome), models.TripContext{}
	}

	if containsAny(input, []string{"checkout", "continue"}) {
		return s.Canned(ReplyHotelSelected), models.TripContext{}
	}
	return s.Canned(ReplyFallback), models.TripContext{}
}

// Canned returns the reply stored under key, or the fallback
func (s *Standard) Canned(key string) Reply {
	if r, ok := s.Replies[key]; ok {
		return r
	}
	return s.Replies[ReplyFallback]
}

func (s *Standard) Recommendation(id string) (models.Recommendation, bool) {
	for _, r := range s.Recommendations {
		if r.ID == id {
			return r, true
		}
	}
	return models.Recommendation{}, false
}
