package models

import "time"

// Category identifies one card of a trip (flight, hotel, ...)
type Category string

const (
	CategoryCalendar   Category = "calendar"
	CategoryWeather    Category = "weather"
	CategoryFlight     Category = "flight"
	CategoryHotel      Category = "hotel"
	CategoryRide       Category = "ride"
	CategoryDining     Category = "dining"
	CategoryShopping   Category = "shopping"
	CategoryExperience Category = "experience"
)

// CategoryOrder is the order booked items are displayed in
var CategoryOrder = []Category{
	CategoryCalendar,
	CategoryWeather,
	CategoryFlight,
	CategoryHotel,
	CategoryRide,
	CategoryDining,
	CategoryShopping,
	CategoryExperience,
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range CategoryOrder {
		if c == known {
			return true
		}
	}
	return false
}

// BookingStatus represents how far a booked item has progressed
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusHeld      BookingStatus = "held"
	StatusConfirmed BookingStatus = "confirmed"
)

// Phase is the conversation phase of a session
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseTyping     Phase = "typing"
	PhaseProcessing Phase = "processing"
	PhaseResponding Phase = "responding"
)

// Sender is the author of a message
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// View names what the presentation layer should be showing
type View string

const (
	ViewWelcome         View = "welcome"
	ViewChat            View = "chat"
	ViewRecommendations View = "recommendations"
	ViewSummary         View = "summary"
	ViewCheckout        View = "checkout"
	ViewConfirmation    View = "confirmation"
	ViewItinerary       View = "itinerary"
	ViewDemoCheckout    View = "demo-checkout"
	ViewDemoSuccess     View = "demo-success"
)

// EditableField is a user-adjustable attribute of a booked item
type EditableField struct {
	Label   string   `json:"label" yaml:"label"`
	Value   string   `json:"value" yaml:"value"`
	Type    string   `json:"type" yaml:"type"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// BookedItem is the card shown for a category, and the ledger entry once booked
type BookedItem struct {
	ID             string          `json:"id" yaml:"id"`
	Category       Category        `json:"category" yaml:"category"`
	Title          string          `json:"title" yaml:"title"`
	Subtitle       string          `json:"subtitle" yaml:"subtitle"`
	Details        []string        `json:"details" yaml:"details"`
	Price          string          `json:"price" yaml:"price"`
	Icon           string          `json:"icon" yaml:"icon"`
	Image          string          `json:"image,omitempty" yaml:"image,omitempty"`
	Gallery        []string        `json:"gallery,omitempty" yaml:"gallery,omitempty"`
	Status         BookingStatus   `json:"status,omitempty" yaml:"status,omitempty"`
	EditableFields []EditableField `json:"editable_fields,omitempty" yaml:"editable_fields,omitempty"`
}

// Editable reports whether the item exposes any editable fields
func (b BookedItem) Editable() bool {
	return len(b.EditableFields) > 0
}

// Clone returns a deep copy of the item
func (b BookedItem) Clone() BookedItem {
	out := b
	out.Details = append([]string(nil), b.Details...)
	out.Gallery = append([]string(nil), b.Gallery...)
	if b.EditableFields != nil {
		out.EditableFields = make([]EditableField, len(b.EditableFields))
		for i, f := range b.EditableFields {
			f.Options = append([]string(nil), f.Options...)
			out.EditableFields[i] = f
		}
	}
	return out
}

// Recommendation is a hotel offered in the standard flow
type Recommendation struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Image       string   `json:"image" yaml:"image"`
	Price       string   `json:"price" yaml:"price"`
	Tags        []string `json:"tags" yaml:"tags"`
	Description string   `json:"description" yaml:"description"`
	Rating      float64  `json:"rating" yaml:"rating"`
}

// Message is one entry of the transcript. Messages are never mutated once appended.
type Message struct {
	ID              string           `json:"id"`
	Sender          Sender           `json:"sender"`
	Text            string           `json:"text"`
	Timestamp       time.Time        `json:"timestamp"`
	QuickReplies    []string         `json:"quick_replies,omitempty"`
	Card            *BookedItem      `json:"card,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

// TripContext collects free-form trip attributes picked up from the conversation
type TripContext struct {
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`
	Dates       string `json:"dates,omitempty" yaml:"dates,omitempty"`
	Duration    string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Style       string `json:"style,omitempty" yaml:"style,omitempty"`
	Budget      string `json:"budget,omitempty" yaml:"budget,omitempty"`
	Travelers   string `json:"travelers,omitempty" yaml:"travelers,omitempty"`
	Weather     string `json:"weather,omitempty" yaml:"weather,omitempty"`
}

// Merge overwrites every field that is set in update. Later writes win.
func (t TripContext) Merge(update TripContext) TripContext {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&t.Destination, update.Destination)
	set(&t.Dates, update.Dates)
	set(&t.Duration, update.Duration)
	set(&t.Style, update.Style)
	set(&t.Budget, update.Budget)
	set(&t.Travelers, update.Travelers)
	set(&t.Weather, update.Weather)
	return t
}

// IsZero reports whether nothing has been collected yet
func (t TripContext) IsZero() bool {
	return t == TripContext{}
}

// UserInfo is the contact information captured at checkout
type UserInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
