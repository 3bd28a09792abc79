package theme

import (
	"context"
	"errors"
	"fmt"

	"val8-concierge/internal/storage"
)

// PreferenceKey is where the chosen preset is stored
const PreferenceKey = "theme-preset"

// DefaultID is used until a valid preset has been saved
const DefaultID = "ocean-blue"

var ErrUnknownTheme = errors.New("unknown theme")

type Preset struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PrimaryColor string `json:"primary_color"`
	Description  string `json:"description"`
}

var Presets = []Preset{
	{ID: "ocean-blue", Name: "Ocean Blue", PrimaryColor: "#3b82f6", Description: "Cool and professional"},
	{ID: "dubai-gold", Name: "Dubai Gold", PrimaryColor: "#d4af37", Description: "Warm luxury"},
	{ID: "desert-rose", Name: "Desert Rose", PrimaryColor: "#e11d48", Description: "Elegant pink"},
	{ID: "midnight-luxury", Name: "Midnight Luxury", PrimaryColor: "#8b5cf6", Description: "Premium purple"},
	{ID: "emerald-oasis", Name: "Emerald Oasis", PrimaryColor: "#10b981", Description: "Fresh green"},
}

func Lookup(id string) (Preset, bool) {
	for _, p := range Presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Service reads and writes the theme preference
type Service struct {
	prefs storage.Preferences
}

func NewService(prefs storage.Preferences) *Service {
	return &Service{prefs: prefs}
}

// Current returns the saved preset. Missing or unrecognised values fall back to the default.
func (s *Service) Current(ctx context.Context) (Preset, error) {
	id, err := s.prefs.Get(ctx, PreferenceKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Preset{}, fmt.Errorf("failed to read theme: %w", err)
	}
	if p, ok := Lookup(id); ok {
		return p, nil
	}
	p, _ := Lookup(DefaultID)
	return p, nil
}

func (s *Service) Set(ctx context.Context, id string) (Preset, error) {
	p, ok := Lookup(id)
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownTheme, id)
	}
	if err := s.prefs.Set(ctx, PreferenceKey, id); err != nil {
		return Preset{}, fmt.Errorf("failed to save theme: %w", err)
	}
	return p, nil
}
