package script

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"val8-concierge/internal/models"
)

//go:embed data/*.yaml
var embedded embed.FS

// DefaultID is the script a new session starts on
const DefaultID = "atlanta"

var builtin = []string{"atlanta", "financial", "dmc"}

var (
	ErrUnknownScript = errors.New("unknown script")
	ErrInvalidScript = errors.New("invalid script")
)

// Step is one position of the conversation. Triggers are kept for reference only;
// the engine advances by position, never by matching them.
type Step struct {
	ID           string            `yaml:"id" json:"id"`
	Triggers     []string          `yaml:"triggers" json:"triggers,omitempty"`
	Response     string            `yaml:"response" json:"response"`
	QuickReplies []string          `yaml:"quick_replies" json:"quick_replies,omitempty"`
	Reveal       []models.Category `yaml:"reveal" json:"reveal,omitempty"`
	Book         []models.Category `yaml:"book" json:"book,omitempty"`
	Checkout     bool              `yaml:"checkout" json:"checkout,omitempty"`
}

type QuickAction struct {
	Label string `yaml:"label" json:"label"`
	Icon  string `yaml:"icon" json:"icon"`
}

// Hint fills trip context when any of Match appears in the user's text
type Hint struct {
	Match []string           `yaml:"match" json:"match"`
	Trip  models.TripContext `yaml:"trip" json:"trip"`
}

// Script is an immutable demo conversation plus the items its steps book
type Script struct {
	ID               string                                `yaml:"id" json:"id"`
	Name             string                                `yaml:"name" json:"name"`
	Subtitle         string                                `yaml:"subtitle" json:"subtitle"`
	Icon             string                                `yaml:"icon" json:"icon"`
	HeaderTitle      string                                `yaml:"header_title" json:"header_title"`
	HeaderSubtitle   string                                `yaml:"header_subtitle" json:"header_subtitle"`
	PoweredBy        string                                `yaml:"powered_by" json:"powered_by"`
	WelcomeTitle     string                                `yaml:"welcome_title" json:"welcome_title"`
	WelcomeSubtitle  string                                `yaml:"welcome_subtitle" json:"welcome_subtitle"`
	InputPlaceholder string                                `yaml:"input_placeholder" json:"input_placeholder"`
	QuickActions     []QuickAction                         `yaml:"quick_actions" json:"quick_actions"`
	Hints            []Hint                                `yaml:"hints" json:"-"`
	Steps            []Step                                `yaml:"steps" json:"-"`
	Items            map[models.Category]models.BookedItem `yaml:"items" json:"-"`
}

func (s *Script) Len() int {
	return len(s.Steps)
}

// Step returns the step at position i. Positions past the end resolve to the final step.
func (s *Script) Step(i int) Step {
	if i < 0 {
		i = 0
	}
	if i >= len(s.Steps) {
		i = len(s.Steps) - 1
	}
	return s.Steps[i]
}

// Exhausted reports whether position i is past the last step
func (s *Script) Exhausted(i int) bool {
	return i >= len(s.Steps)
}

// Item returns a copy of the demo item for a category
func (s *Script) Item(c models.Category) (models.BookedItem, bool) {
	item, ok := s.Items[c]
	if !ok {
		return models.BookedItem{}, false
	}
	item = item.Clone()
	item.Category = c
	return item, true
}

// TripHints merges every hint whose keywords appear in text
func (s *Script) TripHints(text string) models.TripContext {
	lower := strings.ToLower(text)
	var trip models.TripContext
	for _, h := range s.Hints {
		if containsAny(lower, h.Match) {
			trip = trip.Merge(h.Trip)
		}
	}
	return trip
}

// Validate checks that every category a step reveals or books exists
func (s *Script) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidScript)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: %s has no steps", ErrInvalidScript, s.ID)
	}
	for c := range s.Items {
		if !c.Valid() {
			return fmt.Errorf("%w: %s has item for unknown category %q", ErrInvalidScript, s.ID, c)
		}
	}
	for i, step := range s.Steps {
		for _, c := range append(append([]models.Category{}, step.Reveal...), step.Book...) {
			if _, ok := s.Items[c]; !ok {
				return fmt.Errorf("%w: %s step %d references %q with no item", ErrInvalidScript, s.ID, i, c)
			}
		}
	}
	return nil
}

// Catalog holds the loaded scripts and the canned replies of the standard flow
type Catalog struct {
	scripts  map[string]*Script
	order    []string
	standard *Standard
}

// LoadDefault loads the scripts compiled into the binary
func LoadDefault() (*Catalog, error) {
	c := &Catalog{scripts: make(map[string]*Script)}
	for _, id := range builtin {
		data, err := embedded.ReadFile("data/" + id + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("failed to read script %s: %w", id, err)
		}
		s, err := Parse(data)
		if err != nil {
			return nil, err
		}
		c.Add(s)
	}

	data, err := embedded.ReadFile("data/standard.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read standard replies: %w", err)
	}
	std, err := ParseStandard(data)
	if err != nil {
		return nil, err
	}
	c.standard = std
	return c, nil
}

// LoadDir adds every *.yaml script found in dir, replacing scripts with the same id
func (c *Catalog) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read script dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		s, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		c.Add(s)
	}
	return nil
}

// Parse decodes and validates one script
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Catalog) Add(s *Script) {
	if _, exists := c.scripts[s.ID]; !exists {
		c.order = append(c.order, s.ID)
	}
	c.scripts[s.ID] = s
}

func (c *Catalog) Get(id string) (*Script, error) {
	s, ok := c.scripts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScript, id)
	}
	return s, nil
}

// List returns scripts in load order
func (c *Catalog) List() []*Script {
	out := make([]*Script, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.scripts[id])
	}
	return out
}

func (c *Catalog) Standard() *Standard {
	return c.standard
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
