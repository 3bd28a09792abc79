package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"val8-concierge/internal/models"
)

func TestLoadDefault(t *testing.T) {
	c, err := LoadDefault()
	require.NoError(t, err)

	ids := []string{}
	for _, s := range c.List() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"atlanta", "financial", "dmc"}, ids)

	atlanta, err := c.Get(DefaultID)
	require.NoError(t, err)
	assert.Equal(t, 10, atlanta.Len())
	assert.Empty(t, atlanta.Step(0).Book)
	assert.Equal(t, []models.Category{models.CategoryCalendar, models.CategoryWeather}, atlanta.Step(1).Book)
	assert.True(t, atlanta.Step(atlanta.Len()-1).Checkout)

	require.NotNil(t, c.Standard())
	assert.Len(t, c.Standard().Recommendations, 4)
}

func TestGetUnknownScript(t *testing.T) {
	c, err := LoadDefault()
	require.NoError(t, err)

	_, err = c.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownScript)
}

func TestStepClampsPastEnd(t *testing.T) {
	c, err := LoadDefault()
	require.NoError(t, err)
	s, err := c.Get("dmc")
	require.NoError(t, err)

	last := s.Step(s.Len() - 1)
	assert.Equal(t, last, s.Step(s.Len()))
	assert.Equal(t, last, s.Step(s.Len()+5))
	assert.True(t, s.Exhausted(s.Len()))
	assert.False(t, s.Exhausted(s.Len()-1))
}

func TestItemIsCopy(t *testing.T) {
	c, err := LoadDefault()
	require.NoError(t, err)
	s, err := c.Get("atlanta")
	require.NoError(t, err)

	item, ok := s.Item(models.CategoryHotel)
	require.True(t, ok)
	assert.Equal(t, models.CategoryHotel, item.Category)
	item.EditableFields[0].Value = "changed"

	again, _ := s.Item(models.CategoryHotel)
	assert.NotEqual(t, "changed", again.EditableFields[0].Value)

	weather, ok := s.Item(models.CategoryWeather)
	require.True(t, ok)
	assert.False(t, weather.Editable())
}

func TestTripHints(t *testing.T) {
	c, err := LoadDefault()
	require.NoError(t, err)
	s, err := c.Get("atlanta")
	require.NoError(t, err)

	assert.Equal(t, "Atlanta", s.TripHints("I'm planning a trip to Atlanta").Destination)

	trip := s.TripHints("June 5-9")
	assert.Equal(t, "June 5-9", trip.Dates)
	assert.Equal(t, "82°F, partly cloudy", trip.Weather)

	assert.True(t, s.TripHints("Flights").IsZero())
}

func TestValidateRejectsMissingItem(t *testing.T) {
	_, err := Parse([]byte(`
id: broken
steps:
  - id: one
    response: hi
    book: [hotel]
`))
	assert.ErrorIs(t, err, ErrInvalidScript)

	_, err = Parse([]byte(`id: empty`))
	assert.ErrorIs(t, err, ErrInvalidScript)
}

func TestLoadDir(t *testing.T) {
	c, err := LoadDefault()
	require.NoError(t, err)

	dir := t.TempDir()
	custom := `
id: paris
name: Paris
steps:
  - id: hello
    response: Bonjour.
    reveal: [hotel]
  - id: done
    response: All set.
    book: [hotel]
    checkout: true
items:
  hotel:
    id: hotel-paris
    title: Le Bristol
    price: $1,200/night
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paris.yaml"), []byte(custom), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, c.LoadDir(dir))

	s, err := c.Get("paris")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Len(t, c.List(), 4)
}

func TestStandardRespond(t *testing.T) {
	c, err := LoadDefault()
	require.NoError(t, err)
	std := c.Standard()

	tests := []struct {
		name  string
		input string
		reply string
		trip  models.TripContext
	}{
		{"destination", "Atlanta please", ReplyAtlantaIntent, models.TripContext{Destination: "Atlanta"}},
		{"relaxing", "Relaxing", ReplyRelaxing, models.TripContext{Style: "Relaxing"}},
		{"adventure", "some adventure", ReplyAdventure, models.TripContext{Style: "Adventure"}},
		{"social", "Social", ReplySocial, models.TripContext{Style: "Social"}},
		{"duration", "4 nights", ReplyDurationSelected, models.TripContext{Duration: "4 nights"}},
		{"night without number", "a night out", ReplyFallback, models.TripContext{}},
		{"checkout", "Continue to Checkout", ReplyHotelSelected, models.TripContext{}},
		{"concierge", "Talk to Concierge", ReplyConciergeEscalation, models.TripContext{}},
		{"question", "Ask a Question", ReplyQuestion, models.TripContext{}},
		{"start again", "Plan Another Trip", ReplyWelcome, models.TripContext{}},
		{"plan", "Plan a Trip", ReplyWelcome, models.TripContext{}},
		{"fallback", "hello there", ReplyFallback, models.TripContext{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, trip := std.Respond(tt.input)
			assert.Equal(t, std.Canned(tt.reply), reply)
			assert.Equal(t, tt.trip, trip)
		})
	}

	reply, _ := std.Respond("7 nights")
	assert.True(t, reply.ShowRecommendations)
}

func TestStandardRecommendation(t *testing.T) {
	c, err := LoadDefault()
	require.NoError(t, err)

	rec, ok := c.Standard().Recommendation("st-regis-atlanta")
	require.True(t, ok)
	assert.Equal(t, "The St. Regis Atlanta", rec.Name)

	_, ok = c.Standard().Recommendation("motel-6")
	assert.False(t, ok)
}
