package checkout

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"val8-concierge/internal/models"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// ValidationErrors maps a form field to the message shown next to it
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "invalid checkout form: " + strings.Join(parts, "; ")
}

// Validate returns nil when the form can be submitted. Phone is optional.
func Validate(info models.UserInfo) error {
	errs := ValidationErrors{}
	if strings.TrimSpace(info.Name) == "" {
		errs["name"] = "Name is required"
	}
	email := strings.TrimSpace(info.Email)
	switch {
	case email == "":
		errs["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		errs["email"] = "Please enter a valid email"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Line is one row of the trip summary
type Line struct {
	Category models.Category `json:"category"`
	Title    string          `json:"title"`
	Subtitle string          `json:"subtitle"`
	Price    string          `json:"price"`
}

// Summary is what the checkout screens list
type Summary struct {
	Trip     models.TripContext `json:"trip"`
	Lines    []Line             `json:"lines"`
	Total    float64            `json:"total"`
	Unpriced int                `json:"unpriced"`
}

// Summarize lists items in the order given and totals the prices that carry a
// dollar amount. Non-empty prices without one ("Included", "€350/person") are
// counted as unpriced.
func Summarize(items []models.BookedItem, trip models.TripContext) Summary {
	s := Summary{Trip: trip, Lines: make([]Line, 0, len(items))}
	for _, item := range items {
		s.Lines = append(s.Lines, Line{
			Category: item.Category,
			Title:    item.Title,
			Subtitle: item.Subtitle,
			Price:    item.Price,
		})
		if amount, ok := ParsePrice(item.Price); ok {
			s.Total += amount
		} else if item.Price != "" {
			s.Unpriced++
		}
	}
	return s
}

// ParsePrice reads the amount out of prices like "$1,240" or "$650/night"
func ParsePrice(price string) (float64, bool) {
	p := strings.TrimSpace(price)
	p = strings.TrimPrefix(p, "From ")
	if !strings.HasPrefix(p, "$") {
		return 0, false
	}
	p = strings.TrimPrefix(p, "$")
	if i := strings.IndexAny(p, "/ "); i >= 0 {
		p = p[:i]
	}
	p = strings.ReplaceAll(p, ",", "")
	amount, err := strconv.ParseFloat(p, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// FormatTotal renders a total the way prices are written in the scripts
func FormatTotal(total float64) string {
	whole := strconv.FormatInt(int64(total), 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	cents := int64(total*100+0.5) % 100
	if cents != 0 {
		return fmt.Sprintf("$%s.%02d", b.String(), cents)
	}
	return "$" + b.String()
}
