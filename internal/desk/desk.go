// Package desk runs the agent side of the concierge: a queue of waiting
// calls, the recommendations offered during a call and a timed walkthrough
// that plays a whole call from pickup to quote.
package desk

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"val8-concierge/internal/clock"
)

var (
	ErrCallNotFound          = errors.New("call not found")
	ErrCallInProgress        = errors.New("another call is in progress")
	ErrNoActiveCall          = errors.New("no active call")
	ErrUnknownRecommendation = errors.New("unknown recommendation")
)

// AvgTimeSavedMinutes is the time saved per call shown on the desk dashboard
const AvgTimeSavedMinutes = 24

const initialCallsHandled = 12

type Tier string

const (
	TierPlatinum Tier = "Platinum"
	TierDiamond  Tier = "Diamond"
	TierBlack    Tier = "Black"
)

type CallStatus string

const (
	CallWaiting   CallStatus = "waiting"
	CallActive    CallStatus = "active"
	CallOnHold    CallStatus = "on-hold"
	CallCompleted CallStatus = "completed"
)

type Preferences struct {
	Airlines  []string `json:"airlines"`
	Hotels    []string `json:"hotels"`
	Dietary   []string `json:"dietary"`
	Interests []string `json:"interests"`
}

type Trip struct {
	Destination  string `json:"destination"`
	Date         string `json:"date"`
	Satisfaction int    `json:"satisfaction"`
}

// Client is the profile shown to the agent while on a call
type Client struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Tier        Tier        `json:"membership_tier"`
	Phone       string      `json:"phone"`
	Email       string      `json:"email"`
	Preferences Preferences `json:"preferences"`
	RecentTrips []Trip      `json:"recent_trips"`
	Notes       string      `json:"notes"`
	TotalSpend  string      `json:"total_spend"`
}

type Call struct {
	ID           string     `json:"id"`
	Client       Client     `json:"client"`
	Status       CallStatus `json:"status"`
	StartedAt    *time.Time `json:"started_at"`
	WaitingSince time.Time  `json:"waiting_since"`
	Purpose      string     `json:"purpose"`
}

type Recommendation struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Price    string `json:"price"`
	Margin   string `json:"margin"`
	Selected bool   `json:"selected"`
}

// Snapshot is a copy of the desk state
type Snapshot struct {
	Queue           []Call           `json:"queue"`
	Active          *Call            `json:"active"`
	CallDuration    int              `json:"call_duration"`
	ProfileOpen     bool             `json:"profile_open"`
	Recommendations []Recommendation `json:"recommendations"`
	CallsHandled    int              `json:"calls_handled"`
	AvgTimeSaved    int              `json:"avg_time_saved"`
	Demo            bool             `json:"demo"`
	DemoStep        int              `json:"demo_step"`
	DemoSuccess     bool             `json:"demo_success"`
}

type demoAction struct {
	delay time.Duration
	run   func(d *Desk) error
}

// demoScript plays call-1 from pickup to a sent quote, one action per step
var demoScript = buildDemoScript()

func buildDemoScript() []demoAction {
	steps := []demoAction{
		{delay: time.Second, run: func(d *Desk) error { return d.acceptLocked("call-1") }},
	}
	for i, r := range demoRecommendations {
		delay := 2500 * time.Millisecond
		if i == 0 {
			delay = 6 * time.Second
		}
		id := r.ID
		steps = append(steps, demoAction{delay: delay, run: func(d *Desk) error { return d.selectLocked(id) }})
	}
	return append(steps,
		demoAction{delay: 2 * time.Second, run: func(d *Desk) error {
			d.profileOpen = true
			return nil
		}},
		demoAction{delay: 3 * time.Second, run: func(d *Desk) error { return d.endLocked(true) }},
	)
}

// Desk is safe for concurrent use
type Desk struct {
	clock  clock.Clock
	logger zerolog.Logger

	mu              sync.Mutex
	queue           []Call
	active          *Call
	profileOpen     bool
	recommendations []Recommendation
	callsHandled    int

	demo        bool
	demoStep    int
	demoSuccess bool
	epoch       uint64
	timer       clock.Timer
}

// New creates a desk with the demo call queue
func New(clk clock.Clock, logger zerolog.Logger) *Desk {
	if clk == nil {
		clk = clock.Real()
	}
	d := &Desk{
		clock:        clk,
		logger:       logger.With().Str("component", "desk").Logger(),
		callsHandled: initialCallsHandled,
	}
	d.resetLocked()
	return d
}

// AcceptCall takes a waiting or held call off the queue
func (d *Desk) AcceptCall(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acceptLocked(id)
}

func (d *Desk) acceptLocked(id string) error {
	if d.active != nil {
		return ErrCallInProgress
	}
	for i, c := range d.queue {
		if c.ID != id {
			continue
		}
		now := d.clock.Now()
		c.Status = CallActive
		c.StartedAt = &now
		d.active = &c
		d.queue = append(d.queue[:i:i], d.queue[i+1:]...)
		d.profileOpen = false
		d.recommendations = freshRecommendations()
		d.logger.Info().Str("call", id).Str("client", c.Client.Name).Msg("Call accepted")
		return nil
	}
	return ErrCallNotFound
}

// HoldCall puts the active call back at the front of the queue
func (d *Desk) HoldCall() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return ErrNoActiveCall
	}
	held := *d.active
	held.Status = CallOnHold
	d.queue = append([]Call{held}, d.queue...)
	d.active = nil
	d.logger.Info().Str("call", held.ID).Msg("Call on hold")
	return nil
}

// EndCall hangs up, optionally sending the selected recommendations as a quote
func (d *Desk) EndCall(sendQuote bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.endLocked(sendQuote)
}

func (d *Desk) endLocked(sendQuote bool) error {
	if d.active == nil {
		return ErrNoActiveCall
	}
	d.logger.Info().Str("call", d.active.ID).Bool("quote", sendQuote).Msg("Call ended")
	d.callsHandled++
	d.active = nil
	d.profileOpen = false
	if d.demo && sendQuote {
		d.demoSuccess = true
	}
	return nil
}

// ToggleRecommendation flips whether a recommendation is part of the quote
func (d *Desk) ToggleRecommendation(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.recommendations {
		if d.recommendations[i].ID == id {
			d.recommendations[i].Selected = !d.recommendations[i].Selected
			return nil
		}
	}
	return ErrUnknownRecommendation
}

// SelectRecommendation adds a recommendation to the quote
func (d *Desk) SelectRecommendation(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selectLocked(id)
}

func (d *Desk) selectLocked(id string) error {
	for i := range d.recommendations {
		if d.recommendations[i].ID == id {
			d.recommendations[i].Selected = true
			return nil
		}
	}
	return ErrUnknownRecommendation
}

func (d *Desk) SetProfileOpen(open bool) {
	d.mu.Lock()
	d.profileOpen = open
	d.mu.Unlock()
}

// StartDemo restores the initial queue and plays the walkthrough
func (d *Desk) StartDemo() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
	d.demo = true
	d.logger.Info().Msg("Demo started")
	d.scheduleStep()
}

// ResetDemo stops the walkthrough and restores the initial queue
func (d *Desk) ResetDemo() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
	d.logger.Info().Msg("Demo reset")
}

func (d *Desk) resetLocked() {
	d.epoch++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.demo = false
	d.demoStep = 0
	d.demoSuccess = false
	d.active = nil
	d.profileOpen = false
	d.recommendations = freshRecommendations()
	d.queue = initialQueue(d.clock.Now())
}

func (d *Desk) scheduleStep() {
	if d.demoStep >= len(demoScript) {
		d.timer = nil
		return
	}
	action := demoScript[d.demoStep]
	epoch := d.epoch
	d.timer = d.clock.AfterFunc(action.delay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if epoch != d.epoch || !d.demo {
			return
		}
		if err := action.run(d); err != nil {
			d.logger.Warn().Err(err).Int("step", d.demoStep).Msg("Demo step skipped")
		}
		d.demoStep++
		d.scheduleStep()
	})
}

// Close cancels a running walkthrough
func (d *Desk) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.epoch++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Desk) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := Snapshot{
		Queue:           append([]Call(nil), d.queue...),
		ProfileOpen:     d.profileOpen,
		Recommendations: append([]Recommendation(nil), d.recommendations...),
		CallsHandled:    d.callsHandled,
		AvgTimeSaved:    AvgTimeSavedMinutes,
		Demo:            d.demo,
		DemoStep:        d.demoStep,
		DemoSuccess:     d.demoSuccess,
	}
	if d.active != nil {
		active := *d.active
		snap.Active = &active
		if active.StartedAt != nil {
			snap.CallDuration = int(d.clock.Now().Sub(*active.StartedAt) / time.Second)
		}
	}
	return snap
}

// DemoLength is how long the walkthrough takes from start to sent quote
func DemoLength() time.Duration {
	var total time.Duration
	for _, a := range demoScript {
		total += a.delay
	}
	return total
}
