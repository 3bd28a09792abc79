package engine

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"val8-concierge/internal/clock"
	"val8-concierge/internal/script"
)

var ErrSessionNotFound = errors.New("session not found")

// Params describe a session to create
type Params struct {
	ID     string
	Script string
	Demo   bool
	Voice  bool
}

// Registry owns the live sessions of a process
type Registry struct {
	catalog *script.Catalog
	opts    Options

	mu       sync.RWMutex
	sessions map[string]*Session
	onEvict  func(id string)
	sweeper  clock.Timer
	sweepGen uint64
}

// NewRegistry creates sessions with opts; Demo and Voice come from Params
func NewRegistry(catalog *script.Catalog, opts Options) *Registry {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Registry{
		catalog:  catalog,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// OnEvict registers f to run for every session the sweeper drops
func (r *Registry) OnEvict(f func(id string)) {
	r.mu.Lock()
	r.onEvict = f
	r.mu.Unlock()
}

func (r *Registry) Create(p Params) (*Session, error) {
	s, err := r.newSession(p)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[s.ID()]; ok {
		old.Close()
	}
	r.sessions[s.ID()] = s
	return s, nil
}

func (r *Registry) newSession(p Params) (*Session, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Script == "" {
		p.Script = script.DefaultID
	}
	opts := r.opts
	opts.Demo = p.Demo
	opts.Voice = p.Voice
	return New(p.ID, r.catalog, p.Script, opts)
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

// GetOrCreate returns the session for p.ID, creating it on first use.
// The bool reports whether it was created.
func (r *Registry) GetOrCreate(p Params) (*Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[p.ID]; ok && p.ID != "" {
		s.touch()
		return s, false, nil
	}
	s, err := r.newSession(p)
	if err != nil {
		return nil, false, err
	}
	r.sessions[s.ID()] = s
	return s, true, nil
}

// Remove stops and forgets a session
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep stops and forgets sessions that have been idle for longer than
// maxIdle. Sessions with a reply in flight are kept.
func (r *Registry) Sweep(maxIdle time.Duration) []string {
	cutoff := r.opts.Clock.Now().Add(-maxIdle)

	r.mu.Lock()
	var evicted []*Session
	for id, s := range r.sessions {
		last, idle := s.idleSince()
		if idle && last.Before(cutoff) {
			evicted = append(evicted, s)
			delete(r.sessions, id)
		}
	}
	onEvict := r.onEvict
	r.mu.Unlock()

	ids := make([]string, 0, len(evicted))
	for _, s := range evicted {
		s.Close()
		ids = append(ids, s.ID())
		if onEvict != nil {
			onEvict(s.ID())
		}
	}
	sort.Strings(ids)
	if len(ids) > 0 {
		r.opts.Logger.Info().Int("sessions", len(ids)).Dur("max_idle", maxIdle).Msg("Evicted idle sessions")
	}
	return ids
}

// StartSweeper runs Sweep every interval until Close. A zero maxIdle keeps
// sessions forever.
func (r *Registry) StartSweeper(interval, maxIdle time.Duration) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepGen++
	if r.sweeper != nil {
		r.sweeper.Stop()
	}
	r.scheduleSweep(r.sweepGen, interval, maxIdle)
}

func (r *Registry) scheduleSweep(gen uint64, interval, maxIdle time.Duration) {
	r.sweeper = r.opts.Clock.AfterFunc(interval, func() {
		r.Sweep(maxIdle)
		r.mu.Lock()
		defer r.mu.Unlock()
		if gen == r.sweepGen {
			r.scheduleSweep(gen, interval, maxIdle)
		}
	})
}

// Close stops the sweeper and every session
func (r *Registry) Close() {
	r.mu.Lock()
	r.sweepGen++
	if r.sweeper != nil {
		r.sweeper.Stop()
		r.sweeper = nil
	}
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
