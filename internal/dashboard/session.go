package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pimalab/pimadash/internal/aggregate"
	"github.com/pimalab/pimadash/internal/chart"
	"github.com/pimalab/pimadash/internal/dataset"
	"github.com/pimalab/pimadash/internal/logging"
)

var nowFunc = time.Now

// Session is one browser's dashboard. Events are applied one at a time.
type Session struct {
	ID uuid.UUID

	mu         sync.Mutex
	controller *Controller
	lastSeen   time.Time
}

// Snapshot is the serializable state of a session.
type Snapshot struct {
	SessionID  string            `json:"session_id"`
	Widgets    []Widget          `json:"widgets"`
	Selections map[string]string `json:"selections"`
	Options    []string          `json:"options"`
}

func (s *Session) Apply(ev Event) (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = nowFunc()
	return s.controller.Apply(ev)
}

func (s *Session) Figure(id string) (chart.Figure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = nowFunc()
	return s.controller.Figure(id)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = nowFunc()
	return Snapshot{
		SessionID:  s.ID.String(),
		Widgets:    s.controller.Widgets(),
		Selections: s.controller.Selections(),
		Options:    nonNil(s.controller.Options()),
	}
}

// Touch marks the session as active, keeping the janitor away.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = nowFunc()
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Registry holds the live sessions. Every session shares the same read-only
// table and summary.
type Registry struct {
	table   *dataset.Table
	summary aggregate.Summary
	layout  Layout
	initial *Controller

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewRegistry(t *dataset.Table, summary aggregate.Summary, layout Layout) *Registry {
	return &Registry{
		table:    t,
		summary:  summary,
		layout:   layout,
		initial:  NewController(t, summary, layout),
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Create starts a session with a fresh controller.
func (r *Registry) Create() *Session {
	s := &Session{
		ID:         uuid.New(),
		controller: NewController(r.table, r.summary, r.layout),
		lastSeen:   nowFunc(),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	logging.L().Debug("session created", "session_id", s.ID)
	return s
}

func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Lookup parses raw as a session ID and returns the session.
func (r *Registry) Lookup(raw string) (*Session, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return r.Get(id)
}

func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ExpireIdle removes sessions last seen before cutoff and returns how many went.
func (r *Registry) ExpireIdle(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Initial returns the untouched dashboard shared by stateless endpoints.
// It is never mutated, so concurrent reads are safe.
func (r *Registry) Initial() *Controller {
	return r.initial
}

func (r *Registry) Table() *dataset.Table {
	return r.table
}

func (r *Registry) Summary() aggregate.Summary {
	return r.summary
}

func (r *Registry) Layout() Layout {
	return r.layout
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
