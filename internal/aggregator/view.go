package aggregator

import (
	"spyosint/internal/collector"
	"spyosint/internal/models"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ticket identifies the generation an outcome belongs to
type Ticket uint64

// View result state of one search surface. Each Begin starts a new generation;
// outcomes delivered with an older ticket are dropped.
type View struct {
	mu         sync.Mutex
	generation Ticket
	query      models.Query
	expected   int
	outcomes   []collector.Outcome
	startedAt  time.Time
	updatedAt  time.Time
}

// Snapshot copy of the current generation's state
type Snapshot struct {
	Generation Ticket              `json:"generation"`
	Query      models.Query        `json:"query"`
	Outcomes   []collector.Outcome `json:"outcomes"`
	Pending    int                 `json:"pending"`
	Done       bool                `json:"done"`
	StartedAt  time.Time           `json:"startedAt"`
}

// Begin clears the view for a new search expecting the given number of outcomes
func (v *View) Begin(q models.Query, expected int) Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	v.query = q
	v.expected = expected
	v.outcomes = nil
	v.startedAt = time.Now().UTC()
	v.updatedAt = v.startedAt
	return v.generation
}

// Deliver records an outcome. Returns false when the ticket is stale.
func (v *View) Deliver(t Ticket, o collector.Outcome) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if t != v.generation {
		return false
	}
	v.outcomes = append(v.outcomes, o)
	v.updatedAt = time.Now().UTC()
	return true
}

// Current generation
func (v *View) Current() Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.generation
}

func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	outcomes := make([]collector.Outcome, len(v.outcomes))
	copy(outcomes, v.outcomes)
	pending := max(0, v.expected-len(v.outcomes))
	return Snapshot{
		Generation: v.generation,
		Query:      v.query,
		Outcomes:   outcomes,
		Pending:    pending,
		Done:       pending == 0,
		StartedAt:  v.startedAt,
	}
}

// Results successful results of the current generation
func (v *View) Results() []models.Result {
	return collector.Succeeded(v.Snapshot().Outcomes)
}

func (v *View) lastActivity() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.updatedAt
}

// Sessions views keyed by session id, expiring after ttl without activity
type Sessions struct {
	mu    sync.Mutex
	views map[string]*View
	ttl   time.Duration
}

// NewSessions creates an empty session table. ttl <= 0 disables expiry.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{views: make(map[string]*View), ttl: ttl}
}

// Open returns the view of id, creating it (and a fresh id when empty) if needed
func (s *Sessions) Open(id string) (string, *View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	if id == "" {
		id = uuid.NewString()
	}
	v, ok := s.views[id]
	if !ok {
		v = &View{updatedAt: time.Now().UTC()}
		s.views[id] = v
	}
	return id, v
}

// Get returns an existing view
func (s *Sessions) Get(id string) (*View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[id]
	return v, ok
}

func (s *Sessions) evictLocked() {
	if s.ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-s.ttl)
	for id, v := range s.views {
		if v.lastActivity().Before(cutoff) {
			delete(s.views, id)
		}
	}
}
