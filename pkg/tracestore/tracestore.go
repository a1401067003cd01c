// Package tracestore holds a bounded, TTL-expiring, per-decision event log
// for the planner's trace output. It is the only place in the module that
// retains plan history, and that history never survives process restart.
package tracestore

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType is the closed alphabet of trace event kinds.
type EventType string

const (
	EventRequest      EventType = "request"
	EventScores       EventType = "scores"
	EventAttempt      EventType = "attempt"
	EventSelected     EventType = "selected"
	EventSuccess      EventType = "success"
	EventFallback     EventType = "fallback"
	EventTimeout      EventType = "timeout"
	EventNoCandidates EventType = "no_candidates"
	EventFailure      EventType = "failure"
	EventPostFallback EventType = "post_fallback"
)

// Event is one timestamped entry in a Trace.
type Event struct {
	Ts   time.Time
	Type EventType
	Data map[string]any
}

// Trace is the ordered event log for a single plan() call.
type Trace struct {
	ID        string
	CreatedAt time.Time
	Events    []Event
}

// DefaultMaxTraces and DefaultTTL match the reference bounds.
const (
	DefaultMaxTraces = 1000
	DefaultTTL       = 15 * time.Minute
)

type entry struct {
	trace *Trace
}

// Store is a bounded, TTL-evicting trace log. It is safe for concurrent
// use; all mutation happens under a single mutex since trace volume is
// low relative to tool invocation latency.
type Store struct {
	mu        sync.Mutex
	maxTraces int
	ttl       time.Duration
	order     *list.List // insertion-ordered list of *entry, oldest at Front
	byID      map[string]*list.Element
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithMaxTraces overrides DefaultMaxTraces. Values < 1 are ignored.
func WithMaxTraces(n int) Option {
	return func(s *Store) {
		if n >= 1 {
			s.maxTraces = n
		}
	}
}

// WithTTL overrides DefaultTTL. Values < 1ms are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl >= time.Millisecond {
			s.ttl = ttl
		}
	}
}

// New constructs a Store with DefaultMaxTraces and DefaultTTL, as
// modified by opts.
func New(opts ...Option) *Store {
	s := &Store{
		maxTraces: DefaultMaxTraces,
		ttl:       DefaultTTL,
		order:     list.New(),
		byID:      make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new, empty trace and returns its opaque id. It
// prunes expired entries and then evicts the oldest surviving entries
// until the store is at or under its capacity bound.
func (s *Store) Create() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.pruneExpiredLocked(now)

	id := uuid.New().String()
	tr := &Trace{ID: id, CreatedAt: now}
	el := s.order.PushBack(&entry{trace: tr})
	s.byID[id] = el

	s.evictToCapacityLocked()
	return id
}

// Record appends an event to the named trace. It silently no-ops if id is
// unknown, including if the trace has since expired.
func (s *Store) Record(id string, eventType EventType, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.byID[id]
	if !ok {
		return
	}
	e := el.Value.(*entry)
	if s.expiredLocked(e.trace, time.Now()) {
		s.removeLocked(el)
		return
	}
	e.trace.Events = append(e.trace.Events, Event{Ts: time.Now(), Type: eventType, Data: data})
}

// Get returns the trace for id if present and not expired. On expiry it
// deletes the entry lazily and returns (nil, false).
func (s *Store) Get(id string) (*Trace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if s.expiredLocked(e.trace, time.Now()) {
		s.removeLocked(el)
		return nil, false
	}

	// Return a defensive copy so callers cannot mutate stored state.
	eventsCopy := make([]Event, len(e.trace.Events))
	copy(eventsCopy, e.trace.Events)
	return &Trace{ID: e.trace.ID, CreatedAt: e.trace.CreatedAt, Events: eventsCopy}, true
}

func (s *Store) expiredLocked(tr *Trace, now time.Time) bool {
	return now.Sub(tr.CreatedAt) > s.ttl
}

func (s *Store) pruneExpiredLocked(now time.Time) {
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if s.expiredLocked(e.trace, now) {
			s.removeLocked(el)
		}
		el = next
	}
}

func (s *Store) evictToCapacityLocked() {
	for s.order.Len() > s.maxTraces {
		front := s.order.Front()
		if front == nil {
			return
		}
		s.removeLocked(front)
	}
}

func (s *Store) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(s.byID, e.trace.ID)
	s.order.Remove(el)
}
