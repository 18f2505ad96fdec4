package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaminalder/ocean-tic-tac-toe/internal/domain"
)

// Errors exposed by the service layer.
var ErrNotFound = errors.New("session not found")

// SessionState is the in-memory state tracked per browser session.
// Updated moves only when the game changes; Seen moves on every access.
type SessionState struct {
	ID      string
	Session domain.Session
	Created time.Time
	Updated time.Time
	Seen    time.Time
}

// Renderer encodes a session for broadcast. A failed render skips the
// broadcast for that update.
type Renderer func(SessionState) ([]byte, error)

type subscriber struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// send delivers b without blocking. It reports false when the buffer is full.
// Sends to a closed subscriber are dropped silently.
func (s *subscriber) send(b []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- b:
		return true
	default:
		return false
	}
}

// Service manages hot-seat sessions and the tabs subscribed to them.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*SessionState
	subs     map[string]map[*subscriber]struct{}
	render   Renderer
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates a service whose broadcasts carry no payload.
func NewService(logger *slog.Logger) *Service {
	return NewServiceWithRenderer(logger, nil)
}

// NewServiceWithRenderer allows injecting a renderer for broadcast payloads.
func NewServiceWithRenderer(logger *slog.Logger, renderer Renderer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		sessions: make(map[string]*SessionState),
		subs:     make(map[string]map[*subscriber]struct{}),
		log:      logger.With("component", "sessions"),
		now:      time.Now,
	}
	s.SetRenderer(renderer)
	return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = func(SessionState) ([]byte, error) { return nil, nil }
		return
	}
	s.render = renderer
}

// CreateSession creates and registers a fresh session with X to move.
func (s *Service) CreateSession() *SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(uuid.NewString())
}

// Get returns a copy of the session state if present.
func (s *Service) Get(id string) (*SessionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	cp := *ss
	return &cp, true
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Ensure returns the session registered under id, creating a fresh one when
// the id is unknown (e.g. a cookie that outlived a restart or an eviction).
func (s *Service) Ensure(id string) *SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ss, ok := s.sessions[id]; ok {
		ss.Seen = s.now()
		cp := *ss
		return &cp
	}
	return s.createLocked(id)
}

func (s *Service) createLocked(id string) *SessionState {
	now := s.now()
	ss := &SessionState{ID: id, Session: domain.New(), Created: now, Updated: now, Seen: now}
	s.sessions[id] = ss
	s.log.Debug("session created", "session", id)
	cp := *ss
	return &cp
}

// Play applies a move at cell index. Ignored moves leave the game and its
// Updated timestamp untouched and are not broadcast.
func (s *Service) Play(id string, index int) (*SessionState, error) {
	return s.mutate(id, func(g *domain.Session) bool {
		before := *g
		g.ApplyMove(index)
		if *g == before {
			s.log.Debug("move ignored", "session", id, "cell", index)
			return false
		}
		st := g.Status()
		s.log.Debug("move applied", "session", id, "cell", index, "state", st.State.String())
		if st.State != domain.InProgress {
			s.log.Info("game over", "session", id, "status", st.Label)
		}
		return true
	})
}

// Reset starts the session over and broadcasts the empty board.
func (s *Service) Reset(id string) (*SessionState, error) {
	return s.mutate(id, func(g *domain.Session) bool {
		g.Reset()
		s.log.Debug("session reset", "session", id)
		return true
	})
}

// mutate applies fn under the lock, updates timestamps and broadcasts when fn
// reports a change.
func (s *Service) mutate(id string, fn func(*domain.Session) bool) (*SessionState, error) {
	var toDrop []*subscriber

	s.mu.Lock()
	ss, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	ss.Seen = s.now()
	if !fn(&ss.Session) {
		cp := *ss
		s.mu.Unlock()
		return &cp, nil
	}
	ss.Updated = ss.Seen

	// Snapshot state and subscribers
	cp := *ss
	subs := s.copySubsLocked(id)
	payload, err := s.render(cp)
	s.mu.Unlock()

	if err != nil {
		s.log.Error("broadcast render failed", "session", id, "error", err)
		return &cp, nil
	}

	// Fan-out; drop slow subscribers by closing and marking for deletion
	for sub := range subs {
		if !sub.send(payload) {
			sub.close()
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) > 0 {
		s.mu.Lock()
		for _, sub := range toDrop {
			s.removeSubLocked(id, sub)
		}
		s.mu.Unlock()
		s.log.Warn("dropped slow subscribers", "session", id, "count", len(toDrop))
	}
	return &cp, nil
}

// Subscribe registers a subscriber for a session. Returns a channel and an
// unsubscribe func. It does not create the session.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 1)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			s.removeSubLocked(id, sub)
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub
}

func (s *Service) removeSubLocked(id string, sub *subscriber) {
	if set, ok := s.subs[id]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(s.subs, id)
		}
	}
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}

// Sweep removes sessions not seen for ttl that have no open subscribers and
// returns how many were removed.
func (s *Service) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-ttl)
	n := 0
	for id, ss := range s.sessions {
		if len(s.subs[id]) > 0 || ss.Seen.After(cutoff) {
			continue
		}
		delete(s.sessions, id)
		n++
	}
	return n
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ttl); n > 0 {
				s.log.Info("evicted idle sessions", "count", n, "live", s.Len())
			}
		}
	}
}
