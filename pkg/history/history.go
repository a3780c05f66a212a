package history

import (
	"sync"

	"github.com/sentia-ai/ragbot/internal/models"
)

// DefaultMaxHistory bounds stored turns at 2×DefaultMaxHistory per session.
const DefaultMaxHistory = 5

// Store keeps bounded conversation history per session key in memory.
// History lives for the process lifetime only and never expires while
// running; clearing is an explicit operation. The per-key mutex from Lock
// serializes one in-flight request per session.
type Store struct {
	maxHistory int

	mu       sync.Mutex
	sessions map[string][]models.Turn
	locks    map[string]*sync.Mutex
}

func New(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{
		maxHistory: maxHistory,
		sessions:   make(map[string][]models.Turn),
		locks:      make(map[string]*sync.Mutex),
	}
}

// Append adds a turn to the session, evicting the oldest turns once the cap
// of 2×maxHistory is exceeded. Content is stored as-is; callers substitute
// an empty string when no text is available, never an absent value.
func (s *Store) Append(sessionID string, turn models.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[sessionID], turn)
	if limit := s.maxHistory * 2; len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	s.sessions[sessionID] = turns
}

// Get returns a copy of the session's turns in chronological order.
func (s *Store) Get(sessionID string) []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.sessions[sessionID]
	snapshot := make([]models.Turn, len(turns))
	copy(snapshot, turns)
	return snapshot
}

// Clear drops all turns for the session.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Lock acquires the session's mutex and returns the unlock func. Concurrent
// messages from the same session are serialized here so turns are never
// interleaved or lost.
func (s *Store) Lock(sessionID string) func() {
	s.mu.Lock()
	m, ok := s.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[sessionID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}
