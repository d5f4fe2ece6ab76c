package conversation

import "sync"

// Store is the single owner of a conversation State. All writers go
// through Dispatch; readers take snapshots. Because Reduce never mutates
// its input, a snapshot stays valid after later dispatches.
type Store struct {
	mu       sync.RWMutex
	state    State
	onCommit func(State)
}

// NewStore returns a store holding the initial empty state.
func NewStore() *Store {
	return &Store{state: NewState()}
}

// OnCommit registers a callback invoked after every dispatched event with
// the committed state. At most one callback is held; registering replaces
// the previous one.
func (s *Store) OnCommit(fn func(State)) {
	s.mu.Lock()
	s.onCommit = fn
	s.mu.Unlock()
}

// Dispatch applies one event and returns the committed state.
func (s *Store) Dispatch(ev Event) State {
	s.mu.Lock()
	s.state = Reduce(s.state, ev)
	committed := s.state
	fn := s.onCommit
	s.mu.Unlock()
	if fn != nil {
		fn(committed)
	}
	return committed
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastCompleteAssistant returns the most recent complete assistant message.
func (s *Store) LastCompleteAssistant() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.state.Messages) - 1; i >= 0; i-- {
		m := s.state.Messages[i]
		if m.Role == RoleAssistant && m.Status == StatusComplete {
			return m, true
		}
	}
	return Message{}, false
}
