package server

import "sync"

// State is the lifecycle state of an engine session.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// Session tracks the handshake state and counters of one client connection.
type Session struct {
	mu                sync.Mutex
	state             State
	locale            string
	sessionsCompleted int64
	requestsServed    int64
}

// NewSession returns an uninitialized session.
func NewSession() *Session {
	return &Session{state: StateUninitialized}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SetState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// Locale is the display locale negotiated in initialize.
func (s *Session) Locale() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locale
}

func (s *Session) SetLocale(locale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locale = locale
}

// IncrementRequests counts one successfully served domain request.
func (s *Session) IncrementRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestsServed++
}

// complete marks the session finished and returns its counters.
func (s *Session) complete() (completed, served int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateShuttingDown
	s.sessionsCompleted++
	return s.sessionsCompleted, s.requestsServed
}
