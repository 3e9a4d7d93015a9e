package session

import (
	"errors"
	"fmt"
	"sync"
)

// State is the lifecycle state of a voice session.
type State int

const (
	// StateDisconnected - no transport session. Initial and final state.
	StateDisconnected State = iota
	// StateConnecting - credential and transport are being established.
	StateConnecting
	// StateConnected - transport open, microphone off.
	StateConnected
	// StateListening - transport open, microphone on.
	StateListening
	// StateDisconnecting - teardown in progress.
	StateDisconnecting
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateListening:
		return "LISTENING"
	case StateDisconnecting:
		return "DISCONNECTING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsActive returns true while a transport session is open.
func (s State) IsActive() bool {
	return s == StateConnected || s == StateListening
}

// ErrInvalidTransition is returned for a transition the state machine does not allow.
var ErrInvalidTransition = errors.New("invalid session state transition")

// Lifecycle guards the session state machine.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	DISCONNECTED → CONNECTING → CONNECTED ⇄ LISTENING
//	                                 │          │
//	                                 └──────────┴──→ DISCONNECTING → DISCONNECTED
//
// Any non-terminal state may fall back to DISCONNECTED on error (Fail).
type Lifecycle struct {
	mu           sync.RWMutex
	state        State
	onTransition func(from, to State)
}

// NewLifecycle creates a lifecycle in DISCONNECTED state. onTransition, if
// non-nil, is called for every state change while the lifecycle is locked.
func NewLifecycle(onTransition func(from, to State)) *Lifecycle {
	return &Lifecycle{
		state:        StateDisconnected,
		onTransition: onTransition,
	}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

var allowed = map[State][]State{
	StateDisconnected:  {StateConnecting},
	StateConnecting:    {StateConnected, StateDisconnecting},
	StateConnected:     {StateListening, StateDisconnecting},
	StateListening:     {StateConnected, StateDisconnecting},
	StateDisconnecting: {StateDisconnected},
}

// Transition moves to the given state if the state machine allows it.
func (l *Lifecycle) Transition(to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range allowed[l.state] {
		if s == to {
			l.set(to)
			return nil
		}
	}
	return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, l.state, to)
}

// Fail returns to DISCONNECTED from any state. Idempotent.
// Returns true if the state changed.
func (l *Lifecycle) Fail() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateDisconnected {
		return false
	}
	l.set(StateDisconnected)
	return true
}

func (l *Lifecycle) set(to State) {
	from := l.state
	l.state = to
	if l.onTransition != nil && from != to {
		l.onTransition(from, to)
	}
}
