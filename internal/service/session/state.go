// Package session provides session lifecycle management and the handler
// that bridges STT adapters to the event publisher.
package session

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a session.
type State int

const (
	// StateOpen - Session is active, can emit partials and segments.
	StateOpen State = iota
	// StateFinalized - Finalize requested; the flush of outstanding
	// segments is still delivered, partials are not.
	StateFinalized
	// StateClosed - Session is closed normally.
	StateClosed
	// StateDropped - Session was dropped due to error.
	// This is a terminal state. "Silence > bad data"
	StateDropped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateFinalized:
		return "FINALIZED"
	case StateClosed:
		return "CLOSED"
	case StateDropped:
		return "DROPPED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (CLOSED or DROPPED).
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateDropped
}

// Errors for invalid state transitions.
var (
	ErrSessionClosed     = errors.New("session is closed")
	ErrAlreadyFinalized  = errors.New("session already finalized")
	ErrPartialAfterFinal = errors.New("cannot emit partial after finalize")
)

// Lifecycle manages the state machine for a single session.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	OPEN → FINALIZED → CLOSED
//	  │        │
//	  │        └── EmitSegment() ──→ flush still allowed
//	  │
//	  └── EmitPartial() / EmitSegment() ──→ multiple times
//
// Rules:
//   - OPEN: Can emit partials and segments (multiple of each)
//   - FINALIZED: Can still emit segments (the final flush), no partials
//   - CLOSED/DROPPED: All emissions are rejected
type Lifecycle struct {
	mu        sync.RWMutex
	sessionID string
	state     State
}

// NewLifecycle creates a new session lifecycle in OPEN state.
func NewLifecycle(sessionID string) *Lifecycle {
	return &Lifecycle{
		sessionID: sessionID,
		state:     StateOpen,
	}
}

// SessionID returns the session ID.
func (l *Lifecycle) SessionID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sessionID
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// CanEmitPartial returns true if a partial can be emitted.
func (l *Lifecycle) CanEmitPartial() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateOpen
}

// IsClosed returns true if the session is in a terminal state.
func (l *Lifecycle) IsClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// IsDropped returns true if the session was dropped due to error.
func (l *Lifecycle) IsDropped() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateDropped
}

// EmitPartial validates a partial emission.
// Returns nil if allowed, error if not allowed.
func (l *Lifecycle) EmitPartial() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateOpen:
		return nil
	case StateFinalized:
		return ErrPartialAfterFinal
	case StateClosed, StateDropped:
		return ErrSessionClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// EmitSegment validates a segment emission. Segments are allowed while
// open and during the finalize flush.
func (l *Lifecycle) EmitSegment() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateOpen, StateFinalized:
		return nil
	case StateClosed, StateDropped:
		return ErrSessionClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Finalize transitions to FINALIZED state.
// Returns nil if allowed (and transitions state), error if not allowed.
func (l *Lifecycle) Finalize() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateOpen:
		l.state = StateFinalized
		return nil
	case StateFinalized:
		return ErrAlreadyFinalized
	case StateClosed, StateDropped:
		return ErrSessionClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Close transitions the session to CLOSED state.
// Can be called from any non-terminal state. Idempotent; a dropped
// session stays DROPPED so the failure is not masked.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateDropped {
		return
	}
	l.state = StateClosed
}

// Drop transitions the session to DROPPED state.
// Use when an error occurs and the session should be abandoned.
// "Silence > bad data" - it's better to emit nothing than
// incorrect/incomplete data.
//
// Returns true if the session was dropped, false if already in a
// terminal state.
func (l *Lifecycle) Drop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateDropped
	return true
}
