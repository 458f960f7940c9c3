package session

import (
	"errors"
	"strings"
	"testing"
)

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateOpen, "OPEN"},
		{StateFinalized, "FINALIZED"},
		{StateClosed, "CLOSED"},
		{StateDropped, "DROPPED"},
		{State(99), "UNKNOWN(99)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.expected)
		}
	}
}

func TestState_IsTerminal(t *testing.T) {
	if StateOpen.IsTerminal() {
		t.Error("OPEN should not be terminal")
	}
	if StateFinalized.IsTerminal() {
		t.Error("FINALIZED should not be terminal")
	}
	if !StateClosed.IsTerminal() {
		t.Error("CLOSED should be terminal")
	}
	if !StateDropped.IsTerminal() {
		t.Error("DROPPED should be terminal")
	}
}

func TestLifecycle_InitialState(t *testing.T) {
	l := NewLifecycle("sess-1")

	if l.State() != StateOpen {
		t.Errorf("expected initial state OPEN, got %s", l.State())
	}
	if l.SessionID() != "sess-1" {
		t.Errorf("expected session ID 'sess-1', got %s", l.SessionID())
	}
	if !l.CanEmitPartial() {
		t.Error("expected partials allowed in OPEN state")
	}
	if l.IsClosed() {
		t.Error("expected session not closed initially")
	}
}

func TestLifecycle_EmitPartial(t *testing.T) {
	l := NewLifecycle("sess-1")

	// Multiple partials allowed while open
	for i := 0; i < 3; i++ {
		if err := l.EmitPartial(); err != nil {
			t.Fatalf("partial %d rejected: %v", i, err)
		}
	}

	// Not after finalize
	if err := l.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := l.EmitPartial(); !errors.Is(err, ErrPartialAfterFinal) {
		t.Errorf("expected ErrPartialAfterFinal, got %v", err)
	}

	// Not after close
	l.Close()
	if err := l.EmitPartial(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestLifecycle_EmitSegment(t *testing.T) {
	l := NewLifecycle("sess-1")

	if err := l.EmitSegment(); err != nil {
		t.Fatalf("segment rejected while open: %v", err)
	}

	// Segments still flow during the finalize flush
	if err := l.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := l.EmitSegment(); err != nil {
		t.Errorf("segment rejected during finalize flush: %v", err)
	}

	l.Close()
	if err := l.EmitSegment(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestLifecycle_Finalize(t *testing.T) {
	l := NewLifecycle("sess-1")

	if err := l.Finalize(); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if l.State() != StateFinalized {
		t.Errorf("expected FINALIZED, got %s", l.State())
	}

	if err := l.Finalize(); !errors.Is(err, ErrAlreadyFinalized) {
		t.Errorf("expected ErrAlreadyFinalized, got %v", err)
	}

	l.Close()
	if err := l.Finalize(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed after close, got %v", err)
	}
}

func TestLifecycle_Drop(t *testing.T) {
	l := NewLifecycle("sess-1")

	if !l.Drop() {
		t.Error("expected drop from OPEN to succeed")
	}
	if !l.IsDropped() {
		t.Error("expected IsDropped true")
	}
	if l.Drop() {
		t.Error("expected second drop to report false")
	}
}

func TestLifecycle_DropAfterClose(t *testing.T) {
	l := NewLifecycle("sess-1")
	l.Close()

	if l.Drop() {
		t.Error("expected drop after close to report false")
	}
	if l.State() != StateClosed {
		t.Errorf("expected CLOSED preserved, got %s", l.State())
	}
}

func TestLifecycle_CloseIdempotent(t *testing.T) {
	l := NewLifecycle("sess-1")
	l.Close()
	l.Close()

	if l.State() != StateClosed {
		t.Errorf("expected CLOSED, got %s", l.State())
	}
}

func TestLifecycle_CloseAfterDrop_PreservesDropped(t *testing.T) {
	l := NewLifecycle("sess-1")
	l.Drop()
	l.Close()

	if l.State() != StateDropped {
		t.Errorf("expected DROPPED preserved through close, got %s", l.State())
	}
	if !l.IsDropped() {
		t.Error("expected IsDropped true after close")
	}
}

func TestGenerator_Next(t *testing.T) {
	g := NewGenerator()

	first := g.Next("sess-1")
	second := g.Next("sess-1")

	if first == second {
		t.Errorf("expected distinct IDs, got %s twice", first)
	}
	if !strings.HasPrefix(first, "sess-1-seg-") {
		t.Errorf("expected session-scoped prefix, got %s", first)
	}
}
