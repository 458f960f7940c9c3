package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oLauand/subtitlesforall/internal/events"
	"github.com/oLauand/subtitlesforall/internal/service/session"
	"github.com/oLauand/subtitlesforall/internal/service/stt"
	"github.com/oLauand/subtitlesforall/internal/streaming/assembler"
)

// scriptedAdapter emits one committed segment and a partial per audio
// frame, and flushes a tail segment on close.
type scriptedAdapter struct {
	cb     stt.Callback
	frames int
	closed bool
}

func (a *scriptedAdapter) Start(ctx context.Context, cb stt.Callback) error {
	a.cb = cb
	return nil
}

func (a *scriptedAdapter) SendAudio(ctx context.Context, audio []byte) error {
	a.frames++
	base := int64(a.frames-1) * 1000
	a.cb.OnSegment(assembler.Segment{Text: "chunk", T0: base, T1: base + 800})
	a.cb.OnPartial("pending words")
	return nil
}

func (a *scriptedAdapter) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if a.cb != nil {
		a.cb.OnSegment(assembler.Segment{Text: "tail", T0: 9000, T1: 9500})
		a.cb.OnPartial("")
	}
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *scriptedAdapter) {
	t.Helper()
	adapter := &scriptedAdapter{}
	factory := func(sessionID string, opts SessionOptions) (stt.Adapter, error) {
		return adapter, nil
	}
	publisher := events.New(&events.Config{Enabled: false})
	s := NewServer("", factory, publisher, session.DefaultLimits(), "test")
	return httptest.NewServer(s.Handler()), adapter
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", payload, err)
	}
	return msg
}

func TestSession_ReadyHandshake(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	conn := dial(t, ts)
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"uid": "sess-abc", "language": "en", "task": "transcribe"}); err != nil {
		t.Fatalf("config write: %v", err)
	}

	ready := readJSON(t, conn)
	if ready["message"] != "SERVER_READY" {
		t.Fatalf("expected SERVER_READY, got %v", ready)
	}
	if ready["uid"] != "sess-abc" {
		t.Errorf("expected uid echoed, got %v", ready["uid"])
	}
	if ready["backend"] != "test" {
		t.Errorf("expected backend 'test', got %v", ready["backend"])
	}
}

func TestSession_GeneratesUIDWhenMissing(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	conn := dial(t, ts)
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"language": "en"}); err != nil {
		t.Fatalf("config write: %v", err)
	}

	ready := readJSON(t, conn)
	uid, _ := ready["uid"].(string)
	if uid == "" {
		t.Error("expected generated uid")
	}
}

func TestSession_AudioProducesResults(t *testing.T) {
	ts, _ := newTestServer(t)
	defer ts.Close()

	conn := dial(t, ts)
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"uid": "sess-1"}); err != nil {
		t.Fatalf("config write: %v", err)
	}
	readJSON(t, conn) // SERVER_READY

	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 4096)); err != nil {
		t.Fatalf("audio write: %v", err)
	}

	// One message for the committed segment, one for the partial.
	segMsg := readJSON(t, conn)
	segments, ok := segMsg["segments"].([]any)
	if !ok || len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %v", segMsg)
	}
	seg := segments[0].(map[string]any)
	if seg["text"] != "chunk" {
		t.Errorf("expected segment text 'chunk', got %v", seg["text"])
	}
	if seg["start"].(float64) != 0 || seg["end"].(float64) != 0.8 {
		t.Errorf("expected 0..0.8 seconds, got %v..%v", seg["start"], seg["end"])
	}

	partMsg := readJSON(t, conn)
	if partMsg["partial"] != "pending words" {
		t.Errorf("expected partial 'pending words', got %v", partMsg["partial"])
	}
}

func TestSession_EndOfAudioFlushesAndDisconnects(t *testing.T) {
	ts, adapter := newTestServer(t)
	defer ts.Close()

	conn := dial(t, ts)
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"uid": "sess-1"}); err != nil {
		t.Fatalf("config write: %v", err)
	}
	readJSON(t, conn) // SERVER_READY

	if err := conn.WriteMessage(websocket.TextMessage, []byte("END_OF_AUDIO")); err != nil {
		t.Fatalf("end write: %v", err)
	}

	// Flush: tail segment, cleared partial, then goodbye.
	tail := readJSON(t, conn)
	segments, _ := tail["segments"].([]any)
	if len(segments) != 1 || segments[0].(map[string]any)["text"] != "tail" {
		t.Errorf("expected flushed tail segment, got %v", tail)
	}

	cleared := readJSON(t, conn)
	if cleared["partial"] != "" {
		t.Errorf("expected cleared partial, got %v", cleared["partial"])
	}

	bye := readJSON(t, conn)
	if bye["message"] != "DISCONNECT" {
		t.Errorf("expected DISCONNECT, got %v", bye)
	}

	if !adapter.closed {
		t.Error("expected adapter closed")
	}
}
