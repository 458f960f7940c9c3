// Package ws provides the WebSocket ingress for streaming transcription.
// The wire protocol is the one speech clients already speak: a JSON
// config frame opens the session, the server answers SERVER_READY,
// binary frames carry raw PCM audio, and results stream back as JSON
// with committed segments and the current partial.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/oLauand/subtitlesforall/internal/events"
	"github.com/oLauand/subtitlesforall/internal/service/session"
	"github.com/oLauand/subtitlesforall/internal/service/stt"
	"github.com/oLauand/subtitlesforall/internal/streaming/assembler"
)

// endOfAudio is the text frame a client sends to finalize the session
// while keeping the connection open for the final flush.
const endOfAudio = "END_OF_AUDIO"

// SessionOptions carries the per-session settings from the client's
// config frame.
type SessionOptions struct {
	Language  string
	Translate bool
	UseVAD    bool
}

// AdapterFactory builds an STT adapter for a new session.
type AdapterFactory func(sessionID string, opts SessionOptions) (stt.Adapter, error)

// clientConfig is the first frame a client sends after connecting.
type clientConfig struct {
	UID      string `json:"uid"`
	Language string `json:"language"`
	Task     string `json:"task"`
	Model    string `json:"model"`
	UseVAD   bool   `json:"use_vad"`
}

// serverMessage covers the control frames the server sends.
type serverMessage struct {
	UID     string `json:"uid"`
	Message string `json:"message"`
	Backend string `json:"backend,omitempty"`
	Error   string `json:"error,omitempty"`
}

// wireSegment is one committed segment in a result frame, times in
// seconds of stream position.
type wireSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// resultMessage streams segments and the superseding partial.
type resultMessage struct {
	UID      string        `json:"uid"`
	Segments []wireSegment `json:"segments"`
	Partial  string        `json:"partial"`
}

// Server accepts WebSocket transcription sessions.
type Server struct {
	server    *http.Server
	addr      string
	factory   AdapterFactory
	publisher *events.Publisher
	limits    session.Limits
	backend   string
	upgrader  websocket.Upgrader
}

// NewServer creates the WebSocket ingress server.
func NewServer(addr string, factory AdapterFactory, publisher *events.Publisher, limits session.Limits, backend string) *Server {
	s := &Server{
		addr:      addr,
		factory:   factory,
		publisher: publisher,
		limits:    limits,
		backend:   backend,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
			// Sessions are keyed by uid, not cookies; any origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSession)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     mux,
		IdleTimeout: 120 * time.Second,
	}
	return s
}

// Handler exposes the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the WebSocket server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.addr).Msg("Starting WebSocket ingress")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("WebSocket ingress error")
		}
	}()
}

// Shutdown gracefully shuts down the WebSocket server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down WebSocket ingress")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// First frame must be the session config.
	var cfg clientConfig
	if err := conn.ReadJSON(&cfg); err != nil {
		log.Warn().Err(err).Msg("Invalid session config frame")
		return
	}
	sessionID := cfg.UID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	logger := log.With().Str("sessionId", sessionID).Logger()

	emitter := newEmitter(conn, sessionID)

	adapter, err := s.factory(sessionID, SessionOptions{
		Language:  cfg.Language,
		Translate: cfg.Task == "translate",
		UseVAD:    cfg.UseVAD,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Adapter construction failed")
		emitter.sendError(err)
		return
	}

	handler := session.NewHandlerWithLimits(adapter, s.publisher, sessionID, s.limits)
	handler.SetObserver(emitter)

	if err := handler.Start(r.Context()); err != nil {
		logger.Error().Err(err).Msg("Session start failed")
		emitter.sendError(err)
		return
	}
	defer handler.Close()

	emitter.send(serverMessage{
		UID:     sessionID,
		Message: "SERVER_READY",
		Backend: s.backend,
	})
	logger.Info().Str("language", cfg.Language).Str("task", cfg.Task).Msg("Session ready")

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("Connection dropped")
				handler.Drop("client disconnected")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if err := handler.SendAudio(r.Context(), payload); err != nil {
				logger.Warn().Err(err).Msg("Audio rejected")
				emitter.sendError(err)
				return
			}
		case websocket.TextMessage:
			if string(payload) == endOfAudio {
				// Finalize flushes the speculative tail through the
				// observer before the goodbye frame.
				if err := handler.Close(); err != nil {
					logger.Warn().Err(err).Msg("Session close failed")
				}
				emitter.send(serverMessage{UID: sessionID, Message: "DISCONNECT"})
				return
			}
			logger.Debug().Str("frame", string(payload)).Msg("Ignoring text frame")
		}
	}
}

// emitter pushes results to one client. A mutex serializes writes since
// adapters may emit from their own goroutines.
type emitter struct {
	mu       sync.Mutex
	conn     *websocket.Conn
	uid      string
	segments []wireSegment
	partial  string
}

func newEmitter(conn *websocket.Conn, uid string) *emitter {
	return &emitter{conn: conn, uid: uid}
}

func (e *emitter) OnPartial(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.partial = text
	e.writeResult()
}

func (e *emitter) OnSegment(seg assembler.Segment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.segments = append(e.segments, wireSegment{
		Start: float64(seg.T0) / 1000,
		End:   float64(seg.T1) / 1000,
		Text:  seg.Text,
	})
	e.writeResult()
}

func (e *emitter) OnError(err error) {
	e.sendError(err)
}

// writeResult sends the full transcript state. Caller holds the lock.
func (e *emitter) writeResult() {
	msg := resultMessage{
		UID:      e.uid,
		Segments: e.segments,
		Partial:  e.partial,
	}
	if err := e.conn.WriteJSON(msg); err != nil {
		log.Debug().Err(err).Str("sessionId", e.uid).Msg("Result write failed")
	}
}

func (e *emitter) send(msg serverMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.conn.WriteJSON(msg); err != nil {
		log.Debug().Err(err).Str("sessionId", e.uid).Msg("Control write failed")
	}
}

func (e *emitter) sendError(err error) {
	e.send(serverMessage{UID: e.uid, Message: "ERROR", Error: err.Error()})
}
