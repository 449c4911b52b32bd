package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/Yashasrn33/RPGAI/internal/api/validate"
	"github.com/Yashasrn33/RPGAI/internal/dialogue"
	"github.com/Yashasrn33/RPGAI/internal/model"
)

// Outbound frame types on /v1/chat.stream.
const (
	frameToken = "token"
	frameFinal = "final"
	frameError = "error"
)

// maxRequestBytes caps the inbound turn request message. Personas and
// context stay far below this; anything larger is a misbehaving client.
const maxRequestBytes = 64 << 10

// frame is one server-to-client message on a dialogue session socket.
type frame struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	JSON    string `json:"json,omitempty"`
	Message string `json:"message,omitempty"`
}

// wsEmitter serializes frame writes onto one socket. The orchestrator only
// calls it sequentially today, but the lock keeps the protocol safe if
// emission ever fans out.
type wsEmitter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newWSEmitter(conn *websocket.Conn) *wsEmitter {
	return &wsEmitter{enc: json.NewEncoder(conn)}
}

func (e *wsEmitter) write(f frame) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Encode(f)
}

func (e *wsEmitter) EmitToken(_ context.Context, text string) error {
	return e.write(frame{Type: frameToken, Text: text})
}

func (e *wsEmitter) EmitFinal(_ context.Context, payload string) error {
	return e.write(frame{Type: frameFinal, JSON: payload})
}

func (e *wsEmitter) emitError(message string) error {
	return e.write(frame{Type: frameError, Message: message})
}

// SessionHandler owns the WebSocket dialogue protocol: one
// DialogueTurnRequest in, a stream of token frames and exactly one final
// frame out, then the connection closes. Sessions are single-shot; clients
// reconnect for the next turn.
type SessionHandler struct {
	orch *dialogue.Orchestrator
	log  zerolog.Logger
}

func NewSessionHandler(orch *dialogue.Orchestrator, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{orch: orch, log: log.With().Str("component", "session").Logger()}
}

// Handler returns the HTTP handler for /v1/chat.stream.
func (h *SessionHandler) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

func (h *SessionHandler) serve(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	conn.MaxPayloadBytes = maxRequestBytes
	emitter := newWSEmitter(conn)

	// The request arrives as one complete message; later messages on the
	// socket are never read.
	var req model.DialogueTurnRequest
	if err := websocket.JSON.Receive(conn, &req); err != nil {
		_ = emitter.emitError("Invalid payload: " + err.Error())
		return
	}
	if err := validate.TurnRequest(&req); err != nil {
		_ = emitter.emitError("Invalid payload: " + err.Error())
		return
	}

	ctx := context.Background()
	if r := conn.Request(); r != nil {
		ctx = r.Context()
	}

	h.log.Info().
		Str("character_id", req.CharacterID).
		Str("player_id", req.PlayerID).
		Msg("session opened")

	if err := h.orch.RunTurn(ctx, &req, emitter); err != nil {
		h.log.Error().Err(err).Str("character_id", req.CharacterID).Msg("turn aborted")
		// Best effort: the socket may already be gone.
		_ = emitter.emitError(err.Error())
	}
}
