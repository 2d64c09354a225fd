// Package ws is the connection gateway: it authenticates each websocket
// handshake, binds the verified identity to the connection for its whole
// lifetime, and dispatches inbound frames to the chat service. Frames for
// one connection are processed strictly in arrival order.
package ws

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"support-chat/contract"
	"support-chat/domain/event"
	"support-chat/errors"
	"support-chat/runtime"
	"support-chat/services"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// frame is the wire envelope in both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outboundFrame struct {
	Event string      `json:"event"`
	Data  event.Event `json:"data"`
}

type sendMessagePayload struct {
	SessionID string `json:"sessionId" validate:"required,uuid"`
	Text      string `json:"text" validate:"required"`
}

type markReadPayload struct {
	SessionID  string   `json:"sessionId" validate:"required,uuid"`
	MessageIDs []string `json:"messageIds" validate:"required,min=1,dive,uuid"`
}

type Server struct {
	log          *slog.Logger
	verifier     contract.IdentityVerifier
	chat         services.IChatService
	validate     *validator.Validate
	upgrader     websocket.Upgrader
	bufferSize   int
	writeTimeout time.Duration
}

func NewServer(log *slog.Logger, verifier contract.IdentityVerifier,
	chat services.IChatService, bufferSize int, writeTimeout time.Duration) *Server {
	return &Server{
		log:      log,
		verifier: verifier,
		chat:     chat,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients come from the separately hosted frontend.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		bufferSize:   bufferSize,
		writeTimeout: writeTimeout,
	}
}

// ServeHTTP performs the authenticated handshake and then runs the
// connection's read loop until the client goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := s.verifier.Verify(r.Context(), extractCredential(r))
	if err != nil {
		s.log.Debug("handshake rejected", "error", err)
		status := http.StatusUnauthorized
		if stderrors.Is(err, errors.ErrAuthMissing) {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		http.Error(w, errors.PublicMessage(err), status)
		return
	}

	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer socket.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := runtime.NewConn(identity, s.bufferSize)
	go s.writeLoop(ctx, cancel, socket, conn)

	s.chat.Connect(ctx, conn)
	// Disconnect runs on a fresh context: the connection context is already
	// done by then, but the offline announcements must still fan out.
	defer s.chat.Disconnect(context.Background(), conn)

	for {
		var f frame
		if err := socket.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("read loop ended", "identity_id", identity.ID, "error", err)
			}
			return
		}
		s.dispatch(ctx, conn, f)
	}
}

// writeLoop drains the connection sink onto the socket. A write failure
// tears the whole connection down.
func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc,
	socket *websocket.Conn, conn *runtime.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-conn.Events():
			_ = socket.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := socket.WriteJSON(outboundFrame{Event: e.Name(), Data: e}); err != nil {
				s.log.Debug("write failed, closing connection",
					"identity_id", conn.Identity.ID, "error", err)
				cancel()
				_ = socket.Close()
				return
			}
		}
	}
}

// dispatch routes one inbound frame. Validation and authorization errors
// are local: the caller gets a single error event, nobody else sees
// anything.
func (s *Server) dispatch(ctx context.Context, conn *runtime.Conn, f frame) {
	var err error
	switch f.Event {
	case "join-session":
		var sessionID uuid.UUID
		if sessionID, err = parseSessionID(f.Data); err == nil {
			err = s.chat.Join(ctx, conn, sessionID)
		}
	case "leave-session":
		var sessionID uuid.UUID
		if sessionID, err = parseSessionID(f.Data); err == nil {
			s.chat.Leave(ctx, conn, sessionID)
		}
	case "send-message":
		err = s.handleSend(ctx, conn, f.Data)
	case "typing":
		var sessionID uuid.UUID
		if sessionID, err = parseSessionID(f.Data); err == nil {
			s.chat.Typing(ctx, conn, sessionID)
		}
	case "stopped-typing":
		var sessionID uuid.UUID
		if sessionID, err = parseSessionID(f.Data); err == nil {
			s.chat.StoppedTyping(ctx, conn, sessionID)
		}
	case "mark-read":
		err = s.handleMarkRead(ctx, conn, f.Data)
	default:
		err = errors.ErrInvalidPayload
	}

	if err != nil {
		_ = conn.Consume(ctx, event.Error{Message: errors.PublicMessage(err)})
	}
}

func (s *Server) handleSend(ctx context.Context, conn *runtime.Conn, data json.RawMessage) error {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return errors.ErrInvalidPayload
	}
	if err := s.validate.Struct(payload); err != nil {
		return errors.ErrInvalidPayload
	}
	sessionID, err := uuid.Parse(payload.SessionID)
	if err != nil {
		return errors.ErrInvalidPayload
	}
	return s.chat.Send(ctx, conn, sessionID, payload.Text)
}

func (s *Server) handleMarkRead(ctx context.Context, conn *runtime.Conn, data json.RawMessage) error {
	var payload markReadPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return errors.ErrInvalidPayload
	}
	if err := s.validate.Struct(payload); err != nil {
		return errors.ErrInvalidPayload
	}
	sessionID, err := uuid.Parse(payload.SessionID)
	if err != nil {
		return errors.ErrInvalidPayload
	}
	ids := make([]uuid.UUID, 0, len(payload.MessageIDs))
	for _, raw := range payload.MessageIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return errors.ErrInvalidPayload
		}
		ids = append(ids, id)
	}
	return s.chat.MarkRead(ctx, conn, sessionID, ids)
}

// parseSessionID accepts the bare-string payload used by the session-scoped
// signals: {"event":"typing","data":"<uuid>"}.
func parseSessionID(data json.RawMessage) (uuid.UUID, error) {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return uuid.Nil, errors.ErrInvalidPayload
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.ErrInvalidPayload
	}
	return id, nil
}

// extractCredential pulls the bearer credential from the Authorization
// header, falling back to the token query parameter for browser websocket
// clients that cannot set headers.
func extractCredential(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
