//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"support-chat/contract"
	"support-chat/domain"
	"support-chat/domain/event"
	"support-chat/errors"
	"support-chat/moderation"
	"support-chat/observability"
	"support-chat/runtime"
	"support-chat/search"

	"github.com/google/uuid"
)

const notifyTimeout = 5 * time.Second

type IChatService interface {
	Connect(ctx context.Context, conn *runtime.Conn)
	Disconnect(ctx context.Context, conn *runtime.Conn)
	Join(ctx context.Context, conn *runtime.Conn, sessionID uuid.UUID) error
	Leave(ctx context.Context, conn *runtime.Conn, sessionID uuid.UUID)
	Send(ctx context.Context, conn *runtime.Conn, sessionID uuid.UUID, text string) error
	Typing(ctx context.Context, conn *runtime.Conn, sessionID uuid.UUID)
	StoppedTyping(ctx context.Context, conn *runtime.Conn, sessionID uuid.UUID)
	MarkRead(ctx context.Context, conn *runtime.Conn, sessionID uuid.UUID, ids []uuid.UUID) error
}

// ChatService implements the real-time core behind the gateway: presence
// side effects on connect/disconnect, room admission, the message pipeline
// and the ephemeral signal relay. Handlers for one connection run
// sequentially; handlers for different connections interleave, which is why
// presence and rooms carry their own locks.
type ChatService struct {
	log        *slog.Logger
	store      contract.SessionStore
	presence   *runtime.Presence
	rooms      *runtime.Rooms
	notifier   contract.Notifier
	moderator  *moderation.Moderator
	index      *search.Index
	stats      *observability.Stats
	maxTextLen int
}

func NewChatService(log *slog.Logger, store contract.SessionStore,
	presence *runtime.Presence, rooms *runtime.Rooms,
	notifier contract.Notifier, moderator *moderation.Moderator,
	index *search.Index, stats *observability.Stats, maxTextLen int) *ChatService {
	return &ChatService{
		log:        log,
		store:      store,
		presence:   presence,
		rooms:      rooms,
		notifier:   notifier,
		moderator:  moderator,
		index:      index,
		stats:      stats,
		maxTextLen: maxTextLen,
	}
}

// Connect registers the authenticated connection in the presence registry
// and announces it to every connected party. A previous connection for the
// same identity is overwritten (last-connection-wins).
func (s *ChatService) Connect(ctx context.Context, conn *runtime.Conn) {
	s.presence.Register(conn)
	s.stats.RecordConnection()
	s.log.Info("client connected", "identity_id", conn.Identity.ID, "name", conn.Identity.Name)

	s.presence.Broadcast(ctx, event.PresenceOnline{
		IdentityID: conn.Identity.ID,
		UserName:   conn.Identity.Name,
		Role:       conn.Identity.Role,
	})
}

// Disconnect clears every room membership held by the connection and, if
// the presence entry still points at this connection, removes it and
// announces the identity as offline. A stale disconnect after an overwrite
// leaves the newer entry alone.
func (s *ChatService) Disconnect(ctx context.Context, conn *runtime.Conn) {
	for _, sessionID := range s.rooms.RemoveConn(conn.ID) {
		s.rooms.Broadcast(ctx, sessionID, event.PeerLeft{
			IdentityID: conn.Identity.ID,
			UserName:   conn.Identity.Name,
			SessionID:  sessionID,
		})
	}

	s.stats.RecordDisconnection()
	s.stats.RecordDroppedEvents(conn.Dropped())

	if s.presence.Unregister(conn.Identity.ID, conn.ID) {
		s.log.Info("client disconnected", "identity_id", conn.Identity.ID, "name", conn.Identity.Name)
		s.presence.Broadcast(ctx, event.PresenceOffline{
			IdentityID: conn.Identity.ID,
			UserName:   conn.Identity.Name,
		})
	}
}

// Join admits the connection into the session's room after checking that
// its identity is one of the two participants. Existing members learn about
// the newcomer; the caller gets a confirmation on its own sink.
func (s *ChatService) Join(ctx context.Context, conn *runtime.Conn, sessionID uuid.UUID) error {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return s.storeErr("loading session", err)
	}
	if !session.HasParticipant(conn.Identity.ID) {
		return errors.ErrAccessDenied
	}

	s.rooms.Add(sessionID, conn)
	s.log.Info("joined session", "identity_id", conn.Identity.ID, "session_id", sessionID)

	s.rooms.BroadcastOthers(ctx, sessionID, conn.ID, event.PeerJoined{
		IdentityID: conn.Identity.ID,
		UserName:   conn.Identity.Name,
		SessionID:  sessionID,
	})
	_ = conn.Consume(ctx, event.JoinConfirmed{SessionID: sessionID})
	return nil
}

// Leave removes the connection from the room and tells the remaining
// members. Idempotent for non-members.
func (s *ChatService) Leave(ctx context.Context, conn *runtime.Conn, sessionID uuid.UUID) {
	if !s.rooms.Contains(sessionID, conn.ID) {
		return
	}
	s.rooms.Remove(sessionID, conn.ID)
	s.log.Info("left session", "identity_id", conn.Identity.ID, "session_id", sessionID)

	s.rooms.Broadcast(ctx, sessionID, event.PeerLeft{
		IdentityID: conn.Identity.ID,
		UserName:   conn.Identity.Name,
		SessionID:  sessionID,
	})
}

// Send runs the message pipeline: validate, authorize, persist, apply the
// session-state transition, broadcast to the room (sender included, so all
// replicas converge on the same ordered view), then best-effort notify an
// offline recipient.
func (s *ChatService) Send(ctx context.Context, conn *runtime.Conn, sessionID uuid.UUID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.ErrInvalidPayload
	}
	if s.maxTextLen > 0 && len([]rune(text)) > s.maxTextLen {
		return fmt.Errorf("%w: text exceeds %d characters", errors.ErrInvalidPayload, s.maxTextLen)
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return s.storeErr("loading session", err)
	}
	if !session.HasParticipant(conn.Identity.ID) {
		return errors.ErrAccessDenied
	}

	if s.moderator != nil {
		text = s.moderator.Censor(text)
	}

	message, err := s.store.CreateMessage(ctx, domain.NewTextMessage(sessionID, conn.Identity.ID, text))
	if err != nil {
		return s.storeErr("persisting message", err)
	}

	session.Touch(time.Now().UTC())
	if err = s.store.SaveSession(ctx, session); err != nil {
		return s.storeErr("updating session", err)
	}

	s.rooms.Broadcast(ctx, sessionID, event.MessageCreated{
		Message: event.HydrateMessage(message, conn.Identity),
	})
	s.stats.RecordMessage(message.Text)

	if s.index != nil {
		if err = s.index.Add(message); err != nil {
			s.log.Warn("message indexing failed", "message_id", message.ID, "error", err)
		}
	}

	s.notifyIfOffline(session, conn.Identity.ID, message.Text)
	return nil
}

// notifyIfOffline fires the external notification in a detached goroutine.
// The result is discarded on purpose: failures are logged, never surfaced
// to the sender, never retried.
func (s *ChatService) notifyIfOffline(session domain.Session, authorID, preview string) {
	recipientID := session.OtherParticipant(authorID)
	if recipientID == "" || s.presence.IsOnline(recipientID) {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyOffline(ctx, recipientID, session.ID, preview); err != nil {
			s.log.Warn("offline notification failed",
				"recipient_id", recipientID,
				"session_id", session.ID,
				"error", err)
		}
	}()
}

// Typing relays the signal to the other room members. A connection that
// never joined the room reaches no one.
func (s *ChatService) Typing(ctx context.Context, conn *runtime.Conn, sessionID uuid.UUID) {
	if !s.rooms.Contains(sessionID, conn.ID) {
		return
	}
	s.rooms.BroadcastOthers(ctx, sessionID, conn.ID, event.PeerTyping{
		IdentityID: conn.Identity.ID,
		UserName:   conn.Identity.Name,
		SessionID:  sessionID,
	})
}

func (s *ChatService) StoppedTyping(ctx context.Context, conn *runtime.Conn, sessionID uuid.UUID) {
	if !s.rooms.Contains(sessionID, conn.ID) {
		return
	}
	s.rooms.BroadcastOthers(ctx, sessionID, conn.ID, event.PeerStoppedTyping{
		IdentityID: conn.Identity.ID,
		SessionID:  sessionID,
	})
}

// MarkRead applies the read-receipt batch. Ids outside the session or
// authored by the caller are skipped silently; only the accepted ids are
// announced to the other room members.
func (s *ChatService) MarkRead(ctx context.Context, conn *runtime.Conn, sessionID uuid.UUID, ids []uuid.UUID) error {
	accepted, err := s.store.UpdateMessagesRead(ctx, sessionID, ids, conn.Identity.ID)
	if err != nil {
		return s.storeErr("marking messages read", err)
	}
	if len(accepted) == 0 {
		return nil
	}

	s.rooms.BroadcastOthers(ctx, sessionID, conn.ID, event.MessagesRead{
		SessionID:  sessionID,
		MessageIDs: accepted,
		ReaderID:   conn.Identity.ID,
	})
	return nil
}

// storeErr passes domain sentinels through untouched and downgrades real
// storage failures to the generic sentinel after logging the detail.
func (s *ChatService) storeErr(op string, err error) error {
	if stderrors.Is(err, errors.ErrSessionNotFound) {
		return errors.ErrSessionNotFound
	}
	s.log.Error("storage failure", "op", op, "error", err)
	return errors.ErrStorage
}
