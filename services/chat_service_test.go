package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"support-chat/domain"
	"support-chat/domain/event"
	"support-chat/errors"
	"support-chat/mocks"
	"support-chat/moderation"
	"support-chat/observability"
	"support-chat/runtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const maxTextLen = 1000

func newTestService(t *testing.T) (*ChatService, *mocks.MockSessionStore, *mocks.MockNotifier, *runtime.Presence, *runtime.Rooms) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	presence := runtime.NewPresence()
	rooms := runtime.NewRooms()
	service := NewChatService(slog.Default(), store, presence, rooms, notifier,
		nil, nil, observability.NewStats(), maxTextLen)
	return service, store, notifier, presence, rooms
}

func testConn(id, name string, role domain.Role) *runtime.Conn {
	return runtime.NewConn(domain.Identity{ID: id, Name: name, Role: role, Active: true}, 16)
}

func nextEvent(t *testing.T, conn *runtime.Conn) event.Event {
	t.Helper()
	select {
	case e := <-conn.Events():
		return e
	case <-time.After(time.Second):
		t.Fatal("expected an event, got none")
		return nil
	}
}

func noEvent(t *testing.T, conn *runtime.Conn) {
	t.Helper()
	select {
	case e := <-conn.Events():
		t.Fatalf("unexpected event: %s", e.Name())
	default:
	}
}

func TestChatService_Connect_BroadcastsPresence(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service, _, _, _, _ := newTestService(t)

	alice := testConn("u1", "Alice", domain.RoleRequester)
	service.Connect(ctx, alice)

	// The registry broadcasts to everyone connected, the newcomer included
	online, ok := nextEvent(t, alice).(event.PresenceOnline)
	req.True(ok)
	req.Equal("u1", online.IdentityID)

	bruno := testConn("u2", "Bruno", domain.RoleCounterpart)
	service.Connect(ctx, bruno)

	online, ok = nextEvent(t, alice).(event.PresenceOnline)
	req.True(ok)
	req.Equal("u2", online.IdentityID)
	req.Equal("Bruno", online.UserName)
}

func TestChatService_Disconnect_StaleGuard(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service, _, _, presence, _ := newTestService(t)

	observer := testConn("u9", "Watcher", domain.RoleAdministrator)
	service.Connect(ctx, observer)

	// Given the same identity connecting twice
	first := testConn("u1", "Alice", domain.RoleRequester)
	second := testConn("u1", "Alice", domain.RoleRequester)
	service.Connect(ctx, first)
	service.Connect(ctx, second)
	nextEvent(t, observer) // online observer
	nextEvent(t, observer) // online first
	nextEvent(t, observer) // online second

	// When the overwritten connection disconnects late
	service.Disconnect(ctx, first)

	// Then no offline announcement goes out and the identity stays online
	noEvent(t, observer)
	req.True(presence.IsOnline("u1"))

	// And the live connection's disconnect announces the departure
	service.Disconnect(ctx, second)
	offline, ok := nextEvent(t, observer).(event.PresenceOffline)
	req.True(ok)
	req.Equal("u1", offline.IdentityID)
	req.False(presence.IsOnline("u1"))
}

func TestChatService_Join(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service, store, _, _, _ := newTestService(t)

	session, err := domain.NewSession("u1", "u2", domain.TopicQuestions, domain.PriorityMedium)
	req.NoError(err)

	alice := testConn("u1", "Alice", domain.RoleRequester)
	bruno := testConn("u2", "Bruno", domain.RoleCounterpart)
	intruder := testConn("u3", "Mallory", domain.RoleRequester)

	store.EXPECT().GetSession(gomock.Any(), session.ID).Return(session, nil).Times(3)

	// A participant is admitted and confirmed on its own sink
	req.NoError(service.Join(ctx, alice, session.ID))
	confirmed, ok := nextEvent(t, alice).(event.JoinConfirmed)
	req.True(ok)
	req.Equal(session.ID, confirmed.SessionID)

	// Existing members learn about the newcomer
	req.NoError(service.Join(ctx, bruno, session.ID))
	joined, ok := nextEvent(t, alice).(event.PeerJoined)
	req.True(ok)
	req.Equal("u2", joined.IdentityID)

	// A non-participant is rejected and nobody hears about it
	err = service.Join(ctx, intruder, session.ID)
	req.ErrorIs(err, errors.ErrAccessDenied)
	noEvent(t, alice)
	noEvent(t, intruder)
}

func TestChatService_Join_SessionNotFound(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service, store, _, _, _ := newTestService(t)

	alice := testConn("u1", "Alice", domain.RoleRequester)
	missing := uuid.New()
	store.EXPECT().GetSession(gomock.Any(), missing).Return(domain.Session{}, errors.ErrSessionNotFound)

	err := service.Join(ctx, alice, missing)
	req.ErrorIs(err, errors.ErrSessionNotFound)
}

func TestChatService_Send_Pipeline(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service, store, notifier, _, rooms := newTestService(t)

	session, err := domain.NewSession("u1", "u2", domain.TopicTransactions, domain.PriorityHigh)
	req.NoError(err)

	// Given a sender in the room whose counterpart is offline
	alice := testConn("u1", "Alice", domain.RoleRequester)
	service.Connect(ctx, alice)
	nextEvent(t, alice)
	rooms.Add(session.ID, alice)

	store.EXPECT().GetSession(gomock.Any(), session.ID).Return(session, nil)
	store.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m domain.Message) (domain.Message, error) {
			req.Equal(session.ID, m.SessionID)
			req.Equal("u1", m.AuthorID)
			req.Equal("hello, my transfer failed", m.Text)
			return m, nil
		})

	var saved domain.Session
	store.EXPECT().SaveSession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s domain.Session) error {
			saved = s
			return nil
		})

	notified := make(chan struct{})
	notifier.EXPECT().
		NotifyOffline(gomock.Any(), "u2", session.ID, "hello, my transfer failed").
		DoAndReturn(func(context.Context, string, uuid.UUID, string) error {
			close(notified)
			return nil
		})

	// When the message is sent
	req.NoError(service.Send(ctx, alice, session.ID, "  hello, my transfer failed  "))

	// Then the first reply flipped the session to active
	req.Equal(domain.StatusActive, saved.Status)

	// And the sender receives the broadcast too
	created, ok := nextEvent(t, alice).(event.MessageCreated)
	req.True(ok)
	req.Equal("hello, my transfer failed", created.Message.Text)
	req.Equal("Alice", created.Message.AuthorName)

	// And the offline counterpart was notified exactly once
	select {
	case <-notified:
	case <-time.After(time.Second):
		req.Fail("offline notification never fired")
	}
}

func TestChatService_Send_SkipsNotifyWhenRecipientOnline(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service, store, _, _, _ := newTestService(t)

	session, err := domain.NewSession("u1", "u2", domain.TopicQuestions, domain.PriorityLow)
	req.NoError(err)

	alice := testConn("u1", "Alice", domain.RoleRequester)
	bruno := testConn("u2", "Bruno", domain.RoleCounterpart)
	service.Connect(ctx, alice)
	service.Connect(ctx, bruno)

	store.EXPECT().GetSession(gomock.Any(), session.ID).Return(session, nil)
	store.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m domain.Message) (domain.Message, error) {
			return m, nil
		})
	store.EXPECT().SaveSession(gomock.Any(), gomock.Any()).Return(nil)

	// No NotifyOffline expectation: a call would fail the controller
	req.NoError(service.Send(ctx, alice, session.ID, "are you there?"))
}

func TestChatService_Send_NotifyFailureIsSwallowed(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service, store, notifier, _, _ := newTestService(t)

	session, err := domain.NewSession("u1", "u2", domain.TopicOther, domain.PriorityMedium)
	req.NoError(err)

	alice := testConn("u1", "Alice", domain.RoleRequester)
	service.Connect(ctx, alice)

	store.EXPECT().GetSession(gomock.Any(), session.ID).Return(session, nil)
	store.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m domain.Message) (domain.Message, error) {
			return m, nil
		})
	store.EXPECT().SaveSession(gomock.Any(), gomock.Any()).Return(nil)

	notified := make(chan struct{})
	notifier.EXPECT().
		NotifyOffline(gomock.Any(), "u2", session.ID, gomock.Any()).
		DoAndReturn(func(context.Context, string, uuid.UUID, string) error {
			close(notified)
			return fmt.Errorf("provider unavailable")
		})

	// The sender never sees the notification failure
	req.NoError(service.Send(ctx, alice, session.ID, "hello?"))

	select {
	case <-notified:
	case <-time.After(time.Second):
		req.Fail("offline notification never fired")
	}
}

func TestChatService_Send_Validation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service, store, _, _, _ := newTestService(t)

	session, err := domain.NewSession("u1", "u2", domain.TopicQuestions, domain.PriorityMedium)
	req.NoError(err)
	alice := testConn("u1", "Alice", domain.RoleRequester)
	intruder := testConn("u3", "Mallory", domain.RoleRequester)

	// Blank text is rejected before touching storage
	req.ErrorIs(service.Send(ctx, alice, session.ID, "   "), errors.ErrInvalidPayload)

	// Oversized text too
	long := strings.Repeat("x", maxTextLen+1)
	req.ErrorIs(service.Send(ctx, alice, session.ID, long), errors.ErrInvalidPayload)

	// A non-participant is denied
	store.EXPECT().GetSession(gomock.Any(), session.ID).Return(session, nil)
	req.ErrorIs(service.Send(ctx, intruder, session.ID, "let me in"), errors.ErrAccessDenied)

	// An unknown session surfaces as such
	store.EXPECT().GetSession(gomock.Any(), session.ID).Return(domain.Session{}, errors.ErrSessionNotFound)
	req.ErrorIs(service.Send(ctx, alice, session.ID, "hello"), errors.ErrSessionNotFound)

	// A real storage failure is downgraded to the generic sentinel
	store.EXPECT().GetSession(gomock.Any(), session.ID).Return(domain.Session{}, fmt.Errorf("disk on fire"))
	req.ErrorIs(service.Send(ctx, alice, session.ID, "hello"), errors.ErrStorage)
}

func TestChatService_Send_PersistFailureStopsPipeline(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service, store, _, _, rooms := newTestService(t)

	session, err := domain.NewSession("u1", "u2", domain.TopicQuestions, domain.PriorityMedium)
	req.NoError(err)

	alice := testConn("u1", "Alice", domain.RoleRequester)
	rooms.Add(session.ID, alice)

	store.EXPECT().GetSession(gomock.Any(), session.ID).Return(session, nil)
	store.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).
		Return(domain.Message{}, fmt.Errorf("disk on fire"))

	// When persistence fails, nothing is broadcast and the session is untouched
	req.ErrorIs(service.Send(ctx, alice, session.ID, "hello"), errors.ErrStorage)
	noEvent(t, alice)
}

func TestChatService_Send_CensorsText(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)

	mod, err := moderation.NewModerator([]string{"idiot"}, '*')
	req.NoError(err)

	presence := runtime.NewPresence()
	rooms := runtime.NewRooms()
	service := NewChatService(slog.Default(), store, presence, rooms, notifier,
		mod, nil, observability.NewStats(), maxTextLen)

	session, err := domain.NewSession("u1", "u2", domain.TopicQuestions, domain.PriorityMedium)
	req.NoError(err)

	alice := testConn("u1", "Alice", domain.RoleRequester)
	service.Connect(ctx, alice)

	store.EXPECT().GetSession(gomock.Any(), session.ID).Return(session, nil)
	store.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m domain.Message) (domain.Message, error) {
			// The masked text is what gets persisted
			req.Equal("you *****", m.Text)
			return m, nil
		})
	store.EXPECT().SaveSession(gomock.Any(), gomock.Any()).Return(nil)

	notified := make(chan struct{})
	notifier.EXPECT().
		NotifyOffline(gomock.Any(), "u2", session.ID, "you *****").
		DoAndReturn(func(context.Context, string, uuid.UUID, string) error {
			close(notified)
			return nil
		})

	req.NoError(service.Send(ctx, alice, session.ID, "you idiot"))

	select {
	case <-notified:
	case <-time.After(time.Second):
		req.Fail("offline notification never fired")
	}
}

func TestChatService_Typing_RequiresMembership(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service, _, _, _, rooms := newTestService(t)

	sessionID := uuid.New()
	alice := testConn("u1", "Alice", domain.RoleRequester)
	bruno := testConn("u2", "Bruno", domain.RoleCounterpart)
	rooms.Add(sessionID, bruno)

	// A connection that never joined reaches no one
	service.Typing(ctx, alice, sessionID)
	noEvent(t, bruno)

	// A member's signal reaches the others but not itself
	rooms.Add(sessionID, alice)
	service.Typing(ctx, alice, sessionID)
	typing, ok := nextEvent(t, bruno).(event.PeerTyping)
	req.True(ok)
	req.Equal("u1", typing.IdentityID)
	noEvent(t, alice)

	service.StoppedTyping(ctx, alice, sessionID)
	stopped, ok := nextEvent(t, bruno).(event.PeerStoppedTyping)
	req.True(ok)
	req.Equal("u1", stopped.IdentityID)
}

func TestChatService_MarkRead(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service, store, _, _, rooms := newTestService(t)

	sessionID := uuid.New()
	alice := testConn("u1", "Alice", domain.RoleRequester)
	bruno := testConn("u2", "Bruno", domain.RoleCounterpart)
	rooms.Add(sessionID, alice)
	rooms.Add(sessionID, bruno)

	requested := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	accepted := requested[:2]

	store.EXPECT().
		UpdateMessagesRead(gomock.Any(), sessionID, requested, "u2").
		Return(accepted, nil)

	// When the counterpart acknowledges the batch
	req.NoError(service.MarkRead(ctx, bruno, sessionID, requested))

	// Then only the other member hears about the accepted subset
	read, ok := nextEvent(t, alice).(event.MessagesRead)
	req.True(ok)
	req.Equal(accepted, read.MessageIDs)
	req.Equal("u2", read.ReaderID)
	noEvent(t, bruno)
}

func TestChatService_MarkRead_EmptyBatchIsSilent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service, store, _, _, rooms := newTestService(t)

	sessionID := uuid.New()
	alice := testConn("u1", "Alice", domain.RoleRequester)
	bruno := testConn("u2", "Bruno", domain.RoleCounterpart)
	rooms.Add(sessionID, alice)
	rooms.Add(sessionID, bruno)

	ids := []uuid.UUID{uuid.New()}
	store.EXPECT().
		UpdateMessagesRead(gomock.Any(), sessionID, ids, "u2").
		Return(nil, nil)

	// Nothing accepted, nothing announced
	req.NoError(service.MarkRead(ctx, bruno, sessionID, ids))
	noEvent(t, alice)
}

func TestChatService_Disconnect_AnnouncesRoomDeparture(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	service, _, _, _, rooms := newTestService(t)

	sessionID := uuid.New()
	alice := testConn("u1", "Alice", domain.RoleRequester)
	bruno := testConn("u2", "Bruno", domain.RoleCounterpart)
	service.Connect(ctx, alice)
	service.Connect(ctx, bruno)
	nextEvent(t, bruno) // own presence-online
	rooms.Add(sessionID, alice)
	rooms.Add(sessionID, bruno)

	service.Disconnect(ctx, alice)

	left, ok := nextEvent(t, bruno).(event.PeerLeft)
	req.True(ok)
	req.Equal("u1", left.IdentityID)
	req.Equal(sessionID, left.SessionID)

	offline, ok := nextEvent(t, bruno).(event.PresenceOffline)
	req.True(ok)
	req.Equal("u1", offline.IdentityID)

	req.False(rooms.Contains(sessionID, alice.ID))
}
