package runtime

import (
	"context"
	"testing"

	"support-chat/domain"
	"support-chat/domain/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRooms_AddRemove(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms()
	sessionID := uuid.New()
	conn := NewConn(identity("Alice", domain.RoleRequester), 8)

	// Given an empty room
	req.Zero(rooms.Size(sessionID))
	req.False(rooms.Contains(sessionID, conn.ID))

	// When the connection joins
	rooms.Add(sessionID, conn)
	req.True(rooms.Contains(sessionID, conn.ID))
	req.Equal(1, rooms.Size(sessionID))

	// Then removing the last member garbage-collects the room
	rooms.Remove(sessionID, conn.ID)
	req.Zero(rooms.Size(sessionID))
	req.Nil(rooms.Members(sessionID))
}

func TestRooms_RemoveIsIdempotent(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms()
	sessionID := uuid.New()
	conn := NewConn(identity("Alice", domain.RoleRequester), 8)

	rooms.Remove(sessionID, conn.ID)
	req.Zero(rooms.Size(sessionID))
}

func TestRooms_RemoveConn_ClearsEveryMembership(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms()
	session1 := uuid.New()
	session2 := uuid.New()
	conn := NewConn(identity("Alice", domain.RoleRequester), 8)
	other := NewConn(identity("Bruno", domain.RoleCounterpart), 8)

	rooms.Add(session1, conn)
	rooms.Add(session2, conn)
	rooms.Add(session2, other)

	// When the connection disconnects
	affected := rooms.RemoveConn(conn.ID)

	// Then both memberships are cleared
	req.ElementsMatch([]uuid.UUID{session1, session2}, affected)
	req.Zero(rooms.Size(session1))
	req.Equal(1, rooms.Size(session2))
}

func TestRooms_BroadcastOthers(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	rooms := NewRooms()
	sessionID := uuid.New()
	sender := NewConn(identity("Alice", domain.RoleRequester), 8)
	receiver := NewConn(identity("Bruno", domain.RoleCounterpart), 8)

	rooms.Add(sessionID, sender)
	rooms.Add(sessionID, receiver)

	// When broadcasting to others
	rooms.BroadcastOthers(ctx, sessionID, sender.ID, event.PeerTyping{
		IdentityID: sender.Identity.ID,
		UserName:   sender.Identity.Name,
		SessionID:  sessionID,
	})

	// Then only the receiver got the event
	select {
	case e := <-receiver.Events():
		req.Equal("peer-typing", e.Name())
	default:
		req.Fail("receiver should have one event")
	}
	select {
	case <-sender.Events():
		req.Fail("sender must not receive its own signal")
	default:
	}
}

func TestConn_ConsumeDropsWhenFull(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	conn := NewConn(identity("Alice", domain.RoleRequester), 1)

	req.NoError(conn.Consume(ctx, event.JoinConfirmed{SessionID: uuid.New()}))
	req.NoError(conn.Consume(ctx, event.JoinConfirmed{SessionID: uuid.New()}))

	req.Equal(uint64(1), conn.Dropped())
}
