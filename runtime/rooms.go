package runtime

import (
	"context"
	"sync"

	"support-chat/domain/event"

	"github.com/google/uuid"
)

// Rooms is the explicit sessionID -> connection index backing a session's
// broadcast channel. Authorization happens upstream; this structure only
// tracks membership. A room vanishes when its last member leaves.
type Rooms struct {
	mu      sync.RWMutex
	members map[uuid.UUID]map[uuid.UUID]*Conn
}

func NewRooms() *Rooms {
	return &Rooms{members: make(map[uuid.UUID]map[uuid.UUID]*Conn)}
}

func (r *Rooms) Add(sessionID uuid.UUID, conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.members[sessionID]
	if !ok {
		room = make(map[uuid.UUID]*Conn)
		r.members[sessionID] = room
	}
	room[conn.ID] = conn
}

// Remove is idempotent; removing a non-member is a no-op.
func (r *Rooms) Remove(sessionID uuid.UUID, connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(sessionID, connID)
}

func (r *Rooms) removeLocked(sessionID uuid.UUID, connID uuid.UUID) {
	room, ok := r.members[sessionID]
	if !ok {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.members, sessionID)
	}
}

// RemoveConn clears the connection from every room it joined and returns
// the affected session ids. Called on disconnect.
func (r *Rooms) RemoveConn(connID uuid.UUID) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sessions []uuid.UUID
	for sessionID, room := range r.members {
		if _, ok := room[connID]; ok {
			sessions = append(sessions, sessionID)
			r.removeLocked(sessionID, connID)
		}
	}
	return sessions
}

func (r *Rooms) Contains(sessionID uuid.UUID, connID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.members[sessionID]
	if !ok {
		return false
	}
	_, ok = room[connID]
	return ok
}

// Members returns a snapshot of the room's connections.
func (r *Rooms) Members(sessionID uuid.UUID) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.members[sessionID]
	if !ok {
		return nil
	}
	conns := make([]*Conn, 0, len(room))
	for _, conn := range room {
		conns = append(conns, conn)
	}
	return conns
}

func (r *Rooms) Size(sessionID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[sessionID])
}

// Broadcast delivers an event to every member of the room, sender included.
func (r *Rooms) Broadcast(ctx context.Context, sessionID uuid.UUID, e event.Event) {
	for _, conn := range r.Members(sessionID) {
		_ = conn.Consume(ctx, e)
	}
}

// BroadcastOthers delivers an event to every member except the given
// connection.
func (r *Rooms) BroadcastOthers(ctx context.Context, sessionID uuid.UUID, exceptConnID uuid.UUID, e event.Event) {
	for _, conn := range r.Members(sessionID) {
		if conn.ID == exceptConnID {
			continue
		}
		_ = conn.Consume(ctx, e)
	}
}
