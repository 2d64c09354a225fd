package runtime

import (
	"context"
	"sync"
	"time"

	"support-chat/domain"
	"support-chat/domain/event"

	"github.com/google/uuid"
)

// Entry is the presence record for one identity.
type Entry struct {
	ConnID      uuid.UUID
	Identity    domain.Identity
	Sink        *Conn
	ConnectedAt time.Time
}

// Presence is the single source of truth for "who is online". At most one
// entry exists per identity: a new connection for the same identity
// overwrites the previous one (last-connection-wins).
type Presence struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewPresence() *Presence {
	return &Presence{entries: make(map[string]Entry)}
}

// Register replaces any prior entry for the connection's identity.
func (p *Presence) Register(conn *Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[conn.Identity.ID] = Entry{
		ConnID:      conn.ID,
		Identity:    conn.Identity,
		Sink:        conn,
		ConnectedAt: conn.ConnectedAt,
	}
}

// Unregister removes the entry only if it still refers to the given
// connection. A stale disconnect from an overwritten connection must not
// evict the newer one. Reports whether an entry was removed.
func (p *Presence) Unregister(identityID string, connID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[identityID]
	if !ok || entry.ConnID != connID {
		return false
	}
	delete(p.entries, identityID)
	return true
}

func (p *Presence) IsOnline(identityID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.entries[identityID]
	return ok
}

// Snapshot returns a copy of the current entries.
func (p *Presence) Snapshot() []Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries := make([]Entry, 0, len(p.entries))
	for _, entry := range p.entries {
		entries = append(entries, entry)
	}
	return entries
}

func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Broadcast delivers an event to every connected identity, used for the
// global presence-online / presence-offline announcements.
func (p *Presence) Broadcast(ctx context.Context, e event.Event) {
	for _, entry := range p.Snapshot() {
		_ = entry.Sink.Consume(ctx, e)
	}
}
