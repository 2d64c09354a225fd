// Package runtime owns the in-memory state of the real-time core: live
// connections, the presence registry and room membership. Nothing in this
// package is persisted; the whole state is rebuilt from zero on restart.
package runtime

import (
	"context"
	"sync/atomic"
	"time"

	"support-chat/domain"
	"support-chat/domain/event"

	"github.com/google/uuid"
)

// Conn represents one authenticated live connection. The bound identity is
// immutable for the connection's lifetime. Conn implements contract.EventSink:
// events are buffered in a channel drained by the transport's writer.
type Conn struct {
	ID          uuid.UUID
	Identity    domain.Identity
	ConnectedAt time.Time

	events  chan event.Event
	dropped atomic.Uint64
}

func NewConn(identity domain.Identity, bufferSize int) *Conn {
	return &Conn{
		ID:          uuid.New(),
		Identity:    identity,
		ConnectedAt: time.Now().UTC(),
		events:      make(chan event.Event, bufferSize),
	}
}

// Consume is called by the fanout paths. Delivery is best effort: when the
// buffer is full the event is dropped rather than stalling the broadcaster.
func (c *Conn) Consume(ctx context.Context, e event.Event) error {
	select {
	case c.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		c.dropped.Add(1)
		return nil
	}
}

// Events is drained by the transport writer goroutine.
func (c *Conn) Events() <-chan event.Event {
	return c.events
}

// Dropped reports how many events were lost to a full buffer.
func (c *Conn) Dropped() uint64 {
	return c.dropped.Load()
}
