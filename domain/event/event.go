// Package event defines the outbound real-time events fanned out to
// connected participants. Every variant is JSON-tagged for the wire frame.
package event

import (
	"time"

	"support-chat/domain"

	"github.com/google/uuid"
)

// Event is implemented by every outbound variant. Name is the wire-level
// event name placed in the frame envelope.
type Event interface {
	Name() string
}

// MessagePayload is the fully hydrated message carried by MessageCreated.
type MessagePayload struct {
	ID         uuid.UUID   `json:"id"`
	SessionID  uuid.UUID   `json:"sessionId"`
	AuthorID   string      `json:"authorId"`
	AuthorName string      `json:"authorName"`
	AuthorRole domain.Role `json:"authorRole"`
	Text       string      `json:"text"`
	Kind       domain.Kind `json:"kind"`
	Read       bool        `json:"read"`
	CreatedAt  time.Time   `json:"createdAt"`
}

func HydrateMessage(m domain.Message, author domain.Identity) MessagePayload {
	return MessagePayload{
		ID:         m.ID,
		SessionID:  m.SessionID,
		AuthorID:   m.AuthorID,
		AuthorName: author.Name,
		AuthorRole: author.Role,
		Text:       m.Text,
		Kind:       m.Kind,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt,
	}
}

type PresenceOnline struct {
	IdentityID string      `json:"identityId"`
	UserName   string      `json:"name"`
	Role       domain.Role `json:"role"`
}

func (PresenceOnline) Name() string { return "presence-online" }

type PresenceOffline struct {
	IdentityID string `json:"identityId"`
	UserName   string `json:"name"`
}

func (PresenceOffline) Name() string { return "presence-offline" }

type PeerJoined struct {
	IdentityID string    `json:"identityId"`
	UserName   string    `json:"name"`
	SessionID  uuid.UUID `json:"sessionId"`
}

func (PeerJoined) Name() string { return "peer-joined" }

type PeerLeft struct {
	IdentityID string    `json:"identityId"`
	UserName   string    `json:"name"`
	SessionID  uuid.UUID `json:"sessionId"`
}

func (PeerLeft) Name() string { return "peer-left" }

type JoinConfirmed struct {
	SessionID uuid.UUID `json:"sessionId"`
}

func (JoinConfirmed) Name() string { return "join-confirmed" }

type MessageCreated struct {
	Message MessagePayload `json:"message"`
}

func (MessageCreated) Name() string { return "message-created" }

type PeerTyping struct {
	IdentityID string    `json:"identityId"`
	UserName   string    `json:"name"`
	SessionID  uuid.UUID `json:"sessionId"`
}

func (PeerTyping) Name() string { return "peer-typing" }

type PeerStoppedTyping struct {
	IdentityID string    `json:"identityId"`
	SessionID  uuid.UUID `json:"sessionId"`
}

func (PeerStoppedTyping) Name() string { return "peer-stopped-typing" }

type MessagesRead struct {
	SessionID  uuid.UUID   `json:"sessionId"`
	MessageIDs []uuid.UUID `json:"messageIds"`
	ReaderID   string      `json:"readerId"`
}

func (MessagesRead) Name() string { return "messages-read" }

type Error struct {
	Message string `json:"message"`
}

func (Error) Name() string { return "error" }
