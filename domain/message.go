// Package domain contains core concepts of the support-chat system.
// This file defines Message entities and related rules.
// Messages are immutable once created except for the read/read-at pair.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindFile   Kind = "file"
	KindSystem Kind = "system"
)

type Message struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	AuthorID  string
	Text      string
	Kind      Kind
	Read      bool
	ReadAt    *time.Time
	CreatedAt time.Time
}

func NewTextMessage(sessionID uuid.UUID, authorID, text string) Message {
	return Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		AuthorID:  authorID,
		Text:      text,
		Kind:      KindText,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}
}
