package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Topic string

const (
	TopicTransactions Topic = "transactions"
	TopicInvestments  Topic = "investments"
	TopicOperations   Topic = "operations"
	TopicQuestions    Topic = "questions"
	TopicOther        Topic = "other"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// Session is the conversation container between exactly one requester and one
// counterpart. Its status only ever moves forward: open -> active -> closed.
type Session struct {
	ID            uuid.UUID
	RequesterID   string
	CounterpartID string
	Topic         Topic
	Status        Status
	Priority      Priority
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ClosedAt      *time.Time
}

func NewSession(requesterID, counterpartID string, topic Topic, priority Priority) (Session, error) {
	if requesterID == "" || counterpartID == "" {
		return Session{}, fmt.Errorf("session requires both participants")
	}
	if requesterID == counterpartID {
		return Session{}, fmt.Errorf("participants must be distinct identities")
	}
	now := time.Now().UTC()
	return Session{
		ID:            uuid.New(),
		RequesterID:   requesterID,
		CounterpartID: counterpartID,
		Topic:         topic,
		Status:        StatusOpen,
		Priority:      priority,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s Session) HasParticipant(identityID string) bool {
	return identityID == s.RequesterID || identityID == s.CounterpartID
}

// OtherParticipant returns the participant facing identityID,
// or an empty string if identityID is not part of the session.
func (s Session) OtherParticipant(identityID string) string {
	switch identityID {
	case s.RequesterID:
		return s.CounterpartID
	case s.CounterpartID:
		return s.RequesterID
	default:
		return ""
	}
}

// Touch bumps UpdatedAt and applies the first-reply transition: an open
// session becomes active the moment any message is exchanged.
func (s *Session) Touch(at time.Time) {
	s.UpdatedAt = at
	if s.Status == StatusOpen {
		s.Status = StatusActive
	}
}

// Close terminates the session. Closing is terminal; a closed session is
// never reopened.
func (s *Session) Close(at time.Time) error {
	if s.Status == StatusClosed {
		return fmt.Errorf("session %s already closed", s.ID)
	}
	s.Status = StatusClosed
	s.UpdatedAt = at
	s.ClosedAt = &at
	return nil
}
