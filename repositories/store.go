package repositories

import (
	"context"
	"time"

	"support-chat/domain"

	"github.com/google/uuid"
)

// Store bundles the session and message repositories behind the single
// persistence surface the real-time core consumes.
type Store struct {
	Sessions SessionRepository
	Messages MessageRepository
}

func NewStore(sessions SessionRepository, messages MessageRepository) Store {
	return Store{Sessions: sessions, Messages: messages}
}

func (s Store) GetSession(_ context.Context, id uuid.UUID) (domain.Session, error) {
	return s.Sessions.Get(id)
}

func (s Store) SaveSession(_ context.Context, session domain.Session) error {
	return s.Sessions.Save(session)
}

func (s Store) CreateMessage(_ context.Context, message domain.Message) (domain.Message, error) {
	if err := s.Messages.Store(message); err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

func (s Store) UpdateMessagesRead(_ context.Context, sessionID uuid.UUID, ids []uuid.UUID, readerID string) ([]uuid.UUID, error) {
	return s.Messages.MarkRead(sessionID, ids, readerID, time.Now().UTC())
}
