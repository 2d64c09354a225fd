//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_session_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"support-chat/domain"
	"support-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type ISessionRepository interface {
	Create(session domain.Session) error
	Get(id uuid.UUID) (domain.Session, error)
	Save(session domain.Session) error
}

type SessionRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewSessionRepository(db *badger.DB, log *slog.Logger) SessionRepository {
	return SessionRepository{db: db, log: log}
}

type diskSession struct {
	ID            uuid.UUID       `json:"id"`
	RequesterID   string          `json:"requester_id"`
	CounterpartID string          `json:"counterpart_id"`
	Topic         domain.Topic    `json:"topic"`
	Status        domain.Status   `json:"status"`
	Priority      domain.Priority `json:"priority"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	ClosedAt      *time.Time      `json:"closed_at,omitempty"`
}

func sessionKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("session:%s", id))
}

func (r SessionRepository) Create(session domain.Session) error {
	return r.put(session)
}

// Save overwrites the stored session. The status machine is enforced by the
// domain before anything reaches this layer.
func (r SessionRepository) Save(session domain.Session) error {
	return r.put(session)
}

func (r SessionRepository) put(session domain.Session) error {
	bytes, err := json.Marshal(fromSession(session))
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(session.ID), bytes)
	})
}

func (r SessionRepository) Get(id uuid.UUID) (domain.Session, error) {
	var disk diskSession
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &disk)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Session{}, errors.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	return toSession(disk), nil
}

func fromSession(s domain.Session) diskSession {
	return diskSession{
		ID:            s.ID,
		RequesterID:   s.RequesterID,
		CounterpartID: s.CounterpartID,
		Topic:         s.Topic,
		Status:        s.Status,
		Priority:      s.Priority,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		ClosedAt:      s.ClosedAt,
	}
}

func toSession(d diskSession) domain.Session {
	return domain.Session{
		ID:            d.ID,
		RequesterID:   d.RequesterID,
		CounterpartID: d.CounterpartID,
		Topic:         d.Topic,
		Status:        d.Status,
		Priority:      d.Priority,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		ClosedAt:      d.ClosedAt,
	}
}
