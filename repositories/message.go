//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
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
	"github.com/samber/lo"
)

type IMessageRepository interface {
	Store(message domain.Message) error
	GetMessages(sessionID uuid.UUID, cursor *string) ([]domain.Message, *string, error)
	MarkRead(sessionID uuid.UUID, ids []uuid.UUID, readerID string, at time.Time) ([]uuid.UUID, error)
}

// MessageRepository persists messages in BadgerDB. Entries carry a TTL so
// history expires after the retention horizon without any sweeper logic.
type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	retention     time.Duration
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, retention time.Duration, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, retention: retention, limitMessages: limitMessages}
}

type diskMessage struct {
	ID        uuid.UUID   `json:"id"`
	SessionID uuid.UUID   `json:"session_id"`
	AuthorID  string      `json:"author_id"`
	Text      string      `json:"text"`
	Kind      domain.Kind `json:"kind"`
	Read      bool        `json:"read"`
	ReadAt    *time.Time  `json:"read_at,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// messageKey is formatted as "msg:{session_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", m.SessionID, m.CreatedAt.UnixNano(), m.ID))
}

// indexKey maps a message id to its primary key, enabling the read-receipt
// batch update to find messages without a prefix scan.
func indexKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msgid:%s", id))
}

func (m MessageRepository) Store(message domain.Message) error {
	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return err
	}
	key := messageKey(message)
	return m.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, bytes)
		index := badger.NewEntry(indexKey(message.ID), key)
		if m.retention > 0 {
			entry = entry.WithTTL(m.retention)
			index = index.WithTTL(m.retention)
		}
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		return txn.SetEntry(index)
	})
}

// GetMessages retrieves messages for a session using a reverse prefix scan.
// Thanks to the padded timestamp in the key, messages are naturally sorted
// by time; the reverse iteration yields the most recent page first. The
// returned cursor resumes the scan on the next call.
func (m MessageRepository) GetMessages(sessionID uuid.UUID, cursor *string) ([]domain.Message, *string, error) {
	var rawValues [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", sessionID)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(rawValues) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				rawValues = append(rawValues, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var messages []domain.Message
	for _, raw := range rawValues {
		var disk diskMessage
		if err = json.Unmarshal(raw, &disk); err != nil {
			return nil, nil, err
		}
		messages = append(messages, toMessage(disk))
	}
	return messages, &lastKey, nil
}

// MarkRead applies the read-receipt batch. An id is accepted only when the
// message belongs to sessionID and was authored by someone other than
// readerID; everything else is skipped silently. The entry TTL is preserved
// across the rewrite.
func (m MessageRepository) MarkRead(sessionID uuid.UUID, ids []uuid.UUID, readerID string, at time.Time) ([]uuid.UUID, error) {
	var accepted []uuid.UUID
	err := m.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			indexItem, err := txn.Get(indexKey(id))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			primaryKey, err := indexItem.ValueCopy(nil)
			if err != nil {
				return err
			}

			item, err := txn.Get(primaryKey)
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}

			var disk diskMessage
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err = json.Unmarshal(raw, &disk); err != nil {
				return err
			}

			if disk.SessionID != sessionID || disk.AuthorID == readerID {
				continue
			}

			disk.Read = true
			disk.ReadAt = lo.ToPtr(at)
			bytes, err := json.Marshal(disk)
			if err != nil {
				return err
			}

			entry := badger.NewEntry(primaryKey, bytes)
			if exp := item.ExpiresAt(); exp > 0 {
				if remaining := time.Until(time.Unix(int64(exp), 0)); remaining > 0 {
					entry = entry.WithTTL(remaining)
				}
			}
			if err = txn.SetEntry(entry); err != nil {
				return err
			}
			accepted = append(accepted, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// GetMessage loads a single message by id through the secondary index.
func (m MessageRepository) GetMessage(id uuid.UUID) (domain.Message, error) {
	var disk diskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		indexItem, err := txn.Get(indexKey(id))
		if err != nil {
			return err
		}
		primaryKey, err := indexItem.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(primaryKey)
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &disk)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}
	return toMessage(disk), nil
}

func fromMessage(m domain.Message) diskMessage {
	return diskMessage{
		ID:        m.ID,
		SessionID: m.SessionID,
		AuthorID:  m.AuthorID,
		Text:      m.Text,
		Kind:      m.Kind,
		Read:      m.Read,
		ReadAt:    m.ReadAt,
		CreatedAt: m.CreatedAt,
	}
}

func toMessage(d diskMessage) domain.Message {
	return domain.Message{
		ID:        d.ID,
		SessionID: d.SessionID,
		AuthorID:  d.AuthorID,
		Text:      d.Text,
		Kind:      d.Kind,
		Read:      d.Read,
		ReadAt:    d.ReadAt,
		CreatedAt: d.CreatedAt,
	}
}
