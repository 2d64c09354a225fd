//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"support-chat/domain"
	"support-chat/domain/event"

	"github.com/google/uuid"
)

// EventSink receives outbound events for one consumer. Implementations must
// not block: a slow consumer loses events rather than stalling the fanout.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IdentityVerifier resolves a bearer credential into a verified identity.
// An empty credential fails with errors.ErrAuthMissing, anything else that
// cannot be resolved to an active identity with errors.ErrAuthInvalid.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (domain.Identity, error)
}

// SessionStore is the persistence surface the core depends on.
type SessionStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (domain.Session, error)
	SaveSession(ctx context.Context, session domain.Session) error
	CreateMessage(ctx context.Context, message domain.Message) (domain.Message, error)
	// UpdateMessagesRead flips the read flag on every message of the session
	// authored by someone other than readerID, returning the accepted ids.
	UpdateMessagesRead(ctx context.Context, sessionID uuid.UUID, ids []uuid.UUID, readerID string) ([]uuid.UUID, error)
}

// Notifier reaches a participant who has no live connection. Best effort:
// callers log failures and move on.
type Notifier interface {
	NotifyOffline(ctx context.Context, recipientID string, sessionID uuid.UUID, preview string) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual naming
// in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
