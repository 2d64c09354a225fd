//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"support-chat/domain"
	"support-chat/errors"

	"github.com/dgraph-io/badger/v4"
)

type IUserRepository interface {
	Create(user User) error
	Get(ctx context.Context, id string) (User, error)
	GetIdentity(ctx context.Context, id string) (domain.Identity, error)
}

// User is the stored account record. Only the identity projection (id, name,
// role, active) is visible to the real-time core.
type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         domain.Role `json:"role"`
	Active       bool        `json:"active"`
	PasswordHash string      `json:"password_hash"`
	CreatedAt    time.Time   `json:"created_at"`
}

func (u User) Identity() domain.Identity {
	return domain.Identity{ID: u.ID, Name: u.Name, Role: u.Role, Active: u.Active}
}

type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewUserRepository(db *badger.DB, log *slog.Logger) UserRepository {
	return UserRepository{db: db, log: log}
}

func userKey(id string) []byte {
	return []byte(fmt.Sprintf("user:%s", id))
}

func (r UserRepository) Create(user User) error {
	bytes, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(user.ID), bytes)
	})
}

func (r UserRepository) Get(_ context.Context, id string) (User, error) {
	var user User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &user)
		})
	})
	if err == badger.ErrKeyNotFound {
		return User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (r UserRepository) GetIdentity(ctx context.Context, id string) (domain.Identity, error) {
	user, err := r.Get(ctx, id)
	if err != nil {
		return domain.Identity{}, err
	}
	return user.Identity(), nil
}
