//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"

	"github.com/dgraph-io/badger/v4"

	"hobbyhub/domain"
	"hobbyhub/errors"
)

type IUserRepository interface {
	Create(user domain.User) error
	FindByID(id string) (domain.User, error)
	FindByUsername(username string) (domain.User, error)
	SetChatBlocked(id string, blocked bool) error
}

// UserRepository is the read side the broker consumes to resolve sender
// identity and the moderation block flag. Account CRUD lives elsewhere;
// Create and SetChatBlocked exist for seeding and the moderation toggle.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create persists the user under "user:id:{id}" with a "user:name:{username}"
// index so anonymous chat can resolve the block flag by display name.
func (u *UserRepository) Create(user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return u.db.Update(func(txn *badger.Txn) error {
		idKey := []byte("user:id:" + user.ID)
		if _, err := txn.Get(idKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		nameKey := []byte("user:name:" + user.Username)
		if _, err := txn.Get(nameKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(idKey, data); err != nil {
			return err
		}
		return txn.Set(nameKey, []byte(user.ID))
	})
}

func (u *UserRepository) FindByID(id string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		return u.loadByID(txn, id, &user)
	})
	return user, err
}

func (u *UserRepository) FindByUsername(username string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("user:name:" + username))
		if err == badger.ErrKeyNotFound {
			return errors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		return u.loadByID(txn, id, &user)
	})
	return user, err
}

// SetChatBlocked flips the moderation block flag on an account.
func (u *UserRepository) SetChatBlocked(id string, blocked bool) error {
	return u.db.Update(func(txn *badger.Txn) error {
		var user domain.User
		if err := u.loadByID(txn, id, &user); err != nil {
			return err
		}
		user.ChatBlocked = blocked
		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return txn.Set([]byte("user:id:"+user.ID), data)
	})
}

func (u *UserRepository) loadByID(txn *badger.Txn, id string, out *domain.User) error {
	item, err := txn.Get([]byte("user:id:" + id))
	if err == badger.ErrKeyNotFound {
		return errors.ErrUserNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}
