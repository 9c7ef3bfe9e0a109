//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"hobbyhub/domain"
	"hobbyhub/errors"
)

type IMessageRepository interface {
	Create(message domain.Message) error
	FindByID(id uuid.UUID) (domain.Message, error)
	ToggleVote(id uuid.UUID, optionIndex int, userID string) (domain.Message, error)
	ListByGroup(group string, cursor *string) ([]domain.Message, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int

	// voteLocks serializes vote toggles per message id so two concurrent
	// toggles never both read the pre-toggle state. Votes on different
	// messages proceed independently.
	mu        sync.Mutex
	voteLocks map[uuid.UUID]*sync.Mutex
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{
		db:            db,
		log:           log,
		limitMessages: limitMessages,
		voteLocks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// Create persists a message in BadgerDB.
// The primary key is formatted as "msg:{group}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
//
// A secondary "msgid:{uuid}" entry points back to the primary key so vote
// toggles can locate a poll without knowing its timestamp.
func (m *MessageRepository) Create(message domain.Message) error {
	if err := message.Validate(); err != nil {
		return err
	}
	key := primaryKey(message)
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(indexKey(message.ID), key)
	})
}

// FindByID resolves the id index and loads the message record.
func (m *MessageRepository) FindByID(id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		return m.load(txn, id, &message)
	})
	return message, err
}

// ToggleVote flips userID's vote on the given option and persists the mutated
// message. The whole read-toggle-write cycle runs under the message's lock.
func (m *MessageRepository) ToggleVote(id uuid.UUID, optionIndex int, userID string) (domain.Message, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	var message domain.Message
	err := m.db.Update(func(txn *badger.Txn) error {
		if err := m.load(txn, id, &message); err != nil {
			return err
		}
		if _, err := message.ToggleVote(optionIndex, userID); err != nil {
			return err
		}
		bytes, err := json.Marshal(message)
		if err != nil {
			return err
		}
		return txn.Set(primaryKey(message), bytes)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// ListByGroup retrieves messages for a group using a reverse prefix scan, most
// recent first. Thanks to the padded timestamp in the key, messages are
// naturally sorted by time. The returned cursor resumes the scan on the next
// call; collection stops once the configured limitMessages is reached.
func (m *MessageRepository) ListByGroup(group string, cursor *string) ([]domain.Message, *string, error) {
	var byteMessages [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", group)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte(nil), value...))
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

	messages := make([]domain.Message, 0, len(byteMessages))
	for _, b := range byteMessages {
		var message domain.Message
		if err = json.Unmarshal(b, &message); err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	return messages, &lastKey, nil
}

func (m *MessageRepository) load(txn *badger.Txn, id uuid.UUID, out *domain.Message) error {
	item, err := txn.Get(indexKey(id))
	if err == badger.ErrKeyNotFound {
		return errors.ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	var key []byte
	if err := item.Value(func(val []byte) error {
		key = append([]byte(nil), val...)
		return nil
	}); err != nil {
		return err
	}

	item, err = txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return errors.ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func (m *MessageRepository) lockFor(id uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.voteLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.voteLocks[id] = lock
	}
	return lock
}

func primaryKey(message domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		message.Group,
		message.CreatedAt.UnixNano(),
		message.ID,
	))
}

func indexKey(id uuid.UUID) []byte {
	return []byte("msgid:" + id.String())
}
