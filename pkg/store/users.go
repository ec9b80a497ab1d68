package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/segmentio/ksuid"

	"narrativeiq/pkg/schema"
)

func userKey(id string) []byte     { return []byte("user:" + id) }
func emailKey(email string) []byte { return []byte("email:" + strings.ToLower(email)) }

// CreateUser registers a new account with the starting credit balance.
// The email index is written in the same transaction, so duplicate
// registrations lose with ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string, credits int) (schema.User, error) {
	user := schema.User{
		ID:           ksuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         name,
		PasswordHash: passwordHash,
		Credits:      credits,
		CreatedAt:    time.Now().UTC(),
	}

	err := s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(user.Email)); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(emailKey(user.Email), []byte(user.ID)); err != nil {
			return err
		}
		return putUser(txn, user)
	})
	if err != nil {
		return schema.User{}, err
	}
	return user, nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (schema.User, error) {
	var user schema.User
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	return user, err
}

// GetUserByEmail resolves the email index and fetches the user.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (schema.User, error) {
	var user schema.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(strings.TrimSpace(email)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			user, err = getUser(txn, string(val))
			return err
		})
	})
	return user, err
}

func getUser(txn *badger.Txn, id string) (schema.User, error) {
	var user schema.User
	item, err := txn.Get(userKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return user, ErrNotFound
	}
	if err != nil {
		return user, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &user)
	})
	return user, err
}

func putUser(txn *badger.Txn, user schema.User) error {
	bin, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return txn.Set(userKey(user.ID), bin)
}
