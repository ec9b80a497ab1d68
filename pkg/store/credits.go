package store

import (
	"context"

	"github.com/dgraph-io/badger/v4"
)

// Balance returns the user's current credit balance.
func (s *Store) Balance(ctx context.Context, userID string) (int, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Credits, nil
}

// TryDebit atomically decrements the balance by amount if and only if the
// balance covers it. The check and the write happen in one serializable
// transaction, so two concurrent debits against the same user cannot both
// succeed on a balance that covers only one.
func (s *Store) TryDebit(ctx context.Context, userID string, amount int) (bool, error) {
	debited := false
	err := s.update(func(txn *badger.Txn) error {
		user, err := getUser(txn, userID)
		if err != nil {
			return err
		}
		if user.Credits < amount {
			debited = false
			return nil
		}
		user.Credits -= amount
		debited = true
		return putUser(txn, user)
	})
	if err != nil {
		return false, err
	}
	return debited, nil
}

// Credit unconditionally increments the balance and returns the new value.
func (s *Store) Credit(ctx context.Context, userID string, amount int) (int, error) {
	balance := 0
	err := s.update(func(txn *badger.Txn) error {
		user, err := getUser(txn, userID)
		if err != nil {
			return err
		}
		user.Credits += amount
		balance = user.Credits
		return putUser(txn, user)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}
