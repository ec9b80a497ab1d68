package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/segmentio/ksuid"

	"narrativeiq/pkg/schema"
)

// AppendRecord writes one audit entry. Records are append-only: nothing in
// the store ever rewrites an existing record key.
func (s *Store) AppendRecord(ctx context.Context, rec schema.Record) (schema.Record, error) {
	if rec.ID == "" {
		rec.ID = ksuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	bin, err := json.Marshal(rec)
	if err != nil {
		return schema.Record{}, err
	}
	err = s.update(func(txn *badger.Txn) error {
		return txn.Set(recKey(rec.UserID, rec.ID), bin)
	})
	if err != nil {
		return schema.Record{}, err
	}
	return rec, nil
}

// ListRecords returns up to limit of the user's audit entries, newest first.
// ksuid ids sort chronologically, so reverse key order is reverse time order.
func (s *Store) ListRecords(ctx context.Context, userID string, limit int) ([]schema.Record, error) {
	var recs []schema.Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recPrefix(userID)
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, recPrefix(userID)...), 0xff)
		for it.Seek(seek); it.Valid() && len(recs) < limit; it.Next() {
			var rec schema.Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	return recs, err
}
