package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/segmentio/ksuid"

	"narrativeiq/pkg/schema"
)

func docPrefix(userID string) []byte     { return []byte("doc:" + userID + ":") }
func docKey(userID, id string) []byte    { return []byte("doc:" + userID + ":" + id) }
func recPrefix(userID string) []byte     { return []byte("rec:" + userID + ":") }
func recKey(userID, recID string) []byte { return []byte("rec:" + userID + ":" + recID) }

// CreateDocument stores a new document owned by the user and returns it.
func (s *Store) CreateDocument(ctx context.Context, userID, title, content string) (schema.Document, error) {
	now := time.Now().UTC()
	doc := schema.Document{
		ID:        ksuid.New().String(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	bin, err := json.Marshal(doc)
	if err != nil {
		return schema.Document{}, err
	}
	err = s.update(func(txn *badger.Txn) error {
		return txn.Set(docKey(userID, doc.ID), bin)
	})
	if err != nil {
		return schema.Document{}, err
	}
	return doc, nil
}

// GetDocument fetches one document. Keys embed the owner id, so a lookup by
// a non-owner comes back ErrNotFound rather than leaking existence.
func (s *Store) GetDocument(ctx context.Context, userID, id string) (schema.Document, error) {
	var doc schema.Document
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(userID, id))
		if err != nil {
			return ErrNotFound
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	return doc, err
}

// ListDocuments returns up to limit of the user's documents, newest first,
// with content replaced by a short preview.
func (s *Store) ListDocuments(ctx context.Context, userID string, limit int) ([]schema.Document, error) {
	var docs []schema.Document
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = docPrefix(userID)
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek past the prefix range end.
		seek := append(append([]byte{}, docPrefix(userID)...), 0xff)
		for it.Seek(seek); it.Valid() && len(docs) < limit; it.Next() {
			var doc schema.Document
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			})
			if err != nil {
				return err
			}
			doc.Preview = preview(doc.Content, 200)
			doc.Content = ""
			docs = append(docs, doc)
		}
		return nil
	})
	return docs, err
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
