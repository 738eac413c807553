// Package store persists received broker payloads in a local bbolt
// database so downstream processing can pick them up independently of
// the fetch schedule.
package store

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// storeDirPerm is the permission mode for the inbox directory.
	storeDirPerm = fs.FileMode(0o700)

	// storeFilePerm is the permission mode for the database file.
	storeFilePerm = fs.FileMode(0o600)

	// storeOpenTimeout is the maximum time to wait for the bolt
	// database lock.
	storeOpenTimeout = 5 * time.Second
)

var (
	messagesBucket = []byte("messages")
	eventsBucket   = []byte("events")
)

// Record is one received payload plus bookkeeping.
type Record struct {
	ID         string          `json:"id"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

// key orders records by receive time, with the message id breaking ties.
func (r Record) key() []byte {
	return []byte(r.ReceivedAt.UTC().Format(time.RFC3339Nano) + "|" + r.ID)
}

// Store wraps a bbolt database holding the message and event inboxes.
type Store struct {
	db *bolt.DB
}

// Open opens the inbox database at the given path, creating the file
// and its directory if they do not exist. Both buckets are created on
// open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), storeDirPerm); err != nil {
		return nil, fmt.Errorf("creating inbox directory: %w", err)
	}

	db, err := bolt.Open(path, storeFilePerm, &bolt.Options{Timeout: storeOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening inbox db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(messagesBucket); err != nil {
			return err
		}

		_, err := tx.CreateBucketIfNotExists(eventsBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing inbox db: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveMessage persists a record in the message inbox.
func (s *Store) SaveMessage(rec Record) error {
	return s.save(messagesBucket, rec)
}

// SaveEvent persists a record in the event inbox.
func (s *Store) SaveEvent(rec Record) error {
	return s.save(eventsBucket, rec)
}

func (s *Store) save(bucket []byte, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", rec.ID, err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(rec.key(), data)
	})
	if err != nil {
		return fmt.Errorf("storing record %s: %w", rec.ID, err)
	}

	return nil
}

// Messages returns all stored message records in receive order.
func (s *Store) Messages() ([]Record, error) {
	return s.list(messagesBucket)
}

// Events returns all stored event records in receive order.
func (s *Store) Events() ([]Record, error) {
	return s.list(eventsBucket)
}

func (s *Store) list(bucket []byte) ([]Record, error) {
	var records []Record

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding record %s: %w", k, err)
			}

			records = append(records, rec)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}
