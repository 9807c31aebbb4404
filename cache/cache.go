// Package cache persists the last successful main query between runs, so
// a failed refresh can keep serving the previous data.
package cache

import (
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// ErrNotFound is returned by Get for keys that were never stored.
var ErrNotFound = errors.New("not found in cache")

var bucketName = []byte("main-query")

const dbTimeout = time.Second

// Store is a key value store backed by a bbolt database file.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: dbTimeout})
	if err != nil {
		return nil, fmt.Errorf("unable to open cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to create cache bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}

		// Values are only valid for the life of the transaction.
		value = append([]byte(nil), v...)
		return nil
	})

	return value, err
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), value)
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
