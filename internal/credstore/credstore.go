package credstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "credentials"

// Store is a small durable key->string cache backed by BoltDB with an
// in-memory layer for reads. It holds the handful of values that survive
// across sessions: access token, refresh token, token expiry and the PKCE
// verifier. Values are never deleted implicitly, only overwritten.
type Store struct {
	db  *bolt.DB
	mem sync.Map
}

// Open opens (or creates) the store at path, creating parent directories as
// needed, and preloads all entries into memory.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty credential store path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create credential store directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create credential bucket: %w", err)
	}

	s := &Store{db: db}
	if err := s.loadToMemory(); err != nil {
		log.Warnf("[CredStore] failed to preload credentials: %v", err)
	}

	return s, nil
}

func (s *Store) loadToMemory() error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			s.mem.Store(string(k), string(v))
			return nil
		})
	})
}

// Get returns the stored value for key. The second return value is false
// when the key has never been set.
func (s *Store) Get(key string) (string, bool) {
	if v, ok := s.mem.Load(key); ok {
		return v.(string), true
	}
	return "", false
}

// Set stores the value in memory and on disk.
func (s *Store) Set(key, value string) error {
	s.mem.Store(key, value)

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return errors.New("credential bucket missing")
		}
		return b.Put([]byte(key), []byte(value))
	})
}

// SetAll stores several values in a single transaction. Token exchange and
// refresh write access token and expiry together; a partial write would
// leave a token paired with a stale expiry.
func (s *Store) SetAll(values map[string]string) error {
	for k, v := range values {
		s.mem.Store(k, v)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return errors.New("credential bucket missing")
		}
		for k, v := range values {
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a key entirely. Used only by explicit logout.
func (s *Store) Delete(key string) error {
	s.mem.Delete(key)

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
