package modelsync

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("modelsync")

// StateStore remembers the ETag of the last object downloaded per key.
type StateStore struct {
	DBPath string
	db     *bolt.DB
	mu     sync.RWMutex
}

func (s *StateStore) Init() error {
	dbDir := filepath.Dir(s.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory for BoltDB: %w", err)
	}

	db, err := bolt.Open(s.DBPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open BoltDB: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	s.db = db
	return nil
}

// ETag returns the stored ETag for key, or "" if nothing was recorded.
func (s *StateStore) ETag(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var etag string
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte("etag:" + key))
		if v != nil {
			etag = string(v)
		}
		return nil
	})
	return etag, err
}

func (s *StateStore) SetETag(key, etag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte("etag:"+key), []byte(etag))
	})
}

func (s *StateStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
