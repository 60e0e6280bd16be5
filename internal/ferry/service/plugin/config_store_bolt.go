package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/kiosk404/ferry/pkg/utils/json"
)

// openTimeout bounds the wait for the file lock held by another process.
const openTimeout = 2 * time.Second

var (
	bucketPlugins = []byte("plugins")
	keyConfig     = []byte("config")
)

// BoltConfigStore keeps the config as one JSON value in a bolt bucket.
type BoltConfigStore struct {
	db *bolt.DB
}

var _ ConfigStore = (*BoltConfigStore)(nil)

// OpenBoltConfigStore opens or creates the database at path.
func OpenBoltConfigStore(path string) (*BoltConfigStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPlugins)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %q: %w", bucketPlugins, err)
	}
	return &BoltConfigStore{db: db}, nil
}

func (s *BoltConfigStore) Load() (*PluginsConfig, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketPlugins).Get(keyConfig); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return NewPluginsConfig(), nil
	}
	return decodePluginsConfig(data, s.db.Path()), nil
}

func (s *BoltConfigStore) Save(cfg *PluginsConfig) error {
	data, err := json.Marshal(cfg.normalize())
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPlugins).Put(keyConfig, data)
	})
}

func (s *BoltConfigStore) Close() error {
	return s.db.Close()
}
