package boltdb

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"

	"github.com/ringsync/ringsync/internal/client/storage"
)

var (
	// BoltDB bucket names
	bucketMirror   = []byte("mirror")        // nested: tenant -> table -> id
	bucketPatches  = []byte("patches")       // nested: tenant -> table -> id (optimistic overlays)
	bucketQueue    = []byte("offline_queue") // seq (8-byte BE) -> mutation record
	bucketQueueIdx = []byte("queue_index")   // mutation id -> seq key
	bucketMetadata = []byte("metadata")
	bucketSession  = []byte("session")
)

// openTimeout ограничивает ожидание файловой блокировки БД.
// Без таймаута второй процесс висел бы на flock бесконечно.
const openTimeout = time.Second

// Storage represents BoltDB storage implementation for the scoring device.
// One instance implements MirrorStorage, QueueStorage, MetadataStorage and
// SessionStorage over a single database file, so a queue append and its
// optimistic patch share the same durability domain.
type Storage struct {
	db   *bbolt.DB
	path string
}

// New opens the device database and initializes buckets.
// Any open failure (corrupted file, bad magic, lock timeout) is reported as
// ErrStorageUnavailable so callers can distinguish "storage is broken" from
// "no data yet" and run the recovery flow instead of showing empty state.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open boltdb at %s: %v", storage.ErrStorageUnavailable, dbPath, err)
	}

	s := &Storage{db: db, path: dbPath}

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to initialize buckets: %v", storage.ErrStorageUnavailable, err)
	}

	return s, nil
}

// Recover deletes the device database file and opens a fresh, empty store.
// This is the automated-cleanup step of the corruption recovery flow: all
// local state (mirror, queue, session) is lost and must be re-pulled after
// re-activation. Callers are expected to confirm with the operator first.
func Recover(ctx context.Context, dbPath string) (*Storage, error) {
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove corrupted database: %w", err)
	}
	return New(ctx, dbPath)
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.path
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{
			bucketMirror,
			bucketPatches,
			bucketQueue,
			bucketQueueIdx,
			bucketMetadata,
			bucketSession,
		}
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}
