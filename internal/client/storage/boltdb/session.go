package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/ringsync/ringsync/internal/client/storage"
)

const keyDeviceSession = "device_session"

// SaveSession stores the session produced by license activation
func (s *Storage) SaveSession(ctx context.Context, session *storage.DeviceSession) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Put([]byte(keyDeviceSession), data)
	})
}

// GetSession retrieves the stored session.
// Returns ErrSessionNotFound if the device has not been activated.
func (s *Storage) GetSession(ctx context.Context) (*storage.DeviceSession, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var session *storage.DeviceSession

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSession).Get([]byte(keyDeviceSession))
		if data == nil {
			return storage.ErrSessionNotFound
		}

		session = &storage.DeviceSession{}
		if err := json.Unmarshal(data, session); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// DeleteSession removes the stored session (deactivation)
func (s *Storage) DeleteSession(ctx context.Context) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Delete([]byte(keyDeviceSession))
	})
}
