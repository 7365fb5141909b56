package boltdb

import (
	"context"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/ringsync/ringsync/internal/client/storage"
)

// Зеркало хранится во вложенных buckets: mirror -> tenant -> table -> id.
// Партиционирование по tenant обеспечивается тем, что каждый доступ
// начинается с bucket конкретного tenant - несмотря на общий файл БД,
// чтение для tenant A физически не видит ключей tenant B.

// GetAll returns all cached rows for a table with optimistic patches overlaid
func (s *Storage) GetAll(ctx context.Context, tenantID, table string) ([][]byte, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	type keyedRow struct {
		id  string
		row []byte
	}
	var rows []keyedRow

	err := s.db.View(func(tx *bbolt.Tx) error {
		base := nestedBucket(tx, bucketMirror, tenantID, table)
		patches := nestedBucket(tx, bucketPatches, tenantID, table)

		seen := make(map[string]bool)

		if base != nil {
			err := base.ForEach(func(k, v []byte) error {
				id := string(k)
				row := v
				// Overlay: патч перекрывает строку базовой таблицы
				if patches != nil {
					if p := patches.Get(k); p != nil {
						row = p
					}
				}
				seen[id] = true
				rows = append(rows, keyedRow{id: id, row: append([]byte(nil), row...)})
				return nil
			})
			if err != nil {
				return err
			}
		}

		// Патчи для строк, которых еще нет в базовой таблице
		if patches != nil {
			return patches.ForEach(func(k, v []byte) error {
				if !seen[string(k)] {
					rows = append(rows, keyedRow{id: string(k), row: append([]byte(nil), v...)})
				}
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read mirror table %s: %w", table, err)
	}

	// Детерминированный порядок по id
	sort.Slice(rows, func(i, j int) bool { return rows[i].id < rows[j].id })

	result := make([][]byte, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.row)
	}
	return result, nil
}

// Get returns a single row (patch-aware) by server ID
func (s *Storage) Get(ctx context.Context, tenantID, table, id string) ([]byte, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var row []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		// Сначала проверяем патч - он перекрывает базовую строку
		if patches := nestedBucket(tx, bucketPatches, tenantID, table); patches != nil {
			if p := patches.Get([]byte(id)); p != nil {
				row = append([]byte(nil), p...)
				return nil
			}
		}

		base := nestedBucket(tx, bucketMirror, tenantID, table)
		if base == nil {
			return storage.ErrRowNotFound
		}
		v := base.Get([]byte(id))
		if v == nil {
			return storage.ErrRowNotFound
		}
		row = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return row, nil
}

// ReplaceAll atomically swaps the cached contents of a table for a tenant.
// The swap happens inside a single bbolt write transaction: concurrent
// readers see either the previous snapshot or the new one in full.
func (s *Storage) ReplaceAll(ctx context.Context, tenantID, table string, rows map[string][]byte) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		tenant, err := tx.Bucket(bucketMirror).CreateBucketIfNotExists([]byte(tenantID))
		if err != nil {
			return fmt.Errorf("failed to create tenant bucket: %w", err)
		}

		// Удаляем старый snapshot таблицы целиком
		if err := tenant.DeleteBucket([]byte(table)); err != nil && err != bbolt.ErrBucketNotFound {
			return fmt.Errorf("failed to drop table bucket: %w", err)
		}

		tbl, err := tenant.CreateBucket([]byte(table))
		if err != nil {
			return fmt.Errorf("failed to create table bucket: %w", err)
		}

		for id, row := range rows {
			if err := tbl.Put([]byte(id), row); err != nil {
				return fmt.Errorf("failed to put row %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace transaction failed: %w", err)
	}

	return nil
}

// ApplyPatch stores an optimistic overlay for one entity.
// Повторный патч для той же сущности замещает предыдущий (supersede),
// патчи не наслаиваются друг на друга.
func (s *Storage) ApplyPatch(ctx context.Context, tenantID, table, id string, row []byte) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		patches, err := createNestedBucket(tx, bucketPatches, tenantID, table)
		if err != nil {
			return err
		}
		return patches.Put([]byte(id), row)
	})
	if err != nil {
		return fmt.Errorf("apply patch failed: %w", err)
	}

	return nil
}

// DropPatch removes the optimistic overlay for one entity
func (s *Storage) DropPatch(ctx context.Context, tenantID, table, id string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		patches := nestedBucket(tx, bucketPatches, tenantID, table)
		if patches == nil {
			return nil
		}
		return patches.Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("drop patch failed: %w", err)
	}

	return nil
}

// Promote writes a confirmed row into the base table and drops the overlay
// in one transaction, so reads never flicker back to the pre-mutation value
// between acknowledgment and the next pull.
func (s *Storage) Promote(ctx context.Context, tenantID, table, id string, row []byte) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		tbl, err := createNestedBucket(tx, bucketMirror, tenantID, table)
		if err != nil {
			return err
		}
		if err := tbl.Put([]byte(id), row); err != nil {
			return fmt.Errorf("failed to put promoted row: %w", err)
		}

		if patches := nestedBucket(tx, bucketPatches, tenantID, table); patches != nil {
			return patches.Delete([]byte(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("promote failed: %w", err)
	}

	return nil
}

// nestedBucket возвращает bucket top/tenant/table или nil, если путь не существует
func nestedBucket(tx *bbolt.Tx, top []byte, tenantID, table string) *bbolt.Bucket {
	b := tx.Bucket(top)
	if b == nil {
		return nil
	}
	tenant := b.Bucket([]byte(tenantID))
	if tenant == nil {
		return nil
	}
	return tenant.Bucket([]byte(table))
}

// createNestedBucket создает путь top/tenant/table при необходимости
func createNestedBucket(tx *bbolt.Tx, top []byte, tenantID, table string) (*bbolt.Bucket, error) {
	tenant, err := tx.Bucket(top).CreateBucketIfNotExists([]byte(tenantID))
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant bucket: %w", err)
	}
	tbl, err := tenant.CreateBucketIfNotExists([]byte(table))
	if err != nil {
		return nil, fmt.Errorf("failed to create table bucket: %w", err)
	}
	return tbl, nil
}
