package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/erp/fulfillment/internal/domain/shared"
)

var idempotencyBucket = []byte("idempotency")

// BoltIdempotencyStore persists processed keys in a local bolt file so
// marks survive a restart of a single instance. Each value is the key's
// expiry as big-endian unix nanoseconds.
type BoltIdempotencyStore struct {
	db  *bolt.DB
	now func() time.Time
}

// NewBoltIdempotencyStore opens (or creates) the database file at path
func NewBoltIdempotencyStore(path string) (*BoltIdempotencyStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(idempotencyBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &BoltIdempotencyStore{db: db, now: time.Now}, nil
}

// MarkProcessed writes the key unless an unexpired mark exists.
// The check and the write share one bolt write transaction.
func (s *BoltIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	marked := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(idempotencyBucket)
		now := s.now()
		if v := b.Get([]byte(key)); v != nil && now.Before(decodeExpiry(v)) {
			return nil
		}
		marked = true
		return b.Put([]byte(key), encodeExpiry(now.Add(ttl)))
	})
	if err != nil {
		return false, fmt.Errorf("failed to mark %s as processed: %w", key, err)
	}
	return marked, nil
}

// IsProcessed reports whether key holds an unexpired mark
func (s *BoltIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	processed := false
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(idempotencyBucket).Get([]byte(key)); v != nil {
			processed = s.now().Before(decodeExpiry(v))
		}
		return nil
	})
	return processed, err
}

// Purge deletes expired marks and returns how many were removed
func (s *BoltIdempotencyStore) Purge() (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(idempotencyBucket)
		now := s.now()
		var expired [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			if !now.Before(decodeExpiry(v)) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}

// Close releases the file lock
func (s *BoltIdempotencyStore) Close() error {
	return s.db.Close()
}

func encodeExpiry(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.UnixNano()))
	return buf
}

func decodeExpiry(v []byte) time.Time {
	if len(v) != 8 {
		return time.Time{}
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(v)))
}

var _ shared.IdempotencyStore = (*BoltIdempotencyStore)(nil)
