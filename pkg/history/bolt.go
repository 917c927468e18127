package history

import (
	"context"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"
)

var runsBucket = []byte("runs")

// BoltStore keeps run records in a bbolt file, keyed by start time so a
// cursor walk yields chronological order.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if needed) the history database at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

func (s *BoltStore) Append(ctx context.Context, rec Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(runsBucket)
		if err != nil {
			return err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(rec.StartedAt.UTC().Format(time.RFC3339Nano)), data)
	})
}

func (s *BoltStore) List(ctx context.Context, limit int) ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(runsBucket)
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

var _ Store = (*BoltStore)(nil)
