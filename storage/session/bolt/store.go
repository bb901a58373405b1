package boltstore

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/tutorhub/core/session"
)

var sessionsBucket = []byte("sessions")

// store keeps one nested bucket per browser session inside the "sessions" bucket.
type store struct {
	db *bolt.DB
}

var _ session.Store = (*store)(nil)

// Open opens (or creates) the bolt file at path.
func Open(path string) (session.Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "creating sessions directory")
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening bolt file")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating sessions bucket")
	}
	return &store{db: db}, nil
}

func (s *store) view(fn func(*bolt.Tx) error) error   { return closedErr(s.db.View(fn)) }
func (s *store) update(fn func(*bolt.Tx) error) error { return closedErr(s.db.Update(fn)) }

func closedErr(err error) error {
	if err == bolt.ErrDatabaseNotOpen {
		return session.ErrStoreClosed
	}
	return err
}

func (s *store) Get(_ context.Context, sid, key string) ([]byte, error) {
	var val []byte
	err := s.view(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket).Bucket([]byte(sid))
		if b == nil {
			return session.ErrNotFound
		}
		v := b.Get([]byte(key))
		if v == nil {
			return session.ErrNotFound
		}
		// v is only valid for the life of the transaction
		val = append([]byte(nil), v...)
		return nil
	})
	return val, err
}

func (s *store) Set(_ context.Context, sid, key string, value []byte) error {
	return s.update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(sessionsBucket).CreateBucketIfNotExists([]byte(sid))
		if err != nil {
			return errors.Wrap(err, "creating session bucket")
		}
		return b.Put([]byte(key), value)
	})
}

func (s *store) Delete(_ context.Context, sid string, keys ...string) error {
	return s.update(func(tx *bolt.Tx) error {
		root := tx.Bucket(sessionsBucket)
		b := root.Bucket([]byte(sid))
		if b == nil {
			return nil
		}
		for _, key := range keys {
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		if k, _ := b.Cursor().First(); k == nil {
			return root.DeleteBucket([]byte(sid))
		}
		return nil
	})
}

func (s *store) Clear(_ context.Context, sid string) error {
	return s.update(func(tx *bolt.Tx) error {
		err := tx.Bucket(sessionsBucket).DeleteBucket([]byte(sid))
		if err == bolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}

func (s *store) Sessions(_ context.Context) ([]string, error) {
	sids := make([]string, 0)
	err := s.view(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(k, v []byte) error {
			if v == nil { // nested bucket
				sids = append(sids, string(k))
			}
			return nil
		})
	})
	return sids, err
}

func (s *store) Close() error {
	return s.db.Close()
}
