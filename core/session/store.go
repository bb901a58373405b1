package session

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by a Store when a key holds no value.
	ErrNotFound = errors.New("session entry not found")

	// ErrStoreClosed is returned by a Store used after Close.
	ErrStoreClosed = errors.New("session store closed")
)

// Store is the persisted session storage: string-keyed blobs scoped to one browser session.
type Store interface {
	Get(ctx context.Context, sid, key string) ([]byte, error)
	Set(ctx context.Context, sid, key string, value []byte) error
	Delete(ctx context.Context, sid string, keys ...string) error
	// Clear drops every key of the session.
	Clear(ctx context.Context, sid string) error
	// Sessions lists the ids of the sessions currently holding at least one key.
	Sessions(ctx context.Context) ([]string, error)
	Close() error
}

// Purger is implemented by stores able to drop expired sessions on demand.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}
