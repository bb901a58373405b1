package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutorhub/core/session"
	"github.com/trezcool/tutorhub/tests"
)

func TestStore(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "sessions", "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	testutil.StoreContract(t, store)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "sid", "student", []byte(`{"id":"1"}`)))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	val, err := store.Get(ctx, "sid", "student")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1"}`, string(val))
}

func TestStore_Closed(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Get(context.Background(), "sid", "student")
	assert.Equal(t, session.ErrStoreClosed, err)
	assert.Equal(t, session.ErrStoreClosed, store.Set(context.Background(), "sid", "student", nil))
}
