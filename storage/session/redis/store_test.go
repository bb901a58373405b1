package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutorhub/tests"
)

func TestStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	store, err := Open(context.Background(), addr, os.Getenv("TEST_REDIS_PASSWORD"), time.Minute)
	require.NoError(t, err)
	defer store.Close()

	testutil.StoreContract(t, store)
}
