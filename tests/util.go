package testutil

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutorhub/core"
	"github.com/trezcool/tutorhub/core/session"
)

// NewConfig returns the configuration used by tests.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "TutorHub",
		SecretKey:        "test-secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "TutorHub", Address: "noreply@tutorhub.test"},
		SupportEmail:     mail.Address{Name: "Support", Address: "support@tutorhub.test"},
		Server: core.ServerConfig{
			Host:            "localhost",
			DisableReqLogs:  true,
			ShutdownTimeout: time.Second,
		},
		Backend: core.BackendConfig{Timeout: 5 * time.Second},
		Checkout: core.CheckoutConfig{
			Provider:          "paystack",
			Currency:          "NGN",
			PaystackPublicKey: "pk_test_xxx",
			RedirectDelay:     2 * time.Second,
		},
		Sessions: core.SessionsConfig{
			Driver:     "memory",
			TTL:        time.Hour,
			CookieName: "tutorhub_sid",
		},
	}
}

// LogEntry is one call to a Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records log calls instead of printing them.
type Logger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// Errors returns the messages logged at error level.
func (l *Logger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs := make([]string, 0)
	for _, e := range l.Entries {
		if e.Level == "error" {
			msgs = append(msgs, e.Msg)
		}
	}
	return msgs
}

// StoreContract runs the behaviour every session.Store must share.
func StoreContract(t *testing.T, store session.Store) {
	ctx := context.Background()
	sid1 := session.NewSessionID()
	sid2 := session.NewSessionID()

	t.Run("missing", func(t *testing.T) {
		_, err := store.Get(ctx, sid1, "student")
		assert.Equal(t, session.ErrNotFound, err)
	})

	t.Run("set get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, sid1, "student", []byte(`{"id":"1"}`)))
		require.NoError(t, store.Set(ctx, sid1, "token", []byte("tok")))
		require.NoError(t, store.Set(ctx, sid2, "tutor", []byte(`{"id":"2"}`)))

		val, err := store.Get(ctx, sid1, "student")
		require.NoError(t, err)
		assert.Equal(t, `{"id":"1"}`, string(val))

		_, err = store.Get(ctx, sid2, "student")
		assert.Equal(t, session.ErrNotFound, err)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, sid1, "token", []byte("tok2")))
		val, err := store.Get(ctx, sid1, "token")
		require.NoError(t, err)
		assert.Equal(t, "tok2", string(val))
	})

	t.Run("sessions", func(t *testing.T) {
		sids, err := store.Sessions(ctx)
		require.NoError(t, err)
		want := []string{sid1, sid2}
		sort.Strings(want)
		sort.Strings(sids)
		assert.Equal(t, want, sids)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, sid1, "student", "unknown"))
		_, err := store.Get(ctx, sid1, "student")
		assert.Equal(t, session.ErrNotFound, err)
		_, err = store.Get(ctx, sid1, "token")
		assert.NoError(t, err)
		require.NoError(t, store.Delete(ctx, session.NewSessionID(), "student"))
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx, sid1))
		_, err := store.Get(ctx, sid1, "token")
		assert.Equal(t, session.ErrNotFound, err)
		require.NoError(t, store.Clear(ctx, sid1))

		sids, err := store.Sessions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{sid2}, sids)
		require.NoError(t, store.Clear(ctx, sid2))
	})

	t.Run("concurrent writes", func(t *testing.T) {
		sid := session.NewSessionID()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, store.Set(ctx, sid, fmt.Sprintf("k%d", i), []byte("v")))
			}(i)
		}
		wg.Wait()
		for i := 0; i < 10; i++ {
			_, err := store.Get(ctx, sid, fmt.Sprintf("k%d", i))
			assert.NoError(t, err)
		}
		require.NoError(t, store.Clear(ctx, sid))
	})
}
