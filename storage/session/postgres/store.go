package pgstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorhub/core/session"
)

type store struct {
	db  *sqlx.DB
	ttl time.Duration
}

var _ session.Store = (*store)(nil)

// New wraps an opened *sql.DB; session_entries must be migrated already.
func New(db *sql.DB, ttl time.Duration) session.Store {
	return &store{db: sqlx.NewDb(db, "postgres"), ttl: ttl}
}

func (s *store) expiry() *time.Time {
	if s.ttl <= 0 {
		return nil
	}
	exp := time.Now().UTC().Add(s.ttl)
	return &exp
}

func (s *store) Get(ctx context.Context, sid, key string) ([]byte, error) {
	var val []byte
	err := s.db.GetContext(ctx, &val, `
		SELECT value FROM session_entries
		WHERE session_id = $1 AND key = $2 AND (expires_at IS NULL OR expires_at > now())`,
		sid, key,
	)
	if err == sql.ErrNoRows {
		return nil, session.ErrNotFound
	}
	return val, errors.Wrap(err, "selecting session entry")
}

func (s *store) Set(ctx context.Context, sid, key string, value []byte) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	exp := s.expiry()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO session_entries (session_id, key, value, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		sid, key, value, exp,
	); err != nil {
		return errors.Wrap(err, "upserting session entry")
	}
	// the whole session lives as long as its latest write
	if _, err = tx.ExecContext(ctx,
		`UPDATE session_entries SET expires_at = $2 WHERE session_id = $1`, sid, exp,
	); err != nil {
		return errors.Wrap(err, "extending session")
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (s *store) Delete(ctx context.Context, sid string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM session_entries WHERE session_id = ? AND key IN (?)`, sid, keys)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	return errors.Wrap(err, "deleting session entries")
}

func (s *store) Clear(ctx context.Context, sid string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_entries WHERE session_id = $1`, sid)
	return errors.Wrap(err, "clearing session")
}

func (s *store) Sessions(ctx context.Context) ([]string, error) {
	sids := make([]string, 0)
	err := s.db.SelectContext(ctx, &sids, `
		SELECT DISTINCT session_id FROM session_entries
		WHERE expires_at IS NULL OR expires_at > now()
		ORDER BY session_id`)
	return sids, errors.Wrap(err, "selecting sessions")
}

// Purge drops expired entries.
func (s *store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_entries WHERE expires_at <= now()`)
	if err != nil {
		return 0, errors.Wrap(err, "purging expired sessions")
	}
	return res.RowsAffected()
}

func (s *store) Close() error {
	return s.db.Close()
}
