package redisstore

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/tutorhub/core/session"
)

const keyPrefix = "tutorhub:session:"

// store keeps one redis hash per browser session; every write pushes the session's expiry.
type store struct {
	client *redis.Client
	ttl    time.Duration
}

var _ session.Store = (*store)(nil)

func New(client *redis.Client, ttl time.Duration) session.Store {
	return &store{client: client, ttl: ttl}
}

// Open connects to addr and pings the server.
func Open(ctx context.Context, addr, password string, ttl time.Duration) (session.Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return New(client, ttl), nil
}

func hashKey(sid string) string { return keyPrefix + sid }

func (s *store) Get(ctx context.Context, sid, key string) ([]byte, error) {
	val, err := s.client.HGet(ctx, hashKey(sid), key).Bytes()
	switch err {
	case redis.Nil:
		return nil, session.ErrNotFound
	case redis.ErrClosed:
		return nil, session.ErrStoreClosed
	}
	return val, err
}

func (s *store) Set(ctx context.Context, sid, key string, value []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hashKey(sid), key, value)
		if s.ttl > 0 {
			pipe.Expire(ctx, hashKey(sid), s.ttl)
		}
		return nil
	})
	return err
}

func (s *store) Delete(ctx context.Context, sid string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.HDel(ctx, hashKey(sid), keys...).Err()
}

func (s *store) Clear(ctx context.Context, sid string) error {
	return s.client.Del(ctx, hashKey(sid)).Err()
}

func (s *store) Sessions(ctx context.Context) ([]string, error) {
	sids := make([]string, 0)
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		sids = append(sids, strings.TrimPrefix(iter.Val(), keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning sessions")
	}
	return sids, nil
}

func (s *store) Close() error {
	return s.client.Close()
}
