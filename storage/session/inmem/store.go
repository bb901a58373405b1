package inmemstore

import (
	"context"
	"sort"
	"sync"

	"github.com/trezcool/tutorhub/core/session"
)

type store struct {
	mutex sync.RWMutex
	table map[string]map[string][]byte // {sid: {key: value}}
}

var _ session.Store = (*store)(nil)

func New() session.Store {
	return &store{table: make(map[string]map[string][]byte)}
}

func (s *store) Get(_ context.Context, sid, key string) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if entries, ok := s.table[sid]; ok {
		if val, ok := entries[key]; ok {
			return append([]byte(nil), val...), nil
		}
	}
	return nil, session.ErrNotFound
}

func (s *store) Set(_ context.Context, sid, key string, value []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entries, ok := s.table[sid]
	if !ok {
		entries = make(map[string][]byte)
		s.table[sid] = entries
	}
	entries[key] = append([]byte(nil), value...)
	return nil
}

func (s *store) Delete(_ context.Context, sid string, keys ...string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entries, ok := s.table[sid]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(entries, key)
	}
	if len(entries) == 0 {
		delete(s.table, sid)
	}
	return nil
}

func (s *store) Clear(_ context.Context, sid string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.table, sid)
	return nil
}

func (s *store) Sessions(_ context.Context) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	sids := make([]string, 0, len(s.table))
	for sid := range s.table {
		sids = append(sids, sid)
	}
	sort.Strings(sids)
	return sids, nil
}

func (s *store) Close() error { return nil }
