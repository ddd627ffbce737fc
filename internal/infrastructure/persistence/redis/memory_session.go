package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// MemorySessionStore 进程内会话存储
// 本地开发没有Redis时使用, 多实例部署必须用SessionStore
type MemorySessionStore struct {
	mu        sync.Mutex
	now       func() time.Time
	sessions  map[uint]memoryEntry
	blacklist map[string]time.Time
}

type memoryEntry struct {
	data      map[string]string
	expiresAt time.Time
}

// NewMemorySessionStore 创建进程内会话存储
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		now:       time.Now,
		sessions:  make(map[uint]memoryEntry),
		blacklist: make(map[string]time.Time),
	}
}

func (s *MemorySessionStore) SaveSession(_ context.Context, librarianID uint, data map[string]interface{}, ttl time.Duration) error {
	values := make(map[string]string, len(data))
	for k, v := range data {
		values[k] = fmt.Sprint(v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[librarianID] = memoryEntry{data: values, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemorySessionStore) GetSession(_ context.Context, librarianID uint) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[librarianID]
	if !ok || !s.now().Before(entry.expiresAt) {
		delete(s.sessions, librarianID)
		return nil, apperrors.ErrUnauthorized
	}
	return entry.data, nil
}

func (s *MemorySessionStore) DeleteSession(_ context.Context, librarianID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, librarianID)
	return nil
}

func (s *MemorySessionStore) AddToBlacklist(_ context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[token] = s.now().Add(ttl)
	return nil
}

func (s *MemorySessionStore) IsInBlacklist(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.blacklist[token]
	if !ok {
		return false, nil
	}
	if !s.now().Before(expiresAt) {
		delete(s.blacklist, token)
		return false, nil
	}
	return true, nil
}
