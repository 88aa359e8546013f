package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Adhikkesh/Erflog/interview"
)

// ErrChatConflict 保存时版本已被其他写入者推进
var ErrChatConflict = errors.New("chat session was modified concurrently")

// ChatStore keeps HTTP chat sessions between requests. Saves are optimistic:
// version is the value returned by LoadChat (0 when the session was absent)
// and SaveChat fails with ErrChatConflict when the stored version differs.
type ChatStore interface {
	// LoadChat returns the stored session and its version; ok is false when
	// it is unknown or expired.
	LoadChat(ctx context.Context, id string) (s *interview.Session, version int64, ok bool, err error)
	SaveChat(ctx context.Context, s interview.Session, version int64) error
	DeleteChat(ctx context.Context, id string) error
}

// MemoryChatStore 进程内的 ChatStore，Redis 未启用时使用
type MemoryChatStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryChat
}

type memoryChat struct {
	session   interview.Session
	version   int64
	expiresAt time.Time
}

// NewMemoryChatStore 创建内存存储；ttl <= 0 表示不过期
func NewMemoryChatStore(ttl time.Duration) *MemoryChatStore {
	return &MemoryChatStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryChat),
	}
}

func (m *MemoryChatStore) LoadChat(_ context.Context, id string) (*interview.Session, int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.liveLocked(id)
	if !ok {
		return nil, 0, false, nil
	}
	s := e.session.Clone()
	return &s, e.version, true, nil
}

func (m *MemoryChatStore) SaveChat(_ context.Context, s interview.Session, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current int64
	if e, ok := m.liveLocked(s.ID); ok {
		current = e.version
	}
	if current != version {
		return ErrChatConflict
	}
	e := memoryChat{session: s.Clone(), version: version + 1}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	m.entries[s.ID] = e
	m.sweepLocked()
	return nil
}

func (m *MemoryChatStore) DeleteChat(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryChatStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// liveLocked 返回未过期的条目，过期条目顺便删除
func (m *MemoryChatStore) liveLocked(id string) (memoryChat, bool) {
	e, ok := m.entries[id]
	if !ok {
		return memoryChat{}, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, id)
		return memoryChat{}, false
	}
	return e, true
}

func (m *MemoryChatStore) sweepLocked() {
	now := m.now()
	for id, e := range m.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(m.entries, id)
		}
	}
}
