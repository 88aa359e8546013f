package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adhikkesh/Erflog/internal/cache"
	"github.com/Adhikkesh/Erflog/interview"
	"github.com/Adhikkesh/Erflog/storage"
)

// SessionMirror 把注册表中的会话快照写入 Redis，供其他实例查询
type SessionMirror struct {
	cache *cache.Manager
	ttl   time.Duration
}

var _ interview.Mirror = (*SessionMirror)(nil)

// NewSessionMirror 创建镜像；ttl 为快照过期时间
func NewSessionMirror(m *cache.Manager, ttl time.Duration) *SessionMirror {
	return &SessionMirror{cache: m, ttl: ttl}
}

func (s *SessionMirror) key(id string) string { return s.cache.Key("session", id) }

// SaveSession implements interview.Mirror. The candidate profile is not
// mirrored.
func (s *SessionMirror) SaveSession(ctx context.Context, sess interview.Session) error {
	sess.Profile = nil
	return s.cache.SetJSON(ctx, s.key(sess.ID), sess, s.ttl)
}

// DeleteSession implements interview.Mirror.
func (s *SessionMirror) DeleteSession(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, s.key(id))
}

// GetSession returns a mirrored snapshot; ok is false when absent.
func (s *SessionMirror) GetSession(ctx context.Context, id string) (*interview.Session, bool, error) {
	var sess interview.Session
	err := s.cache.GetJSON(ctx, "session_mirror", s.key(id), &sess)
	if cache.IsCacheMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &sess, true, nil
}

// ChatStore 以 Redis 保存 HTTP chat 会话，每次写入刷新过期时间。
// 写入使用 WATCH/MULTI/EXEC 乐观锁，版本不一致时返回 storage.ErrChatConflict。
type ChatStore struct {
	cache *cache.Manager
	ttl   time.Duration
}

var _ storage.ChatStore = (*ChatStore)(nil)

// chatRecord 是 Redis 中保存的结构
type chatRecord struct {
	Version int64             `json:"version"`
	Session interview.Session `json:"session"`
}

// NewChatStore 创建 chat 会话存储
func NewChatStore(m *cache.Manager, ttl time.Duration) *ChatStore {
	return &ChatStore{cache: m, ttl: ttl}
}

func (c *ChatStore) key(id string) string { return c.cache.Key("chat", id) }

func (c *ChatStore) LoadChat(ctx context.Context, id string) (*interview.Session, int64, bool, error) {
	var rec chatRecord
	err := c.cache.GetJSON(ctx, "chat_session", c.key(id), &rec)
	if cache.IsCacheMiss(err) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	return &rec.Session, rec.Version, true, nil
}

func (c *ChatStore) SaveChat(ctx context.Context, sess interview.Session, version int64) error {
	key := c.key(sess.ID)
	client := c.cache.Client()

	err := client.Watch(ctx, func(tx *redis.Tx) error {
		var current int64
		val, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var stored chatRecord
			if err := json.Unmarshal([]byte(val), &stored); err != nil {
				return fmt.Errorf("decode chat session: %w", err)
			}
			current = stored.Version
		}
		if current != version {
			return storage.ErrChatConflict
		}

		data, err := json.Marshal(chatRecord{Version: version + 1, Session: sess})
		if err != nil {
			return fmt.Errorf("encode chat session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, key)

	// EXEC 被中止说明 WATCH 期间键已变化
	if errors.Is(err, redis.TxFailedErr) {
		return storage.ErrChatConflict
	}
	return err
}

func (c *ChatStore) DeleteChat(ctx context.Context, id string) error {
	return c.cache.Delete(ctx, c.key(id))
}
