package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/config"
)

// =============================================================================
// 💾 缓存管理器
// =============================================================================

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// ErrClosed 管理器已关闭
var ErrClosed = errors.New("cache manager is closed")

// IsCacheMiss 判断是否为缓存未命中
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// HitRecorder 接收命中统计，metrics.Collector 满足该接口
type HitRecorder interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

// Manager 持有 Redis 客户端，统一加键前缀与默认过期时间
type Manager struct {
	redis      redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
	recorder   HitRecorder
	logger     *zap.Logger

	mu     sync.RWMutex
	closed bool
	stop   chan struct{}
}

// Option 配置 Manager
type Option func(*Manager)

// WithHitRecorder 上报命中与未命中
func WithHitRecorder(r HitRecorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithDefaultTTL 设置 ttl 为 0 时使用的过期时间
func WithDefaultTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.defaultTTL = ttl }
}

// WithHealthCheck 周期性 Ping
func WithHealthCheck(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			go m.healthCheckLoop(interval)
		}
	}
}

// NewManager 按配置连接 Redis，连接失败时返回错误
func NewManager(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger, opts ...Option) (*Manager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	m := NewManagerWithClient(client, cfg.KeyPrefix, logger, opts...)
	logger.Info("cache manager initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize),
		zap.String("key_prefix", cfg.KeyPrefix),
	)
	return m, nil
}

// NewManagerWithClient 包装已有客户端
func NewManagerWithClient(client redis.UniversalClient, prefix string, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		redis:      client,
		prefix:     prefix,
		defaultTTL: 5 * time.Minute,
		logger:     logger.With(zap.String("component", "cache")),
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Key 返回带前缀的完整键名
func (m *Manager) Key(parts ...string) string {
	key := m.prefix
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}

// Client 返回底层客户端，供需要列表或事务的存储使用
func (m *Manager) Client() redis.UniversalClient {
	return m.redis
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

func (m *Manager) checkOpen() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Get 读取字符串值
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	if err := m.checkOpen(); err != nil {
		return "", err
	}

	val, err := m.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		m.logger.Error("cache get failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("cache get failed: %w", err)
	}
	return val, nil
}

// Set 写入字符串值；ttl 为 0 时使用默认值，负数表示不过期
func (m *Manager) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	switch {
	case ttl == 0:
		ttl = m.defaultTTL
	case ttl < 0:
		ttl = 0
	}

	if err := m.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		m.logger.Error("cache set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// GetJSON 读取并解码 JSON；cacheType 非空时记录命中统计
func (m *Manager) GetJSON(ctx context.Context, cacheType, key string, dest any) error {
	val, err := m.Get(ctx, key)
	if m.recorder != nil && cacheType != "" {
		switch {
		case err == nil:
			m.recorder.RecordCacheHit(cacheType)
		case IsCacheMiss(err):
			m.recorder.RecordCacheMiss(cacheType)
		}
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// SetJSON 编码并写入 JSON
func (m *Manager) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return m.Set(ctx, key, string(data), ttl)
}

// Delete 删除键
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	if err := m.redis.Del(ctx, keys...).Err(); err != nil {
		m.logger.Error("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

// Expire 刷新过期时间
func (m *Manager) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if err := m.redis.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("cache expire failed: %w", err)
	}
	return nil
}

// Ping 检查连接
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.redis.Ping(ctx).Err()
}

// Close 关闭客户端
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.stop)
	m.logger.Info("closing cache manager")
	return m.redis.Close()
}

// =============================================================================
// 🏥 健康检查
// =============================================================================

func (m *Manager) healthCheckLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := m.Ping(ctx); err != nil && !errors.Is(err, ErrClosed) {
				m.logger.Error("cache health check failed", zap.Error(err))
			}
			cancel()
		}
	}
}
