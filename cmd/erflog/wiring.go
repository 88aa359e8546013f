package main

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/api/handlers"
	"github.com/Adhikkesh/Erflog/config"
	"github.com/Adhikkesh/Erflog/internal/cache"
	"github.com/Adhikkesh/Erflog/internal/database"
	"github.com/Adhikkesh/Erflog/internal/metrics"
	"github.com/Adhikkesh/Erflog/internal/migration"
	"github.com/Adhikkesh/Erflog/internal/tlsutil"
	"github.com/Adhikkesh/Erflog/interview"
	"github.com/Adhikkesh/Erflog/interview/media"
	"github.com/Adhikkesh/Erflog/interview/policy"
	llmfactory "github.com/Adhikkesh/Erflog/llm/factory"
	"github.com/Adhikkesh/Erflog/llm/speech"
	"github.com/Adhikkesh/Erflog/storage"
	"github.com/Adhikkesh/Erflog/storage/redisstore"
	"github.com/Adhikkesh/Erflog/storage/sqlstore"
	"github.com/Adhikkesh/Erflog/storage/supastore"
)

// mirrorTimeout 单次会话镜像写入的超时
const mirrorTimeout = 2 * time.Second

// components 是 serve 命令装配出的全部协作方
type components struct {
	voice   interview.Dependencies
	text    interview.Dependencies
	history storage.HistoryReader
	chats   storage.ChatStore
	// mirror 为 nil 时会话只在本实例可见
	mirror   handlers.SessionLookup
	registry *interview.Registry
	checks   []handlers.HealthCheck

	closers []func() error
}

// Close 逆序释放数据库、Redis 等资源
func (c *components) Close() error {
	return closeAll(c.closers)
}

// buildComponents 按配置装配存储、缓存、LLM 与语音服务
func buildComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, collector *metrics.Collector, tracer trace.Tracer) (*components, error) {
	c := &components{}
	ok := false
	defer func() {
		if !ok {
			_ = c.Close()
		}
	}()

	store, err := c.openStore(ctx, cfg, logger, collector)
	if err != nil {
		return nil, err
	}

	var loader interview.ContextLoader = store
	var reports interview.ReportSink = store
	c.history = store
	var registryOpts []interview.RegistryOption

	if cfg.Redis.Enabled {
		cm, err := cache.NewManager(ctx, cfg.Redis, logger, cache.WithHitRecorder(collector))
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		c.closers = append(c.closers, cm.Close)
		c.checks = append(c.checks, handlers.NewPingCheck("redis", cm.Ping))

		loader = redisstore.NewContextCache(loader, cm, cfg.Redis.ContextCacheTTL, logger)
		mirror := redisstore.NewSessionMirror(cm, cfg.Redis.SessionTTL)
		c.mirror = mirror
		registryOpts = append(registryOpts, interview.WithMirror(mirror, mirrorTimeout))
		c.chats = redisstore.NewChatStore(cm, cfg.Interview.ChatSessionTTL)
	} else {
		c.chats = storage.NewMemoryChatStore(cfg.Interview.ChatSessionTTL)
	}
	c.registry = interview.NewRegistry(logger, registryOpts...)

	// 对话策略与评估
	provider, err := llmfactory.New(cfg.LLM, logger, llmfactory.Options{
		Observer: collector,
		Tracer:   tracer,
	})
	if err != nil {
		return nil, fmt.Errorf("create llm provider: %w", err)
	}
	evaluator := policy.NewEvaluator(provider, policy.ConfigFrom(cfg.LLM, interview.ModeText), logger)

	// 语音识别与合成
	client := tlsutil.SecureHTTPClient(cfg.Speech.Timeout)
	stt, err := speech.NewSTT(cfg.Speech, client)
	if err != nil {
		return nil, err
	}
	tts, err := speech.NewTTS(cfg.Speech, client)
	if err != nil {
		return nil, err
	}
	mediaOpts := media.OptionsFrom(cfg.Speech)

	c.voice = interview.Dependencies{
		Loader:      loader,
		Policy:      policy.NewLLMPolicy(provider, policy.ConfigFrom(cfg.LLM, interview.ModeVoice), logger),
		Transcriber: media.NewTranscriber(stt, mediaOpts, logger),
		Synthesizer: media.NewSynthesizer(tts, mediaOpts, logger),
		Evaluator:   evaluator,
		Reports:     reports,
	}
	c.text = interview.Dependencies{
		Loader:    loader,
		Policy:    policy.NewLLMPolicy(provider, policy.ConfigFrom(cfg.LLM, interview.ModeText), logger),
		Evaluator: evaluator,
		Reports:   reports,
	}

	logger.Info("components ready",
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.String("llm", cfg.LLM.Provider),
		zap.String("stt", cfg.Speech.STTProvider),
		zap.String("tts", cfg.Speech.TTSProvider))

	ok = true
	return c, nil
}

// openStore 打开配置的持久化后端
func (c *components) openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, collector *metrics.Collector) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "sql", "":
		if cfg.Database.AutoMigrate {
			if err := runAutoMigrate(ctx, cfg.Database, logger); err != nil {
				return nil, err
			}
		}
		db, err := database.Open(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		pool, err := database.NewPoolManager(db, database.PoolConfigFrom(cfg.Database), logger,
			database.WithStatsReporter(collector))
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, pool.Close)
		c.checks = append(c.checks, handlers.NewPingCheck("database", pool.Ping))
		return sqlstore.New(pool.DB(), logger), nil

	case "supabase":
		store, err := supastore.New(supastore.Config{URL: cfg.Supabase.URL, APIKey: cfg.Supabase.APIKey}, logger)
		if err != nil {
			return nil, fmt.Errorf("create supabase store: %w", err)
		}
		return store, nil

	case "none":
		logger.Warn("storage disabled, using built-in demo context and discarding reports")
		return demoStore{}, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

func runAutoMigrate(ctx context.Context, dbCfg config.DatabaseConfig, logger *zap.Logger) error {
	m, err := migration.NewMigratorFromDatabaseConfig(dbCfg)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()
	if err := m.Up(ctx); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("database migrations applied")
	return nil
}

// demoStore 在没有数据库时提供固定的面试上下文，用于本地联调
type demoStore struct{}

func (demoStore) LoadContext(_ context.Context, userID, jobID string) (*interview.Profile, error) {
	return &interview.Profile{
		Job: interview.Job{
			ID:           jobID,
			Title:        "Software Engineer",
			Company:      "Erflog",
			Description:  "Build and operate backend services.",
			Requirements: []string{"Go", "distributed systems"},
		},
		Candidate: interview.Candidate{
			ID:     userID,
			Name:   "Candidate",
			Skills: []string{"Go"},
		},
	}, nil
}

func (demoStore) SaveReport(context.Context, interview.ReportRecord) error { return nil }

func (demoStore) ListInterviews(context.Context, string, int) ([]storage.InterviewSummary, error) {
	return []storage.InterviewSummary{}, nil
}
