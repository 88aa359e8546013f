// =============================================================================
// 📦 Erflog 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("ERFLOG").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 旧版裸环境变量 → 带前缀环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 Erflog 的完整配置结构
type Config struct {
	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	Interview InterviewConfig `yaml:"interview" env:"INTERVIEW"`
	Storage   StorageConfig   `yaml:"storage" env:"STORAGE"`
	Redis     RedisConfig     `yaml:"redis" env:"REDIS"`
	Database  DatabaseConfig  `yaml:"database" env:"DATABASE"`
	Supabase  SupabaseConfig  `yaml:"supabase" env:"SUPABASE"`
	LLM       LLMConfig       `yaml:"llm" env:"LLM"`
	Speech    SpeechConfig    `yaml:"speech" env:"SPEECH"`
	Auth      AuthConfig      `yaml:"auth" env:"AUTH"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT"`
	MetricsPort     int           `yaml:"metrics_port" env:"METRICS_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 每 IP 限流
	RateLimitRPS   float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// CORS 允许的来源，空表示允许全部
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// WebSocket 单帧读取上限（字节）
	MaxMessageBytes int64 `yaml:"max_message_bytes" env:"MAX_MESSAGE_BYTES"`
}

// InterviewConfig 面试引擎调优参数，支持热更新（仅影响新会话）
type InterviewConfig struct {
	// RMS 阈值，高于此值视为语音
	SilenceThreshold float64 `yaml:"silence_threshold" env:"SILENCE_THRESHOLD"`
	// 说话后持续静音多久判定一句结束
	SilenceDuration time.Duration `yaml:"silence_duration" env:"SILENCE_DURATION"`
	// 系统发言后的最小静默窗口
	Cooldown       time.Duration `yaml:"cooldown" env:"COOLDOWN"`
	PlaybackMargin time.Duration `yaml:"playback_margin" env:"PLAYBACK_MARGIN"`
	BytesPerSecond int           `yaml:"bytes_per_second" env:"BYTES_PER_SECOND"`
	// 单句最大时长，超出后强制结束
	MaxUtterance     time.Duration `yaml:"max_utterance" env:"MAX_UTTERANCE"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" env:"HANDSHAKE_TIMEOUT"`
	// 语音模式结束语与评估结果后的停顿
	VoiceGracePeriod time.Duration `yaml:"voice_grace_period" env:"VOICE_GRACE_PERIOD"`
	TextGracePeriod  time.Duration `yaml:"text_grace_period" env:"TEXT_GRACE_PERIOD"`
	// 单次外部调用超时
	CallTimeout       time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT"`
	FallbackUtterance string        `yaml:"fallback_utterance" env:"FALLBACK_UTTERANCE"`
	Goodbye           string        `yaml:"goodbye" env:"GOODBYE"`
	// 握手未携带 user_id 且未启用 JWT 时使用
	DefaultUserID string `yaml:"default_user_id" env:"DEFAULT_USER_ID"`
	// 读取端到引擎的帧队列长度
	FrameQueueSize int `yaml:"frame_queue_size" env:"FRAME_QUEUE_SIZE"`
	// HTTP chat 会话保留时间
	ChatSessionTTL time.Duration `yaml:"chat_session_ttl" env:"CHAT_SESSION_TTL"`
}

// StorageConfig 选择持久化后端: sql, supabase, none
type StorageConfig struct {
	Backend string `yaml:"backend" env:"BACKEND"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled      bool   `yaml:"enabled" env:"ENABLED"`
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	KeyPrefix    string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// 面试上下文缓存时间
	ContextCacheTTL time.Duration `yaml:"context_cache_ttl" env:"CONTEXT_CACHE_TTL"`
	// 会话快照镜像的过期时间
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite
	Driver          string        `yaml:"driver" env:"DRIVER"`
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	Name            string        `yaml:"name" env:"NAME"`
	SSLMode         string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	// 启动时自动执行迁移
	AutoMigrate bool `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
}

// SupabaseConfig Supabase (PostgREST) 配置
type SupabaseConfig struct {
	URL    string `yaml:"url" env:"URL"`
	APIKey string `yaml:"api_key" env:"API_KEY"`
}

// LLMConfig 对话策略与评估使用的模型配置
type LLMConfig struct {
	// gemini, openai
	Provider    string        `yaml:"provider" env:"PROVIDER"`
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	Model       string        `yaml:"model" env:"MODEL"`
	Temperature float32       `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens   int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries  int           `yaml:"max_retries" env:"MAX_RETRIES"`
	// 历史对话 token 预算，超出时裁剪最早的轮次
	HistoryTokenBudget int `yaml:"history_token_budget" env:"HISTORY_TOKEN_BUDGET"`
}

// SpeechConfig 语音识别与合成配置
type SpeechConfig struct {
	// deepgram, whisper
	STTProvider string `yaml:"stt_provider" env:"STT_PROVIDER"`
	// elevenlabs, openai
	TTSProvider       string        `yaml:"tts_provider" env:"TTS_PROVIDER"`
	DeepgramAPIKey    string        `yaml:"deepgram_api_key" env:"DEEPGRAM_API_KEY"`
	OpenAIAPIKey      string        `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	ElevenLabsAPIKey  string        `yaml:"elevenlabs_api_key" env:"ELEVENLABS_API_KEY"`
	ElevenLabsVoiceID string        `yaml:"elevenlabs_voice_id" env:"ELEVENLABS_VOICE_ID"`
	Language          string        `yaml:"language" env:"LANGUAGE"`
	Timeout           time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries        int           `yaml:"max_retries" env:"MAX_RETRIES"`
	// 熔断：连续失败次数与恢复等待
	BreakerThreshold    int           `yaml:"breaker_threshold" env:"BREAKER_THRESHOLD"`
	BreakerResetTimeout time.Duration `yaml:"breaker_reset_timeout" env:"BREAKER_RESET_TIMEOUT"`
}

// AuthConfig 认证配置；JWTSecret 与 APIKeys 都为空时不启用认证
type AuthConfig struct {
	JWTSecret       string   `yaml:"jwt_secret" env:"JWT_SECRET"`
	JWTIssuer       string   `yaml:"jwt_issuer" env:"JWT_ISSUER"`
	APIKeys         []string `yaml:"api_keys" env:"API_KEYS"`
	AllowQueryToken bool     `yaml:"allow_query_token" env:"ALLOW_QUERY_TOKEN"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	legacyEnv  bool
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "ERFLOG",
		legacyEnv:  true,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithLegacyEnv 控制是否读取 SILENCE_THRESHOLD / SILENCE_DURATION / COOLDOWN_SECONDS
func (l *Loader) WithLegacyEnv(enabled bool) *Loader {
	l.legacyEnv = enabled
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// ConfigPath 返回配置文件路径
func (l *Loader) ConfigPath() string { return l.configPath }

// Load 加载配置
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if l.legacyEnv {
		if err := loadLegacyEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to load legacy env: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置，文件不存在时保留默认值
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadLegacyEnv 读取旧部署使用的裸环境变量，时长以秒为单位（可带小数）
func loadLegacyEnv(cfg *Config) error {
	if v := os.Getenv("SILENCE_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SILENCE_THRESHOLD: %w", err)
		}
		cfg.Interview.SilenceThreshold = f
	}
	for key, dst := range map[string]*time.Duration{
		"SILENCE_DURATION": &cfg.Interview.SilenceDuration,
		"COOLDOWN_SECONDS": &cfg.Interview.Cooldown,
	} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

// parseSeconds 接受 "1.5" 或 "1500ms"
func parseSeconds(v string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			out := parts[:0]
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			field.Set(reflect.ValueOf(out))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}

	iv := c.Interview
	if iv.SilenceThreshold < 0 {
		errs = append(errs, "interview.silence_threshold must not be negative")
	}
	if iv.SilenceDuration <= 0 {
		errs = append(errs, "interview.silence_duration must be positive")
	}
	if iv.Cooldown < 0 {
		errs = append(errs, "interview.cooldown must not be negative")
	}
	if iv.BytesPerSecond <= 0 {
		errs = append(errs, "interview.bytes_per_second must be positive")
	}
	if iv.HandshakeTimeout <= 0 {
		errs = append(errs, "interview.handshake_timeout must be positive")
	}
	if iv.FrameQueueSize <= 0 {
		errs = append(errs, "interview.frame_queue_size must be positive")
	}

	switch c.Storage.Backend {
	case "sql", "none":
	case "supabase":
		if c.Supabase.URL == "" || c.Supabase.APIKey == "" {
			errs = append(errs, "supabase backend requires supabase.url and supabase.api_key")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown storage backend %q", c.Storage.Backend))
	}

	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		errs = append(errs, fmt.Sprintf("unknown llm provider %q", c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "llm.temperature must be between 0 and 2")
	}

	switch c.Speech.STTProvider {
	case "deepgram", "whisper":
	default:
		errs = append(errs, fmt.Sprintf("unknown stt provider %q", c.Speech.STTProvider))
	}
	switch c.Speech.TTSProvider {
	case "elevenlabs", "openai":
	default:
		errs = append(errs, fmt.Sprintf("unknown tts provider %q", c.Speech.TTSProvider))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
