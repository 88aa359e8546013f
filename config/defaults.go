// =============================================================================
// 📦 Erflog 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Interview: DefaultInterviewConfig(),
		Storage:   StorageConfig{Backend: "sql"},
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		LLM:       DefaultLLMConfig(),
		Speech:    DefaultSpeechConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8000,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
		MaxMessageBytes: 1 << 20,
	}
}

// DefaultInterviewConfig 返回默认面试调优参数
func DefaultInterviewConfig() InterviewConfig {
	return InterviewConfig{
		SilenceThreshold:  500,
		SilenceDuration:   1200 * time.Millisecond,
		Cooldown:          time.Second,
		PlaybackMargin:    500 * time.Millisecond,
		BytesPerSecond:    32000, // 16kHz * 16bit mono
		MaxUtterance:      60 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		VoiceGracePeriod:  3 * time.Second,
		TextGracePeriod:   time.Second,
		CallTimeout:       60 * time.Second,
		FallbackUtterance: "Could you repeat that?",
		Goodbye:           "Thank you for your time today. We'll review and be in touch soon.",
		FrameQueueSize:    256,
		ChatSessionTTL:    2 * time.Hour,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:         false,
		Addr:            "localhost:6379",
		DB:              0,
		PoolSize:        10,
		MinIdleConns:    2,
		KeyPrefix:       "erflog:",
		ContextCacheTTL: 10 * time.Minute,
		SessionTTL:      2 * time.Hour,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "postgres",
		Host:            "localhost",
		Port:            5432,
		User:            "erflog",
		Name:            "erflog",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:           "gemini",
		Model:              "gemini-2.0-flash",
		Temperature:        0.7,
		MaxTokens:          512,
		Timeout:            60 * time.Second,
		MaxRetries:         2,
		HistoryTokenBudget: 6000,
	}
}

// DefaultSpeechConfig 返回默认语音配置
func DefaultSpeechConfig() SpeechConfig {
	return SpeechConfig{
		STTProvider:         "deepgram",
		TTSProvider:         "elevenlabs",
		ElevenLabsVoiceID:   "21m00Tcm4TlvDq8ikWAM",
		Language:            "en",
		Timeout:             30 * time.Second,
		MaxRetries:          2,
		BreakerThreshold:    5,
		BreakerResetTimeout: 30 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "erflog",
		SampleRate:   0.1,
	}
}
