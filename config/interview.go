package config

import "github.com/Adhikkesh/Erflog/interview"

// EngineConfig 将调优参数转换为指定模式下的引擎配置
func (c InterviewConfig) EngineConfig(mode interview.Mode) interview.Config {
	cfg := interview.DefaultConfig(mode)
	cfg.SilenceThreshold = c.SilenceThreshold
	cfg.SilenceDuration = c.SilenceDuration
	cfg.Cooldown = c.Cooldown
	cfg.PlaybackMargin = c.PlaybackMargin
	if c.BytesPerSecond > 0 {
		cfg.BytesPerSecond = c.BytesPerSecond
	}
	cfg.MaxUtteranceBytes = int(c.MaxUtterance.Seconds() * float64(cfg.BytesPerSecond))
	cfg.CallTimeout = c.CallTimeout
	if mode == interview.ModeText {
		cfg.GracePeriod = c.TextGracePeriod
	} else {
		cfg.GracePeriod = c.VoiceGracePeriod
	}
	if c.FallbackUtterance != "" {
		cfg.FallbackUtterance = c.FallbackUtterance
	}
	if c.Goodbye != "" {
		cfg.Goodbye = c.Goodbye
	}
	return cfg
}
