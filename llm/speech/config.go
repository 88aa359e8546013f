package speech

import "time"

// DeepgramConfig 配置 Deepgram STT
type DeepgramConfig struct {
	APIKey   string
	BaseURL  string
	Model    string // nova-2
	Language string
	Timeout  time.Duration
}

// WhisperConfig 配置 OpenAI Whisper STT
type WhisperConfig struct {
	APIKey   string
	BaseURL  string
	Model    string // whisper-1
	Language string
	Timeout  time.Duration
}

// ElevenLabsConfig 配置 ElevenLabs TTS
type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	Model   string // eleven_turbo_v2_5
	VoiceID string
	Timeout time.Duration
}

// OpenAITTSConfig 配置 OpenAI TTS
type OpenAITTSConfig struct {
	APIKey  string
	BaseURL string
	Model   string // tts-1
	Voice   string // alloy, echo, fable, onyx, nova, shimmer
	Timeout time.Duration
}

// DefaultDeepgramConfig 返回默认 Deepgram 配置
func DefaultDeepgramConfig() DeepgramConfig {
	return DeepgramConfig{
		BaseURL:  "https://api.deepgram.com",
		Model:    "nova-2",
		Language: "en",
		Timeout:  30 * time.Second,
	}
}

// DefaultWhisperConfig 返回默认 Whisper 配置
func DefaultWhisperConfig() WhisperConfig {
	return WhisperConfig{
		BaseURL:  "https://api.openai.com",
		Model:    "whisper-1",
		Language: "en",
		Timeout:  60 * time.Second,
	}
}

// DefaultElevenLabsConfig 返回默认 ElevenLabs 配置
func DefaultElevenLabsConfig() ElevenLabsConfig {
	return ElevenLabsConfig{
		BaseURL: "https://api.elevenlabs.io",
		Model:   "eleven_turbo_v2_5",
		VoiceID: "21m00Tcm4TlvDq8ikWAM", // Rachel
		Timeout: 30 * time.Second,
	}
}

// DefaultOpenAITTSConfig 返回默认 OpenAI TTS 配置
func DefaultOpenAITTSConfig() OpenAITTSConfig {
	return OpenAITTSConfig{
		BaseURL: "https://api.openai.com",
		Model:   "tts-1",
		Voice:   "alloy",
		Timeout: 30 * time.Second,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
