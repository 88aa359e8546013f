package speech

import (
	"fmt"
	"net/http"

	"github.com/Adhikkesh/Erflog/config"
)

// NewSTT 根据配置创建 STT Provider，支持 deepgram 与 whisper
func NewSTT(cfg config.SpeechConfig, client *http.Client) (STTProvider, error) {
	switch cfg.STTProvider {
	case "deepgram", "":
		return NewDeepgramProvider(DeepgramConfig{
			APIKey:   cfg.DeepgramAPIKey,
			Language: cfg.Language,
			Timeout:  cfg.Timeout,
		}, client), nil
	case "whisper":
		return NewWhisperProvider(WhisperConfig{
			APIKey:   cfg.OpenAIAPIKey,
			Language: cfg.Language,
			Timeout:  cfg.Timeout,
		}, client), nil
	default:
		return nil, fmt.Errorf("unsupported stt provider: %s", cfg.STTProvider)
	}
}

// NewTTS 根据配置创建 TTS Provider，支持 elevenlabs 与 openai
func NewTTS(cfg config.SpeechConfig, client *http.Client) (TTSProvider, error) {
	switch cfg.TTSProvider {
	case "elevenlabs", "":
		return NewElevenLabsProvider(ElevenLabsConfig{
			APIKey:  cfg.ElevenLabsAPIKey,
			VoiceID: cfg.ElevenLabsVoiceID,
			Timeout: cfg.Timeout,
		}, client), nil
	case "openai":
		return NewOpenAITTSProvider(OpenAITTSConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Timeout: cfg.Timeout,
		}, client), nil
	default:
		return nil, fmt.Errorf("unsupported tts provider: %s", cfg.TTSProvider)
	}
}
