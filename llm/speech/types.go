package speech

import (
	"context"
	"time"
)

// 通道音频格式
const (
	SampleRate     = 16000
	Channels       = 1
	BytesPerSample = 2
)

// ============================================================
// 语音转文本 (STT)
// ============================================================

// STTRequest 是一次转写请求，Audio 为 16 kHz 16-bit 单声道 PCM
type STTRequest struct {
	Audio    []byte
	Model    string
	Language string // ISO-639-1
	Prompt   string // 上下文提示，部分服务商支持
}

// STTResponse 是转写结果
type STTResponse struct {
	Provider   string        `json:"provider"`
	Model      string        `json:"model"`
	Text       string        `json:"text"`
	Language   string        `json:"language,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// STTProvider 定义语音转文本接口
type STTProvider interface {
	Transcribe(ctx context.Context, req *STTRequest) (*STTResponse, error)
	Name() string
}

// ============================================================
// 文本转语音 (TTS)
// ============================================================

// TTSRequest 是一次合成请求
type TTSRequest struct {
	Text     string
	Model    string
	Voice    string
	Language string
}

// TTSResponse 是合成结果，Audio 为 16 kHz 16-bit 单声道 PCM
type TTSResponse struct {
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	Audio     []byte        `json:"-"`
	Duration  time.Duration `json:"duration"`
	CharCount int           `json:"char_count"`
}

// TTSProvider 定义文本转语音接口
type TTSProvider interface {
	Synthesize(ctx context.Context, req *TTSRequest) (*TTSResponse, error)
	Name() string
}
