package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Adhikkesh/Erflog/internal/tlsutil"
	"github.com/Adhikkesh/Erflog/llm/providers"
	"github.com/Adhikkesh/Erflog/types"
)

// maxAudioBytes 限制单次合成读取的音频大小（约 5 分钟 16 kHz PCM）
const maxAudioBytes = 10 << 20

// ElevenLabsProvider 使用 ElevenLabs 执行 TTS
type ElevenLabsProvider struct {
	cfg    ElevenLabsConfig
	client *http.Client
}

// NewElevenLabsProvider 创建 ElevenLabs TTS
func NewElevenLabsProvider(cfg ElevenLabsConfig, client *http.Client) *ElevenLabsProvider {
	def := DefaultElevenLabsConfig()
	cfg.BaseURL = orDefault(cfg.BaseURL, def.BaseURL)
	cfg.Model = orDefault(cfg.Model, def.Model)
	cfg.VoiceID = orDefault(cfg.VoiceID, def.VoiceID)
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if client == nil {
		client = tlsutil.SecureHTTPClient(cfg.Timeout)
	}
	return &ElevenLabsProvider{cfg: cfg, client: client}
}

func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

type elevenLabsRequest struct {
	Text         string `json:"text"`
	ModelID      string `json:"model_id"`
	LanguageCode string `json:"language_code,omitempty"`
}

// Synthesize 请求 pcm_16000 输出，响应体即通道格式
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, req *TTSRequest) (*TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "text is required").WithProvider(p.Name())
	}
	model := orDefault(req.Model, p.cfg.Model)
	voiceID := orDefault(req.Voice, p.cfg.VoiceID)

	payload, err := json.Marshal(elevenLabsRequest{Text: req.Text, ModelID: model, LanguageCode: req.Language})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=pcm_%d",
		strings.TrimRight(p.cfg.BaseURL, "/"), voiceID, SampleRate)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/pcm")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.TransportError(err, p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if err := providers.CheckResponse(resp, p.Name()); err != nil {
		return nil, err
	}
	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, providers.TransportError(err, p.Name())
	}
	audio = audio[:len(audio)&^1]

	return &TTSResponse{
		Provider:  p.Name(),
		Model:     model,
		Audio:     audio,
		Duration:  PCMDuration(len(audio), SampleRate, Channels),
		CharCount: len(req.Text),
	}, nil
}
