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

// openAIPCMRate 是 OpenAI response_format=pcm 的固定采样率
const openAIPCMRate = 24000

// OpenAITTSProvider 使用 OpenAI /v1/audio/speech 执行 TTS
type OpenAITTSProvider struct {
	cfg    OpenAITTSConfig
	client *http.Client
}

// NewOpenAITTSProvider 创建 OpenAI TTS
func NewOpenAITTSProvider(cfg OpenAITTSConfig, client *http.Client) *OpenAITTSProvider {
	def := DefaultOpenAITTSConfig()
	cfg.BaseURL = orDefault(cfg.BaseURL, def.BaseURL)
	cfg.Model = orDefault(cfg.Model, def.Model)
	cfg.Voice = orDefault(cfg.Voice, def.Voice)
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if client == nil {
		client = tlsutil.SecureHTTPClient(cfg.Timeout)
	}
	return &OpenAITTSProvider{cfg: cfg, client: client}
}

func (p *OpenAITTSProvider) Name() string { return "openai-tts" }

type openAITTSRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize 获取 24 kHz PCM 并重采样到 16 kHz
func (p *OpenAITTSProvider) Synthesize(ctx context.Context, req *TTSRequest) (*TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "text is required").WithProvider(p.Name())
	}
	model := orDefault(req.Model, p.cfg.Model)

	payload, err := json.Marshal(openAITTSRequest{
		Model:          model,
		Input:          req.Text,
		Voice:          orDefault(req.Voice, p.cfg.Voice),
		ResponseFormat: "pcm",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/v1/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	providers.BearerTokenHeaders(httpReq, p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.TransportError(err, p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if err := providers.CheckResponse(resp, p.Name()); err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, providers.TransportError(err, p.Name())
	}

	audio := Resample(raw, openAIPCMRate, SampleRate)
	return &TTSResponse{
		Provider:  p.Name(),
		Model:     model,
		Audio:     audio,
		Duration:  PCMDuration(len(audio), SampleRate, Channels),
		CharCount: len(req.Text),
	}, nil
}
