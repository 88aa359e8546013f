package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Adhikkesh/Erflog/internal/tlsutil"
	"github.com/Adhikkesh/Erflog/llm/providers"
	"github.com/Adhikkesh/Erflog/types"
)

// WhisperProvider 使用 OpenAI /v1/audio/transcriptions 执行 STT
type WhisperProvider struct {
	cfg    WhisperConfig
	client *http.Client
}

// NewWhisperProvider 创建 Whisper STT
func NewWhisperProvider(cfg WhisperConfig, client *http.Client) *WhisperProvider {
	def := DefaultWhisperConfig()
	cfg.BaseURL = orDefault(cfg.BaseURL, def.BaseURL)
	cfg.Model = orDefault(cfg.Model, def.Model)
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if client == nil {
		client = tlsutil.SecureHTTPClient(cfg.Timeout)
	}
	return &WhisperProvider{cfg: cfg, client: client}
}

func (p *WhisperProvider) Name() string { return "whisper" }

type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Transcribe 将 PCM 包装为 WAV 后以 multipart 上传
func (p *WhisperProvider) Transcribe(ctx context.Context, req *STTRequest) (*STTResponse, error) {
	if len(req.Audio) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "audio is required").WithProvider(p.Name())
	}
	model := orDefault(req.Model, p.cfg.Model)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(WrapWAV(req.Audio, SampleRate, Channels)); err != nil {
		return nil, fmt.Errorf("failed to write audio: %w", err)
	}
	_ = writer.WriteField("model", model)
	_ = writer.WriteField("response_format", "json")
	if lang := orDefault(req.Language, p.cfg.Language); lang != "" {
		_ = writer.WriteField("language", lang)
	}
	if req.Prompt != "" {
		_ = writer.WriteField("prompt", req.Prompt)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.TransportError(err, p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if err := providers.CheckResponse(resp, p.Name()); err != nil {
		return nil, err
	}

	var wr whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, providers.DecodeError(err, p.Name())
	}
	return &STTResponse{
		Provider: p.Name(),
		Model:    model,
		Text:     strings.TrimSpace(wr.Text),
		Language: wr.Language,
		Duration: PCMDuration(len(req.Audio), SampleRate, Channels),
	}, nil
}
