package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Adhikkesh/Erflog/internal/tlsutil"
	"github.com/Adhikkesh/Erflog/llm/providers"
	"github.com/Adhikkesh/Erflog/types"
)

// DeepgramProvider 使用 Deepgram 预录接口执行 STT
type DeepgramProvider struct {
	cfg    DeepgramConfig
	client *http.Client
}

// NewDeepgramProvider 创建 Deepgram STT，client 为 nil 时使用加固的 TLS 客户端
func NewDeepgramProvider(cfg DeepgramConfig, client *http.Client) *DeepgramProvider {
	def := DefaultDeepgramConfig()
	cfg.BaseURL = orDefault(cfg.BaseURL, def.BaseURL)
	cfg.Model = orDefault(cfg.Model, def.Model)
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if client == nil {
		client = tlsutil.SecureHTTPClient(cfg.Timeout)
	}
	return &DeepgramProvider{cfg: cfg, client: client}
}

func (p *DeepgramProvider) Name() string { return "deepgram" }

type deepgramResponse struct {
	Metadata struct {
		RequestID string  `json:"request_id"`
		Duration  float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language,omitempty"`
			Alternatives     []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe 上传原始 linear16 音频
func (p *DeepgramProvider) Transcribe(ctx context.Context, req *STTRequest) (*STTResponse, error) {
	if len(req.Audio) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "audio is required").WithProvider(p.Name())
	}
	model := orDefault(req.Model, p.cfg.Model)

	params := url.Values{}
	params.Set("model", model)
	params.Set("smart_format", "true")
	params.Set("punctuate", "true")
	params.Set("encoding", "linear16")
	params.Set("sample_rate", strconv.Itoa(SampleRate))
	params.Set("channels", strconv.Itoa(Channels))
	if lang := orDefault(req.Language, p.cfg.Language); lang != "" {
		params.Set("language", lang)
	}

	endpoint := fmt.Sprintf("%s/v1/listen?%s", strings.TrimRight(p.cfg.BaseURL, "/"), params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(req.Audio))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Token "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.TransportError(err, p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if err := providers.CheckResponse(resp, p.Name()); err != nil {
		return nil, err
	}

	var dr deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, providers.DecodeError(err, p.Name())
	}

	result := &STTResponse{
		Provider: p.Name(),
		Model:    model,
		Duration: time.Duration(dr.Metadata.Duration * float64(time.Second)),
	}
	if len(dr.Results.Channels) > 0 {
		ch := dr.Results.Channels[0]
		result.Language = ch.DetectedLanguage
		if len(ch.Alternatives) > 0 {
			result.Text = strings.TrimSpace(ch.Alternatives[0].Transcript)
			result.Confidence = ch.Alternatives[0].Confidence
		}
	}
	return result, nil
}
