package media

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/config"
	"github.com/Adhikkesh/Erflog/interview/textutil"
	"github.com/Adhikkesh/Erflog/llm/circuitbreaker"
	"github.com/Adhikkesh/Erflog/llm/retry"
	"github.com/Adhikkesh/Erflog/llm/speech"
	"github.com/Adhikkesh/Erflog/types"
)

// Options 适配器的可选参数
type Options struct {
	Language string
	Retry    retry.Policy
	Breaker  circuitbreaker.Config
	// RetryOptions 透传给 retry.New（测试中替换 sleep）
	RetryOptions []retry.Option
}

// OptionsFrom 从语音配置派生适配器参数
func OptionsFrom(cfg config.SpeechConfig) Options {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.MaxRetries

	breaker := circuitbreaker.DefaultConfig()
	if cfg.BreakerThreshold > 0 {
		breaker.Threshold = cfg.BreakerThreshold
	}
	if cfg.BreakerResetTimeout > 0 {
		breaker.ResetTimeout = cfg.BreakerResetTimeout
	}
	return Options{Language: cfg.Language, Retry: policy, Breaker: breaker}
}

// guarded runs fn through the breaker and, inside it, the retry loop.
type guarded struct {
	retryer *retry.Retryer
	breaker *circuitbreaker.Breaker
}

func newGuarded(name string, opts Options, logger *zap.Logger) guarded {
	return guarded{
		retryer: retry.New(opts.Retry, logger, opts.RetryOptions...),
		breaker: circuitbreaker.New(name, opts.Breaker, logger),
	}
}

func (g guarded) do(ctx context.Context, fn func(ctx context.Context) error) error {
	return g.breaker.Call(ctx, func(ctx context.Context) error {
		return g.retryer.Do(ctx, fn)
	})
}

// Transcriber 把 STTProvider 适配为 interview.Transcriber
type Transcriber struct {
	provider speech.STTProvider
	language string
	guard    guarded
	logger   *zap.Logger
}

// NewTranscriber 创建语音识别适配器
func NewTranscriber(provider speech.STTProvider, opts Options, logger *zap.Logger) *Transcriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "transcriber"), zap.String("provider", provider.Name()))
	return &Transcriber{
		provider: provider,
		language: opts.Language,
		guard:    newGuarded("stt:"+provider.Name(), opts, logger),
		logger:   logger,
	}
}

// Transcribe implements interview.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}
	start := time.Now()
	var resp *speech.STTResponse
	err := t.guard.do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = t.provider.Transcribe(ctx, &speech.STTRequest{Audio: audio, Language: t.language})
		return err
	})
	if err != nil {
		return "", wrap(err, types.ErrTranscriptionFailed, "transcription failed", t.provider.Name())
	}

	text := strings.TrimSpace(resp.Text)
	t.logger.Debug("transcribed",
		zap.Duration("audio", speech.PCMDuration(len(audio), speech.SampleRate, speech.Channels)),
		zap.Duration("latency", time.Since(start)),
		zap.Int("chars", len(text)))
	return text, nil
}

// Synthesizer 把 TTSProvider 适配为 interview.Synthesizer。
// 文本在送入合成前去掉 markdown 标记。
type Synthesizer struct {
	provider speech.TTSProvider
	language string
	guard    guarded
	logger   *zap.Logger
}

// NewSynthesizer 创建语音合成适配器
func NewSynthesizer(provider speech.TTSProvider, opts Options, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "synthesizer"), zap.String("provider", provider.Name()))
	return &Synthesizer{
		provider: provider,
		language: opts.Language,
		guard:    newGuarded("tts:"+provider.Name(), opts, logger),
		logger:   logger,
	}
}

// Synthesize implements interview.Synthesizer. Blank text yields no audio.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(textutil.StripMarkdown(text))
	if text == "" {
		return nil, nil
	}
	start := time.Now()
	var resp *speech.TTSResponse
	err := s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = s.provider.Synthesize(ctx, &speech.TTSRequest{Text: text, Language: s.language})
		return err
	})
	if err != nil {
		return nil, wrap(err, types.ErrSynthesisFailed, "synthesis failed", s.provider.Name())
	}

	s.logger.Debug("synthesized",
		zap.Int("chars", len(text)),
		zap.Int("bytes", len(resp.Audio)),
		zap.Duration("latency", time.Since(start)))
	return resp.Audio, nil
}

// wrap keeps context errors and open-breaker errors recognizable while
// tagging everything else with the collaborator's error code.
func wrap(err error, code types.ErrorCode, msg, provider string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if types.IsErrorCode(err, types.ErrServiceUnavailable) {
		return err
	}
	return types.NewError(code, msg).WithCause(err).WithProvider(provider)
}
