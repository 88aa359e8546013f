package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Observer 接收每次补全的统计
type Observer interface {
	RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int)
}

// ObservedProvider 记录补全时延、token 用量，并为每次调用开一个 span
type ObservedProvider struct {
	provider Provider
	observer Observer
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewObservedProvider 包装 p。observer 与 tracer 均可为 nil。
func NewObservedProvider(p Provider, observer Observer, tracer trace.Tracer, logger *zap.Logger) *ObservedProvider {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("llm")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObservedProvider{provider: p, observer: observer, tracer: tracer, logger: logger}
}

func (o *ObservedProvider) Name() string { return o.provider.Name() }

func (o *ObservedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	ctx, span := o.tracer.Start(ctx, "llm.completion", trace.WithAttributes(
		attribute.String("llm.provider", o.provider.Name()),
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.messages", len(req.Messages)),
	))
	defer span.End()

	start := time.Now()
	resp, err := o.provider.Completion(ctx, req)
	elapsed := time.Since(start)

	status := "success"
	model := req.Model
	var usage ChatUsage
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn("llm completion failed",
			zap.String("provider", o.provider.Name()),
			zap.Duration("latency", elapsed),
			zap.Error(err),
		)
	} else {
		usage = resp.Usage
		if resp.Model != "" {
			model = resp.Model
		}
		span.SetAttributes(
			attribute.Int("llm.prompt_tokens", usage.PromptTokens),
			attribute.Int("llm.completion_tokens", usage.CompletionTokens),
		)
	}
	if o.observer != nil {
		o.observer.RecordLLMRequest(o.provider.Name(), model, status, elapsed, usage.PromptTokens, usage.CompletionTokens)
	}
	return resp, err
}
