package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/llm/circuitbreaker"
	"github.com/Adhikkesh/Erflog/llm/retry"
)

// ResilientProvider 为 Provider 增加重试与熔断。熔断器包在重试之外，
// 一次完整的重试序列只计一次成败。
type ResilientProvider struct {
	provider Provider
	retryer  *retry.Retryer
	breaker  *circuitbreaker.Breaker
	logger   *zap.Logger
}

// NewResilientProvider 创建弹性 Provider，retryer 或 breaker 为 nil 时跳过对应能力
func NewResilientProvider(p Provider, retryer *retry.Retryer, breaker *circuitbreaker.Breaker, logger *zap.Logger) *ResilientProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResilientProvider{
		provider: p,
		retryer:  retryer,
		breaker:  breaker,
		logger:   logger.With(zap.String("component", "llm_resilient"), zap.String("provider", p.Name())),
	}
}

func (r *ResilientProvider) Name() string { return r.provider.Name() }

func (r *ResilientProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	call := func(ctx context.Context) (*ChatResponse, error) {
		return r.provider.Completion(ctx, req)
	}
	if r.retryer != nil {
		inner := call
		call = func(ctx context.Context) (*ChatResponse, error) {
			return retry.Do(ctx, r.retryer, inner)
		}
	}
	if r.breaker != nil {
		return circuitbreaker.Execute(ctx, r.breaker, call)
	}
	return call(ctx)
}
