// Package factory builds the configured chat Provider chain. It imports the
// provider sub-packages, breaking the import cycle that would occur if this
// logic lived in the llm package directly.
package factory

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/config"
	"github.com/Adhikkesh/Erflog/llm"
	"github.com/Adhikkesh/Erflog/llm/circuitbreaker"
	"github.com/Adhikkesh/Erflog/llm/providers/gemini"
	"github.com/Adhikkesh/Erflog/llm/providers/openaicompat"
	"github.com/Adhikkesh/Erflog/llm/retry"
)

// Options are the optional collaborators of the provider chain.
type Options struct {
	// HTTPClient overrides the hardened default client (tests).
	HTTPClient *http.Client
	Observer   llm.Observer
	Tracer     trace.Tracer
	// Retry is passed to the retryer built from cfg.MaxRetries.
	Retry []retry.Option
}

// NewProvider creates the bare provider named by cfg.Provider.
//
// Supported names: gemini, openai.
func NewProvider(cfg config.LLMConfig, client *http.Client, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case "gemini", "":
		return gemini.New(gemini.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, client, logger), nil
	case "openai":
		return openaicompat.New(openaicompat.Config{
			ProviderName: "openai",
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
		}, client, logger), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// New creates the full chain: provider, retry + circuit breaker, observation.
func New(cfg config.LLMConfig, logger *zap.Logger, opts Options) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := NewProvider(cfg, opts.HTTPClient, logger)
	if err != nil {
		return nil, err
	}

	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.MaxRetries
	retryer := retry.New(policy, logger, opts.Retry...)
	breaker := circuitbreaker.New("llm:"+base.Name(), circuitbreaker.DefaultConfig(), logger)

	resilient := llm.NewResilientProvider(base, retryer, breaker, logger)
	return llm.NewObservedProvider(resilient, opts.Observer, opts.Tracer, logger), nil
}
