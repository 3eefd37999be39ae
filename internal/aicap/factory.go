package aicap

import (
	"context"
	"fmt"
	"log/slog"
)

// NewFromConfig builds the parser chain from configuration. Providers
// without keys are skipped; the local parser is appended last when
// enabled. Returns nil with no error when nothing is configured, which
// disables AI assistance entirely.
func NewFromConfig(ctx context.Context, cfg LLMConfig) (*FallbackParser, error) {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = RetryConfig{
			MaxAttempts:  DefaultMaxRetryAttempts,
			InitialDelay: DefaultInitialRetryDelay,
			MaxDelay:     DefaultMaxRetryDelay,
		}
	}

	var chain []Parser
	for _, provider := range cfg.ConfiguredProviders() {
		parser, err := newProviderParser(ctx, provider, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize %s parser: %w", provider, err)
		}
		if parser != nil {
			chain = append(chain, parser)
		}
	}

	if cfg.LocalFallback {
		local, err := newLocalParser()
		if err != nil {
			// The embedded dictionary failing to load is unusual but not
			// fatal when remote providers exist.
			slog.WarnContext(ctx, "local parser initialization failed", "error", err)
		} else {
			chain = append(chain, local)
		}
	}

	if len(chain) == 0 {
		return nil, nil //nolint:nilnil // AI assistance disabled
	}

	providers := make([]string, 0, len(chain))
	for _, p := range chain {
		providers = append(providers, string(p.Provider()))
	}
	slog.InfoContext(ctx, "LLM parser chain initialized", "providers", providers)

	return NewFallbackParser(cfg.Retry, chain...), nil
}

func newProviderParser(ctx context.Context, provider Provider, cfg LLMConfig) (Parser, error) {
	switch provider {
	case ProviderGemini:
		p, err := newGeminiParser(ctx, cfg.Gemini.APIKey, firstModel(cfg.Gemini.Models))
		if err != nil || p == nil {
			return nil, err
		}
		return p, nil
	case ProviderGroq:
		p, err := newOpenAIParser(ctx, ProviderGroq, cfg.Groq.APIKey, firstModel(cfg.Groq.Models))
		if err != nil || p == nil {
			return nil, err
		}
		return p, nil
	case ProviderCerebras:
		p, err := newOpenAIParser(ctx, ProviderCerebras, cfg.Cerebras.APIKey, firstModel(cfg.Cerebras.Models))
		if err != nil || p == nil {
			return nil, err
		}
		return p, nil
	case ProviderLocal:
		// Appended separately after the remote chain.
		return nil, nil //nolint:nilnil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

func firstModel(models []string) string {
	if len(models) == 0 {
		return ""
	}
	return models[0]
}
