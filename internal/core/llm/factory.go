package llm

import (
	"context"
	"fmt"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/config"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
)

// NewProvider builds the provider named by LLM_PROVIDER. Missing credentials
// come back wrapped in core.ErrConfiguration.
func NewProvider(ctx context.Context, cfg *config.Config) (core.LLMProvider, error) {
	switch cfg.LLMProvider {
	case "openai", "":
		p, err := NewOpenAILLM(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.LLMTimeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "gemini":
		p, err := NewGeminiLLM(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "mock":
		return MockLLM{}, nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q: %w", cfg.LLMProvider, core.ErrConfiguration)
	}
}
