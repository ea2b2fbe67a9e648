package ai

import (
	"context"
	"fmt"

	"cvstudio/internal/config"
	"cvstudio/internal/errors"
)

// Service routes generation calls through an ordered chain of model
// providers. The chain is assembled once from configuration; providers are
// tried in sequence and the first success wins. There is no per-call
// re-detection of which backend to use.
type Service struct {
	providers []ModelProvider
	logger    *errors.Logger
}

// NewService creates an AI service for a specific operation from its
// configured primary provider and optional fallbacks
func NewService(cfg *config.ModelConfig, operationType string, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"operation_type", operationType,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"fallbacks", len(cfg.Fallbacks))

	chain := append([]config.ModelConfig{*cfg}, cfg.FallbackConfigs()...)

	providers := make([]ModelProvider, 0, len(chain))
	for i := range chain {
		provider, err := newProvider(&chain[i], operationType, logger)
		if err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("Failed to create provider %d in chain", i), err)
		}
		providers = append(providers, provider)
	}

	return &Service{
		providers: providers,
		logger:    logger,
	}, nil
}

func newProvider(cfg *config.ModelConfig, operationType string, logger *errors.Logger) (ModelProvider, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(cfg, operationType, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
}

// Generate tries each provider in the configured order until one succeeds.
// An auth failure on one provider does not stop the chain: a fallback may
// carry its own working credential. Context cancellation stops immediately.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (string, *TokenUsage, error) {
	var lastErr error

	for i, provider := range s.providers {
		if ctx.Err() != nil {
			return "", nil, errors.NewTransportError(errors.ErrCodeModelTimeout,
				"Generation cancelled", ctx.Err())
		}

		reply, usage, err := provider.Generate(ctx, req)
		if err == nil {
			if i > 0 {
				s.logger.Info("Fallback provider served the request",
					"provider", provider.Name(),
					"chain_position", i)
			}
			return reply, usage, nil
		}

		lastErr = err
		if i < len(s.providers)-1 {
			s.logger.Warn("Provider failed, trying next in chain",
				"provider", provider.Name(),
				"chain_position", i,
				"error", err.Error())
		}
	}

	return "", nil, lastErr
}

// GetModelInfo returns availability info for the primary provider
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.providers[0].GetModelInfo(ctx)
}

// Primary exposes the first provider in the chain for health checks
func (s *Service) Primary() ModelProvider {
	return s.providers[0]
}

// Close releases every provider in the chain
func (s *Service) Close() error {
	var firstErr error
	for _, provider := range s.providers {
		if err := provider.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
