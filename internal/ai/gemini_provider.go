package ai

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"cvstudio/internal/config"
	cvstudioErrors "cvstudio/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GeminiProvider implements ModelProvider for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	config         *config.ModelConfig
	circuitBreaker *ModelCallBreaker
	infoBreaker    *ModelInfoBreaker
	logger         *cvstudioErrors.Logger
}

// Ensure GeminiProvider implements ModelProvider
var _ ModelProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg *config.ModelConfig, operationType string, logger *cvstudioErrors.Logger) (*GeminiProvider, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, cvstudioErrors.NewConfigError(cvstudioErrors.ErrCodeInvalidConfig,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:         client,
		config:         cfg,
		circuitBreaker: NewModelCallBreaker(operationType, cfg, logger),
		infoBreaker:    NewModelInfoBreaker(operationType, cfg, logger),
		logger:         logger,
	}, nil
}

// Name identifies the provider and model for fallback-chain logging
func (g *GeminiProvider) Name() string {
	return fmt.Sprintf("gemini/%s", g.config.Model)
}

// Generate sends one prompt (and optional attachment) to Gemini and returns
// the raw textual reply. Exactly one upstream round trip is made per
// attempt; transport failures are retried with bounded exponential backoff,
// credential and quota failures are not.
func (g *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (string, *TokenUsage, error) {
	tracer := otel.Tracer("cvstudio.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
		attribute.Int("input.prompt_length", len(req.Prompt)),
		attribute.Bool("input.has_attachment", req.Attachment != nil),
	)

	genaiConfig := g.buildGenerateConfig()
	if *g.config.UseSystemPrompts && req.SystemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	contents := buildContents(req)

	ctx, cancel := context.WithTimeout(ctx, *g.config.Timeout)
	defer cancel()

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, contents, genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, g.classifyError(err)
	}

	text := result.Text()
	if text == "" {
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, cvstudioErrors.NewParseError(cvstudioErrors.ErrCodeMalformedUpstream,
			"Gemini returned a success response without any candidate text", nil)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return text, tokenUsage, nil
}

// buildContents assembles the request parts. An attachment rides as a
// second inline-data part next to the prompt text; the SDK base64-encodes
// the bytes on the wire and the mime type is passed through unchanged.
func buildContents(req GenerateRequest) []*genai.Content {
	if req.Attachment == nil {
		return genai.Text(req.Prompt)
	}

	parts := []*genai.Part{
		genai.NewPartFromText(req.Prompt),
		genai.NewPartFromBytes(req.Attachment.Bytes, req.Attachment.MIMEType),
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

// buildGenerateConfig creates the generation configuration from operation config
func (g *GeminiProvider) buildGenerateConfig() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		MaxOutputTokens:  *g.config.MaxOutputTokens,
	}
	if *g.config.Temperature > 0 {
		cfg.Temperature = g.config.Temperature
	}
	if *g.config.TopK > 0 {
		cfg.TopK = g.config.TopK
	}
	if *g.config.TopP > 0 {
		cfg.TopP = g.config.TopP
	}
	return cfg
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	model, err := g.infoBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	if model.DisplayName != "" {
		modelInfo.DisplayName = model.DisplayName
	}
	if model.Version != "" {
		modelInfo.Version = model.Version
	}

	return modelInfo
}

// IsHealthy reports whether the provider's call breaker is closed
func (g *GeminiProvider) IsHealthy() bool {
	return g.circuitBreaker.IsHealthy() && g.infoBreaker.IsHealthy()
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"generate_calls":  g.circuitBreaker.GetStats(),
		"model_info":      g.infoBreaker.GetStats(),
		"overall_healthy": g.IsHealthy(),
	}
}

// Close implements ModelProvider
func (g *GeminiProvider) Close() error {
	// The Gemini client holds no connection state in single-shot usage
	return nil
}

// executeWithRetry runs the upstream call with retry on transport errors
// only; credential and quota errors fail fast.
func (g *GeminiProvider) executeWithRetry(ctx context.Context, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= *g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying model call",
				"attempt", attempt,
				"max_retries", *g.config.MaxRetries,
				"error", lastErr.Error())

			// Exponential backoff with jitter to prevent thundering herd
			baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			jitterMax := big.NewInt(int64(float64(baseDelay) * 0.1))
			jitterBig, _ := rand.Int(rand.Reader, jitterMax)
			backoff := min(baseDelay+time.Duration(jitterBig.Int64()), 30*time.Second)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("Model call succeeded after retry",
					"successful_attempt", attempt+1)
			}
			return result, nil
		}

		lastErr = err

		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"error", err.Error())
			break
		}
	}

	return nil, lastErr
}

// isRetryableError reports whether an upstream failure is a transport-class
// error. Auth and quota responses are deliberately excluded.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// classifyError maps an upstream failure into the application taxonomy:
// transport (net/5xx/timeout), auth (401/403), quota (429).
func (g *GeminiProvider) classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return cvstudioErrors.NewTransportError(cvstudioErrors.ErrCodeModelTimeout,
			"Model call timed out", err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return cvstudioErrors.NewAuthError(cvstudioErrors.ErrCodeBadCredential,
				"Model endpoint rejected the configured credential", err)
		case http.StatusTooManyRequests:
			return cvstudioErrors.NewQuotaError(cvstudioErrors.ErrCodeQuotaExceeded,
				"Model endpoint is rate limiting requests", err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return cvstudioErrors.NewTransportError(cvstudioErrors.ErrCodeModelTimeout,
			"Model call timed out", err)
	}

	return cvstudioErrors.NewTransportError(cvstudioErrors.ErrCodeModelUnreachable,
		"Failed to reach the model endpoint", err)
}

// extractTokenUsage extracts token usage information from a Gemini response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
