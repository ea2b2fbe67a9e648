package config

import (
	"testing"
	"time"
)

func baseConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider:         "gemini",
			Model:            "gemini-2.0-flash",
			Timeout:          30 * time.Second,
			APIKey:           "global-key",
			MaxRetries:       3,
			Temperature:      0.7,
			TopK:             40,
			TopP:             0.95,
			MaxOutputTokens:  1024,
			UseSystemPrompts: true,
		},
		Server: ServerConfig{Port: "8080"},
		App: AppConfig{
			DefaultFormat:    "json",
			SupportedFormats: []string{"json", "text", "markdown"},
		},
	}
}

func TestOperationConfigInheritsGlobals(t *testing.T) {
	cfg := baseConfig()

	op := cfg.GetResumeConfig()

	if op.Provider != "gemini" || op.Model != "gemini-2.0-flash" {
		t.Errorf("provider/model = %q/%q", op.Provider, op.Model)
	}
	if op.APIKey != "global-key" {
		t.Errorf("apiKey = %q, want inherited global key", op.APIKey)
	}
	if op.Timeout == nil || *op.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want inherited 30s", op.Timeout)
	}
	if op.Temperature == nil || *op.Temperature != 0.7 {
		t.Errorf("temperature = %v, want inherited 0.7", op.Temperature)
	}
	if op.TopK == nil || *op.TopK != 40 {
		t.Errorf("topK = %v, want inherited 40", op.TopK)
	}
	if op.TopP == nil || *op.TopP != 0.95 {
		t.Errorf("topP = %v, want inherited 0.95", op.TopP)
	}
	if op.MaxOutputTokens == nil || *op.MaxOutputTokens != 1024 {
		t.Errorf("maxOutputTokens = %v, want inherited 1024", op.MaxOutputTokens)
	}
	if op.UseSystemPrompts == nil || !*op.UseSystemPrompts {
		t.Errorf("useSystemPrompts should inherit true")
	}
}

func TestOperationConfigOverrides(t *testing.T) {
	cfg := baseConfig()
	temp := float32(0.2)
	tokens := int32(4096)
	cfg.AI.Generate = ModelConfig{
		Model:           "gemini-2.0-pro",
		Temperature:     &temp,
		MaxOutputTokens: &tokens,
	}

	op := cfg.GetGenerateConfig()

	if op.Model != "gemini-2.0-pro" {
		t.Errorf("model = %q, want override", op.Model)
	}
	if *op.Temperature != 0.2 {
		t.Errorf("temperature = %v, want override 0.2", *op.Temperature)
	}
	if *op.MaxOutputTokens != 4096 {
		t.Errorf("maxOutputTokens = %v, want override 4096", *op.MaxOutputTokens)
	}
	// Untouched fields still inherit
	if op.APIKey != "global-key" {
		t.Errorf("apiKey = %q, want inherited", op.APIKey)
	}
}

func TestFallbackConfigsPreserveOrderAndInherit(t *testing.T) {
	cfg := baseConfig()
	cfg.AI.Resume.Fallbacks = []FallbackConfig{
		{Model: "gemini-2.0-flash-lite"},
		{Provider: "gemini", Model: "gemini-1.5-flash", APIKey: "backup-key"},
	}

	op := cfg.GetResumeConfig()
	chain := op.FallbackConfigs()

	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}
	if chain[0].Model != "gemini-2.0-flash-lite" {
		t.Errorf("chain[0].Model = %q", chain[0].Model)
	}
	if chain[0].APIKey != "global-key" {
		t.Errorf("chain[0] should inherit the operation API key, got %q", chain[0].APIKey)
	}
	if chain[1].APIKey != "backup-key" {
		t.Errorf("chain[1].APIKey = %q, want its own key", chain[1].APIKey)
	}
	if chain[0].Timeout == nil || *chain[0].Timeout != 30*time.Second {
		t.Errorf("fallbacks should inherit timeout")
	}
	if len(chain[0].Fallbacks) != 0 {
		t.Errorf("expanded fallbacks must not recurse")
	}
}

func TestGlobalFallbacksApplyWhenOperationHasNone(t *testing.T) {
	cfg := baseConfig()
	cfg.AI.Fallbacks = []FallbackConfig{{Model: "gemini-1.5-flash"}}

	op := cfg.GetCoverLetterConfig()
	if len(op.Fallbacks) != 1 || op.Fallbacks[0].Model != "gemini-1.5-flash" {
		t.Errorf("operation should inherit global fallbacks, got %v", op.Fallbacks)
	}
}

func TestValidateRejectsMissingAPIKey(t *testing.T) {
	cfg := baseConfig()
	cfg.AI.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject a missing API key")
	}
}

func TestValidateRejectsUnnamedFallback(t *testing.T) {
	cfg := baseConfig()
	cfg.AI.Fallbacks = []FallbackConfig{{Provider: "gemini"}}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject a fallback without a model")
	}
}

func TestValidateServerRequiresDatabaseAndSecret(t *testing.T) {
	cfg := baseConfig()
	if err := cfg.ValidateServer(); err == nil {
		t.Error("ValidateServer should reject a missing database URL")
	}

	cfg.Database.URL = "postgres://localhost/cvstudio"
	if err := cfg.ValidateServer(); err == nil {
		t.Error("ValidateServer should reject a missing JWT secret")
	}

	cfg.Auth.JWTSecret = "secret"
	if err := cfg.ValidateServer(); err != nil {
		t.Errorf("ValidateServer returned unexpected error: %v", err)
	}
}
