package config

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *ModelConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	if opCfg.TopK == nil {
		opCfg.TopK = &c.AI.TopK
	}
	if opCfg.TopP == nil {
		opCfg.TopP = &c.AI.TopP
	}
	if opCfg.MaxOutputTokens == nil {
		opCfg.MaxOutputTokens = &c.AI.MaxOutputTokens
	}
	// UseSystemPrompts: apply global default only if not explicitly set
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}
	if len(opCfg.Fallbacks) == 0 {
		opCfg.Fallbacks = c.AI.Fallbacks
	}
}

// GetResumeConfig returns the AI configuration for resume extraction with
// fallback to global config
func (c *Config) GetResumeConfig() ModelConfig {
	config := c.AI.Resume
	c.applyOperationDefaults(&config)

	if config.CustomPrompts.SystemPrompts.ExtractResume == "" {
		config.CustomPrompts.SystemPrompts.ExtractResume = c.AI.CustomPrompts.SystemPrompts.ExtractResume
	}
	if config.CustomPrompts.UserPrompts.ExtractResume == "" {
		config.CustomPrompts.UserPrompts.ExtractResume = c.AI.CustomPrompts.UserPrompts.ExtractResume
	}

	return config
}

// GetCoverLetterConfig returns the AI configuration for cover letter
// extraction with fallback to global config
func (c *Config) GetCoverLetterConfig() ModelConfig {
	config := c.AI.CoverLetter
	c.applyOperationDefaults(&config)

	if config.CustomPrompts.SystemPrompts.ExtractCoverLetter == "" {
		config.CustomPrompts.SystemPrompts.ExtractCoverLetter = c.AI.CustomPrompts.SystemPrompts.ExtractCoverLetter
	}
	if config.CustomPrompts.UserPrompts.ExtractCoverLetter == "" {
		config.CustomPrompts.UserPrompts.ExtractCoverLetter = c.AI.CustomPrompts.UserPrompts.ExtractCoverLetter
	}

	return config
}

// GetGenerateConfig returns the AI configuration for document generation
// with fallback to global config
func (c *Config) GetGenerateConfig() ModelConfig {
	config := c.AI.Generate
	c.applyOperationDefaults(&config)

	if config.CustomPrompts.SystemPrompts.Generate == "" {
		config.CustomPrompts.SystemPrompts.Generate = c.AI.CustomPrompts.SystemPrompts.Generate
	}
	if config.CustomPrompts.UserPrompts.GenerateResume == "" {
		config.CustomPrompts.UserPrompts.GenerateResume = c.AI.CustomPrompts.UserPrompts.GenerateResume
	}
	if config.CustomPrompts.UserPrompts.GenerateCoverLetter == "" {
		config.CustomPrompts.UserPrompts.GenerateCoverLetter = c.AI.CustomPrompts.UserPrompts.GenerateCoverLetter
	}

	return config
}

// FallbackConfigs expands the fallback entries into full model configs
// inheriting everything the entry does not override. The resulting slice
// preserves the configured chain order.
func (m *ModelConfig) FallbackConfigs() []ModelConfig {
	if len(m.Fallbacks) == 0 {
		return nil
	}

	configs := make([]ModelConfig, 0, len(m.Fallbacks))
	for _, fb := range m.Fallbacks {
		cfg := *m
		cfg.Fallbacks = nil
		if fb.Provider != "" {
			cfg.Provider = fb.Provider
		}
		if fb.Model != "" {
			cfg.Model = fb.Model
		}
		if fb.APIKey != "" {
			cfg.APIKey = fb.APIKey
		}
		configs = append(configs, cfg)
	}
	return configs
}
