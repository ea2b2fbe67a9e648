package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration - Global defaults
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.topK", 40)
	v.SetDefault("ai.topP", 0.95)
	v.SetDefault("ai.maxOutputTokens", 1024)
	v.SetDefault("ai.useSystemPrompts", true)

	// AI Configuration - Resume extraction defaults
	v.SetDefault("ai.resume.provider", "")
	v.SetDefault("ai.resume.model", "")
	v.SetDefault("ai.resume.apiKey", "")

	// AI Configuration - Cover letter extraction defaults
	v.SetDefault("ai.coverLetter.provider", "")
	v.SetDefault("ai.coverLetter.model", "")
	v.SetDefault("ai.coverLetter.apiKey", "")

	// AI Configuration - Generation defaults. Generation produces longer
	// output than extraction, so it gets a larger token budget.
	v.SetDefault("ai.generate.provider", "")
	v.SetDefault("ai.generate.model", "")
	v.SetDefault("ai.generate.apiKey", "")
	v.SetDefault("ai.generate.maxOutputTokens", 4096)

	// Circuit Breaker Configuration defaults for all operations
	for _, op := range []string{"resume", "coverLetter", "generate"} {
		v.SetDefault("ai."+op+".circuitBreaker.enabled", true)
		v.SetDefault("ai."+op+".circuitBreaker.maxRequests", 3)
		v.SetDefault("ai."+op+".circuitBreaker.interval", 60*time.Second)
		v.SetDefault("ai."+op+".circuitBreaker.timeout", 60*time.Second)
		v.SetDefault("ai."+op+".circuitBreaker.minRequests", 3)
		v.SetDefault("ai."+op+".circuitBreaker.failureThreshold", 0.6)
	}

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 60*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxRequestSize", 10*1024*1024) // 10MB, bounded by upload sizes

	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byUser", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// Database Configuration
	v.SetDefault("database.url", "")
	v.SetDefault("database.maxConns", 10)

	// Storage Configuration
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accessKey", "")
	v.SetDefault("storage.secretKey", "")
	v.SetDefault("storage.presignExpiry", 15*time.Minute)

	// Email Configuration
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.fromAddress", "")
	v.SetDefault("email.fromName", "CV Studio")
	v.SetDefault("email.frontendURL", "http://localhost:3000")

	// Auth Configuration
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.tokenTTL", 24*time.Hour)
	v.SetDefault("auth.bcryptCost", 12)
	v.SetDefault("auth.resetTTL", time.Hour)

	// Conversation Configuration
	v.SetDefault("conversation.turnTimeout", 30*time.Second)
	v.SetDefault("conversation.autoSaveDebounce", 2*time.Second)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024)

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.geminiKey", "")
	v.SetDefault("vault.secrets.jwtSecret", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "cvstudio")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	// Tracing Configuration
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)

	// Metrics Configuration
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	// Console Configuration
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)

	// Prometheus Configuration
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	// OTLP Configuration
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})

	// Health Check Configuration
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.aiModelCheckTimeout", 10*time.Second)
}
