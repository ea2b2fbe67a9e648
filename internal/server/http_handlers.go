package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"cvstudio/internal/ai"
	"cvstudio/internal/config"
	apperrors "cvstudio/internal/errors"
)

// getHealthCheckTimeout returns the configured health check timeout
func (s *Server) getHealthCheckTimeout() time.Duration {
	return s.AppConfig.Observability.HealthCheck.Timeout
}

// healthHandler provides a comprehensive health check endpoint including AI
// model status and database connectivity
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "cvstudio",
		"version": s.Version,
	}

	// Check AI model availability for all operations
	aiStatus := s.checkAIModelsHealth()
	response["ai_models"] = aiStatus

	// Check circuit breaker status
	circuitBreakerStatus := s.checkCircuitBreakerHealth()
	response["circuit_breakers"] = circuitBreakerStatus

	// Check database connectivity
	dbStatus := s.checkDatabaseHealth(r.Context())
	response["database"] = dbStatus

	// Determine overall health status
	overallHealthy := true
	for _, modelStatus := range aiStatus {
		if modelInfo, ok := modelStatus.(map[string]any); ok {
			if available, exists := modelInfo["available"]; exists {
				if avail, ok := available.(bool); ok && !avail {
					overallHealthy = false
					break
				}
			}
		}
	}
	if healthy, ok := dbStatus["healthy"].(bool); ok && !healthy {
		overallHealthy = false
	}

	if !overallHealthy {
		response["status"] = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		log.Printf("Failed to encode health response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// checkAIModelsHealth checks the health of all AI models used by different operations
func (s *Server) checkAIModelsHealth() map[string]any {
	// Use configurable health check timeout
	timeout := s.getHealthCheckTimeout()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	aiStatus := make(map[string]any)

	// Check resume extraction model
	resumeConfig := s.AppConfig.GetResumeConfig()
	if resumeService, err := ai.NewService(&resumeConfig, "resume", s.Logger); err == nil {
		modelInfo := resumeService.GetModelInfo(ctx)
		aiStatus["resume"] = modelInfo
	} else {
		aiStatus["resume"] = map[string]any{
			"available": false,
			"error":     fmt.Sprintf("Failed to create resume service: %v", err),
		}
	}

	// Check cover letter extraction model
	coverLetterConfig := s.AppConfig.GetCoverLetterConfig()
	if coverLetterService, err := ai.NewService(&coverLetterConfig, "coverLetter", s.Logger); err == nil {
		modelInfo := coverLetterService.GetModelInfo(ctx)
		aiStatus["coverLetter"] = modelInfo
	} else {
		aiStatus["coverLetter"] = map[string]any{
			"available": false,
			"error":     fmt.Sprintf("Failed to create cover letter service: %v", err),
		}
	}

	// Check generation model
	generateConfig := s.AppConfig.GetGenerateConfig()
	if generateService, err := ai.NewService(&generateConfig, "generate", s.Logger); err == nil {
		modelInfo := generateService.GetModelInfo(ctx)
		aiStatus["generate"] = modelInfo
	} else {
		aiStatus["generate"] = map[string]any{
			"available": false,
			"error":     fmt.Sprintf("Failed to create generate service: %v", err),
		}
	}

	return aiStatus
}

// checkCircuitBreakerHealth checks the health of circuit breakers for all AI operations
func (s *Server) checkCircuitBreakerHealth() map[string]any {
	circuitBreakerStatus := make(map[string]any)

	for _, operation := range []string{"resume", "coverLetter", "generate"} {
		cfg := s.operationConfig(operation)
		if _, err := ai.NewService(&cfg, operation, s.Logger); err == nil {
			circuitBreakerStatus[operation] = map[string]any{
				"available": true,
				"message":   fmt.Sprintf("Circuit breaker integrated with %s service", operation),
			}
		} else {
			circuitBreakerStatus[operation] = map[string]any{
				"available": false,
				"error":     fmt.Sprintf("Failed to create %s service: %v", operation, err),
			}
		}
	}

	return circuitBreakerStatus
}

// operationConfig resolves the model config for a named AI operation
func (s *Server) operationConfig(operation string) config.ModelConfig {
	switch operation {
	case "coverLetter":
		return s.AppConfig.GetCoverLetterConfig()
	case "generate":
		return s.AppConfig.GetGenerateConfig()
	default:
		return s.AppConfig.GetResumeConfig()
	}
}

// checkDatabaseHealth pings the document store
func (s *Server) checkDatabaseHealth(ctx context.Context) map[string]any {
	if s.Store == nil {
		return map[string]any{
			"healthy": false,
			"error":   "store not initialized",
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.getHealthCheckTimeout())
	defer cancel()

	if err := s.Store.Pool().Ping(pingCtx); err != nil {
		return map[string]any{
			"healthy": false,
			"error":   err.Error(),
		}
	}
	return map[string]any{"healthy": true}
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "cvstudio",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
		"sessions": map[string]any{
			"active": s.sessions.Len(),
		},
	}

	// Add rate limiting stats if enabled
	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	// Add configuration info
	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_user":          s.RateLimit.ByUser,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		log.Printf("Failed to encode stats response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	if r.Header.Get("Content-Type") != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// writeJSONResponse writes a JSON body with the given status code
func writeJSONResponse(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   error,
		Message: message,
	}

	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		log.Printf("Failed to encode error response: %v", err)
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}

// writeAppError maps an application error to an HTTP status and writes it
func writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := ""
	message := err.Error()

	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message
		status = statusForAppError(appErr)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
	}
	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		log.Printf("Failed to encode error response: %v", encodeErr)
	}
}

// statusForAppError picks the HTTP status for a structured error
func statusForAppError(appErr *apperrors.AppError) int {
	switch appErr.Code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeTurnInProgress, apperrors.ErrCodeSessionClosed, apperrors.ErrCodeEmailTaken:
		return http.StatusConflict
	case apperrors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperrors.ErrCodeUnsupportedFileType:
		return http.StatusUnsupportedMediaType
	case apperrors.ErrCodeInvalidCredentials, apperrors.ErrCodeInvalidResetToken, apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	}

	switch appErr.Type {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeAuth:
		return http.StatusUnauthorized
	case apperrors.ErrorTypeQuota:
		return http.StatusTooManyRequests
	case apperrors.ErrorTypeTransport, apperrors.ErrorTypeParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
