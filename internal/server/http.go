package server

import (
	"sync"
	"time"

	"cvstudio/internal/ai"
	"cvstudio/internal/auth"
	"cvstudio/internal/blob"
	"cvstudio/internal/config"
	"cvstudio/internal/conversation"
	cvstudioErrors "cvstudio/internal/errors"
	"cvstudio/internal/prompt"
	"cvstudio/internal/store"
	"cvstudio/internal/types"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// SignUpRequest represents the request body for the signup endpoint
type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// LogInRequest represents the request body for the login endpoint
type LogInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries a session token and the account it belongs to
type AuthResponse struct {
	Token string     `json:"token"`
	User  *auth.User `json:"user"`
}

// ResetRequestRequest asks for a password reset mail
type ResetRequestRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest redeems a reset token for a new password
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// CreateSessionRequest starts a new conversation, or resumes one around a
// stored document when documentId is set
type CreateSessionRequest struct {
	Kind           types.DocumentKind `json:"kind"`
	JobDescription string             `json:"jobDescription,omitempty"`
	DocumentID     string             `json:"documentId,omitempty"`
}

// SessionResponse is the wire shape of a conversation session
type SessionResponse struct {
	ID         string             `json:"id"`
	Kind       types.DocumentKind `json:"kind"`
	State      conversation.State `json:"state"`
	DocumentID string             `json:"documentId,omitempty"`
	Document   types.Document     `json:"document"`
	Messages   []types.Message    `json:"messages"`
}

// MessageRequest represents one user turn in a conversation
type MessageRequest struct {
	Message string `json:"message"`
}

// FileTurnResponse reports the per-file outcomes of an upload batch
type FileTurnResponse struct {
	Name   string                   `json:"name"`
	Result *conversation.TurnResult `json:"result,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

// GenerateResponse carries the document with polished content merged in
type GenerateResponse struct {
	Kind     types.DocumentKind `json:"kind"`
	Document types.Document     `json:"document"`
}

// Server holds configuration and wiring for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Persistence and account wiring, initialized in Start
	Store  *store.PostgresStore
	Auth   *auth.Service
	Tokens *auth.TokenService
	Blob   *blob.Store

	// Conversation wiring, one controller per document kind. Guarded by
	// wiringMu because prompt hot-reload swaps it while requests run.
	wiringMu    sync.RWMutex
	builder     *prompt.Builder
	controllers map[types.DocumentKind]*conversation.Controller
	generateSvc *ai.Service
	sessions    *sessionRegistry

	// Logger
	Logger *cvstudioErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// NewServer creates a new Server instance from a ServerConfig struct.
// Database, auth and AI wiring happens in Start, which owns their lifetime.
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *cvstudioErrors.Logger) *Server {
	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		sessions:       newSessionRegistry(),
		Logger:         logger,
	}
}

// controller returns the conversation controller for a document kind
func (s *Server) controller(kind types.DocumentKind) *conversation.Controller {
	s.wiringMu.RLock()
	defer s.wiringMu.RUnlock()
	return s.controllers[kind]
}

// promptBuilder returns the current prompt builder snapshot
func (s *Server) promptBuilder() *prompt.Builder {
	s.wiringMu.RLock()
	defer s.wiringMu.RUnlock()
	return s.builder
}

// generateService returns the AI service for the generate operation
func (s *Server) generateService() *ai.Service {
	s.wiringMu.RLock()
	defer s.wiringMu.RUnlock()
	return s.generateSvc
}
