package server

import (
	"net/http"

	"cvstudio/internal/observability"
)

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes(om *observability.ObservabilityManager) *http.ServeMux {
	mux := http.NewServeMux()

	// Add middleware layers with observability
	rateLimitHandler := s.createRateLimitMiddleware(om)
	requestLimitHandler := s.requestSizeLimitMiddleware()

	// protected chains a handler behind auth, rate limiting and size limits.
	// Auth runs first so per-user rate limits can key on the account ID.
	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return s.authMiddleware(rateLimitHandler(requestLimitHandler(h)))
	}
	// public endpoints are unauthenticated but still rate limited by IP
	public := func(h http.HandlerFunc) http.HandlerFunc {
		return rateLimitHandler(requestLimitHandler(h))
	}

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	// Account lifecycle
	mux.HandleFunc("POST /api/v1/auth/signup", public(s.signUpHandler))
	mux.HandleFunc("POST /api/v1/auth/login", public(s.logInHandler))
	mux.HandleFunc("POST /api/v1/auth/reset-request", public(s.resetRequestHandler))
	mux.HandleFunc("POST /api/v1/auth/reset", public(s.resetPasswordHandler))
	mux.HandleFunc("GET /api/v1/auth/me", protected(s.currentUserHandler))

	// Conversation sessions
	mux.HandleFunc("POST /api/v1/sessions", protected(s.createSessionHandler))
	mux.HandleFunc("GET /api/v1/sessions/{id}", protected(s.getSessionHandler))
	mux.HandleFunc("POST /api/v1/sessions/{id}/messages", protected(s.createMessageHandler(om)))
	mux.HandleFunc("POST /api/v1/sessions/{id}/files", protected(s.createFilesHandler(om)))
	mux.HandleFunc("POST /api/v1/sessions/{id}/close", protected(s.closeSessionHandler))

	// Final document generation
	mux.HandleFunc("POST /api/v1/generate", protected(s.createGenerateHandler(om)))

	// Stored documents
	mux.HandleFunc("GET /api/v1/documents", protected(s.listDocumentsHandler))
	mux.HandleFunc("GET /api/v1/documents/{id}", protected(s.getDocumentHandler))
	mux.HandleFunc("GET /api/v1/documents/{id}/export", protected(s.exportDocumentHandler))
	mux.HandleFunc("PUT /api/v1/documents/{id}", protected(s.updateDocumentHandler))
	mux.HandleFunc("DELETE /api/v1/documents/{id}", protected(s.deleteDocumentHandler))

	return mux
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				// Limit the request body size
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}
