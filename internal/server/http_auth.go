package server

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	userIDKey    contextKey = "userID"
	userEmailKey contextKey = "userEmail"
)

// userIDFromContext returns the authenticated user's ID, or "" when the
// request went through an unauthenticated route.
func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// authMiddleware verifies the Bearer session token and stashes the account
// identity in the request context.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.Logger.Info("Authentication failed: missing token",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Missing token", "Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		claims, err := s.Tokens.Verify(token)
		if err != nil {
			s.Logger.Info("Authentication failed: invalid token",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Invalid token", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
		ctx = context.WithValue(ctx, userEmailKey, claims.Email)
		next(w, r.WithContext(ctx))
	}
}

// bearerToken extracts the token from the Authorization header
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return after
	}
	return ""
}

// signUpHandler creates a new account and returns a session token
func (s *Server) signUpHandler(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	user, token, err := s.Auth.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeAppError(w, err)
		return
	}

	s.Store.Track(r.Context(), user.ID, "account_created")
	writeJSONResponse(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// logInHandler authenticates an account and returns a session token
func (s *Server) logInHandler(w http.ResponseWriter, r *http.Request) {
	var req LogInRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	user, token, err := s.Auth.LogIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// currentUserHandler returns the account behind the session token
func (s *Server) currentUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.Auth.CurrentUser(r.Context(), bearerToken(r))
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, user)
}

// resetRequestHandler starts the password reset flow. The response is the
// same whether or not the address has an account.
func (s *Server) resetRequestHandler(w http.ResponseWriter, r *http.Request) {
	var req ResetRequestRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeAppError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
	})
}

// resetPasswordHandler redeems a reset token for a new password
func (s *Server) resetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeAppError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status": "password updated",
	})
}
