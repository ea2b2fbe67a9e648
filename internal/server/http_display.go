package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayIntegrationInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET    /health                        - Health check")
	fmt.Println("  GET    /stats                         - Server statistics")
	fmt.Println("  POST   /api/v1/auth/signup            - Create an account")
	fmt.Println("  POST   /api/v1/auth/login             - Log in")
	fmt.Println("  POST   /api/v1/auth/reset-request     - Request a password reset mail")
	fmt.Println("  POST   /api/v1/auth/reset             - Redeem a reset token")
	fmt.Println("  GET    /api/v1/auth/me                - Current account (requires token)")
	fmt.Println("  POST   /api/v1/sessions               - Start a conversation (requires token)")
	fmt.Println("  GET    /api/v1/sessions/{id}          - Session state (requires token)")
	fmt.Println("  POST   /api/v1/sessions/{id}/messages - One conversation turn (requires token)")
	fmt.Println("  POST   /api/v1/sessions/{id}/files    - Extract from uploads (requires token)")
	fmt.Println("  POST   /api/v1/sessions/{id}/close    - End a conversation (requires token)")
	fmt.Println("  POST   /api/v1/generate               - Generate polished document (requires token)")
	fmt.Println("  GET    /api/v1/documents              - List stored documents (requires token)")
	fmt.Println("  GET    /api/v1/documents/{id}         - Fetch a document (requires token)")
	fmt.Println("  GET    /api/v1/documents/{id}/export  - Download as json/text/markdown (requires token)")
	fmt.Println("  PUT    /api/v1/documents/{id}         - Edit a document (requires token)")
	fmt.Println("  DELETE /api/v1/documents/{id}         - Delete a document (requires token)")
}

// displayIntegrationInfo shows which optional integrations are active
func (s *Server) displayIntegrationInfo() {
	if s.Blob != nil {
		fmt.Printf("Upload archive: ENABLED (bucket: %s)\n", s.AppConfig.Storage.Bucket)
	} else {
		fmt.Println("Upload archive: DISABLED")
	}
	if s.AppConfig.Email.Enabled {
		fmt.Printf("Reset mail delivery: ENABLED (from: %s)\n", s.AppConfig.Email.FromAddress)
	} else {
		fmt.Println("Reset mail delivery: DISABLED (reset tokens are only logged)")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByUser {
			fmt.Println("  - Per account rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}
