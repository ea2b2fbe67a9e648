package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cvstudio/internal/ai"
	"cvstudio/internal/auth"
	"cvstudio/internal/blob"
	"cvstudio/internal/config"
	"cvstudio/internal/conversation"
	"cvstudio/internal/email"
	"cvstudio/internal/observability"
	"cvstudio/internal/prompt"
	"cvstudio/internal/store"
	"cvstudio/internal/types"
)

// Start starts the HTTP server with all configured components
func (s *Server) Start() error {
	om, err := s.initializeObservability()
	if err != nil {
		return err
	}
	defer s.shutdownObservability(om)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = s.initializeInfrastructure(ctx)
	cancel()
	if err != nil {
		return err
	}
	defer s.Store.Close()

	if err := s.initializeConversation(s.AppConfig); err != nil {
		return err
	}

	promptWatcher := s.startPromptWatcher()
	if promptWatcher != nil {
		defer promptWatcher.Stop()
	}

	httpServer := s.setupHTTPServer(om)

	s.displayServerInfo()

	return s.startWithGracefulShutdown(httpServer)
}

// initializeObservability sets up observability components
func (s *Server) initializeObservability() (*observability.ObservabilityManager, error) {
	obsConfig := observability.GetObservabilityConfig(s.AppConfig, s.Version)

	om, err := observability.NewObservabilityManager(obsConfig, s.AppConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	return om, nil
}

// shutdownObservability handles observability cleanup
func (s *Server) shutdownObservability(om *observability.ObservabilityManager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

// initializeInfrastructure connects the document store, account service and
// the optional blob/mail integrations
func (s *Server) initializeInfrastructure(ctx context.Context) error {
	pgStore, err := store.NewPostgresStore(ctx, s.AppConfig.Database.URL, s.AppConfig.Database.MaxConns, s.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize document store: %w", err)
	}
	s.Store = pgStore

	s.Tokens = auth.NewTokenService(s.AppConfig.Auth.JWTSecret, s.AppConfig.Auth.TokenTTL)

	var mailer auth.ResetMailer
	if s.AppConfig.Email.Enabled {
		sender, err := email.NewSESSender(ctx, email.Config{
			Region:      s.AppConfig.Email.Region,
			FromAddress: s.AppConfig.Email.FromAddress,
			FromName:    s.AppConfig.Email.FromName,
			FrontendURL: s.AppConfig.Email.FrontendURL,
			ResetTTL:    s.AppConfig.Auth.ResetTTL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize mail sender: %w", err)
		}
		mailer = sender
	}

	s.Auth = auth.NewService(pgStore.Pool(), s.Tokens, mailer, s.Logger, auth.Options{
		BcryptCost: s.AppConfig.Auth.BcryptCost,
		ResetTTL:   s.AppConfig.Auth.ResetTTL,
	})

	if s.AppConfig.Storage.Enabled {
		blobStore, err := blob.NewStore(ctx, blob.Config{
			Region:        s.AppConfig.Storage.Region,
			Bucket:        s.AppConfig.Storage.Bucket,
			Endpoint:      s.AppConfig.Storage.Endpoint,
			AccessKey:     s.AppConfig.Storage.AccessKey,
			SecretKey:     s.AppConfig.Storage.SecretKey,
			PresignExpiry: s.AppConfig.Storage.PresignExpiry,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize blob storage: %w", err)
		}
		s.Blob = blobStore
	}

	return nil
}

// initializeConversation builds the AI services and one conversation
// controller per document kind. It runs at startup against the loaded
// config and again on prompt reload against the watcher's snapshot; the
// rebuilt wiring is swapped in under wiringMu.
func (s *Server) initializeConversation(cfg *config.Config) error {
	resumeConfig := cfg.GetResumeConfig()
	resumeSvc, err := ai.NewService(&resumeConfig, "resume", s.Logger)
	if err != nil {
		return fmt.Errorf("failed to create resume AI service: %w", err)
	}

	coverLetterConfig := cfg.GetCoverLetterConfig()
	coverLetterSvc, err := ai.NewService(&coverLetterConfig, "coverLetter", s.Logger)
	if err != nil {
		return fmt.Errorf("failed to create cover letter AI service: %w", err)
	}

	generateConfig := cfg.GetGenerateConfig()
	generateSvc, err := ai.NewService(&generateConfig, "generate", s.Logger)
	if err != nil {
		return fmt.Errorf("failed to create generate AI service: %w", err)
	}

	builder := promptBuilderFromConfig(cfg)
	saver := store.NewSessionSaver(s.Store, s.Logger)
	opts := conversation.Options{
		TurnTimeout:      cfg.Conversation.TurnTimeout,
		AutoSaveDebounce: cfg.Conversation.AutoSaveDebounce,
	}

	s.wiringMu.Lock()
	s.builder = builder
	s.generateSvc = generateSvc
	s.controllers = map[types.DocumentKind]*conversation.Controller{
		types.KindResume:      conversation.NewController(resumeSvc, builder, saver, s.Logger, opts),
		types.KindCoverLetter: conversation.NewController(coverLetterSvc, builder, saver, s.Logger, opts),
	}
	s.wiringMu.Unlock()

	return nil
}

// startPromptWatcher hot-reloads file-backed prompt templates. On reload the
// builder and controllers are rebuilt from the watcher's config snapshot so
// the next turn picks up the new text; the live config is never mutated.
func (s *Server) startPromptWatcher() *config.PromptWatcher {
	watcher := config.NewPromptWatcher(s.AppConfig, 0, func(cfg *config.Config) {
		if err := s.initializeConversation(cfg); err != nil {
			s.Logger.LogError(err, "Failed to rebuild conversation wiring after prompt reload")
			return
		}
		s.Logger.Info("Prompt templates reloaded")
	}, func(format string, args ...any) {
		s.Logger.Info(fmt.Sprintf(format, args...))
	})

	if err := watcher.Start(); err != nil {
		s.Logger.LogError(err, "Failed to start prompt watcher")
		return nil
	}
	return watcher
}

// promptBuilderFromConfig maps the resolved config prompts onto the builder's
// template set. Empty fields fall back to the built-in defaults.
func promptBuilderFromConfig(cfg *config.Config) *prompt.Builder {
	custom := cfg.AI.CustomPrompts
	return prompt.NewBuilderWithPrompts(
		prompt.SystemPrompts{
			ExtractResume:      custom.SystemPrompts.ExtractResume,
			ExtractCoverLetter: custom.SystemPrompts.ExtractCoverLetter,
			Generate:           custom.SystemPrompts.Generate,
		},
		prompt.UserPrompts{
			ExtractResume:       custom.UserPrompts.ExtractResume,
			ExtractCoverLetter:  custom.UserPrompts.ExtractCoverLetter,
			GenerateResume:      custom.UserPrompts.GenerateResume,
			GenerateCoverLetter: custom.UserPrompts.GenerateCoverLetter,
		},
	)
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer(om *observability.ObservabilityManager) *http.Server {
	mux := s.setupRoutes(om)
	handler := om.HTTPMiddleware()(mux)
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// startWithGracefulShutdown starts the HTTP server and handles graceful shutdown
func (s *Server) startWithGracefulShutdown(server *http.Server) error {
	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		s.Logger.Info("Starting HTTP server", "address", server.Addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	// Wait for either a signal or server error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-quit:
		s.Logger.Info("Received shutdown signal, starting graceful shutdown",
			"signal", sig.String())

		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	// Create a context with timeout for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Flush any pending session saves before connections go away
	s.flushSessions(shutdownCtx)

	// Clean up rate limiter if enabled
	s.cleanupRateLimiter()

	// Attempt graceful shutdown of HTTP server
	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// flushSessions closes all live sessions so no debounced save is lost
func (s *Server) flushSessions(ctx context.Context) {
	s.sessions.mu.Lock()
	live := make([]*conversation.Session, 0, len(s.sessions.sessions))
	for _, sess := range s.sessions.sessions {
		live = append(live, sess)
	}
	s.sessions.mu.Unlock()

	for _, sess := range live {
		controller := s.controller(sess.Kind)
		if err := controller.Close(ctx, sess); err != nil {
			s.Logger.LogError(err, "Final session save failed during shutdown",
				"session_id", sess.ID)
		}
		s.sessions.Remove(sess.ID)
	}
}

// cleanupRateLimiter cleans up the rate limiter resources
func (s *Server) cleanupRateLimiter() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
