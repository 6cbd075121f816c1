package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/stencilhq/stencil/internal/shell/api"
	"github.com/stencilhq/stencil/internal/shell/catalog"
	"github.com/stencilhq/stencil/internal/shell/github"
	"github.com/stencilhq/stencil/internal/shell/scaffold"
	"github.com/stencilhq/stencil/internal/shell/store"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitGitHubError     = 3
	ExitHTTPServerError = 4
)

// =============================================================================
// Server
// =============================================================================

// Server represents the Stencil application server.
type Server struct {
	config     *Config
	httpServer *http.Server
	store      store.Store
	github     *github.App
	logger     *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	// Connect to database
	s, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	// Build the GitHub client. In "app" mode the private key is read from
	// disk; missing credentials produce an unconfigured client, not an
	// error, so the service can run without GitHub access until configured.
	var privateKey []byte
	if cfg.GitHub.PrivateKeyPath != "" {
		privateKey, err = os.ReadFile(cfg.GitHub.PrivateKeyPath)
		if err != nil {
			s.Close()
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      fmt.Errorf("failed to read github private key: %w", err),
				ExitCode: ExitConfigError,
			}
		}
	}

	gh, err := github.NewApp(github.Config{
		AuthMode:   cfg.GitHub.AuthMode,
		AppID:      cfg.GitHub.AppID,
		PrivateKey: privateKey,
		Token:      cfg.GitHub.Token,
		BaseURL:    cfg.GitHub.BaseURL,
	}, github.WithLogger(logger))
	if err != nil {
		s.Close()
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitGitHubError,
		}
	}
	if !gh.Configured() {
		logger.Warn("GitHub App not configured, scaffold requests will be rejected",
			"auth_mode", cfg.GitHub.AuthMode,
		)
	}

	// Sync the template catalog if one is configured
	if cfg.Catalog.Path != "" {
		c, err := catalog.Load(cfg.Catalog.Path)
		if err != nil {
			s.Close()
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      fmt.Errorf("failed to load catalog: %w", err),
				ExitCode: ExitConfigError,
			}
		}
		if err := catalog.Sync(context.Background(), c, s, logger); err != nil {
			s.Close()
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      fmt.Errorf("failed to sync catalog: %w", err),
				ExitCode: ExitDatabaseError,
			}
		}
		logger.Info("catalog synced", "path", cfg.Catalog.Path)
	}

	// Create the scaffold service and HTTP handler
	scaffoldService := scaffold.NewService(s, gh, logger)

	handler := api.SetupAPI(api.APIConfig{
		Store:            s,
		Scaffold:         scaffoldService,
		Logger:           logger,
		AuthSharedSecret: cfg.Auth.SharedSecret,
	})

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      s,
		github:     gh,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown HTTP server
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	// Close database
	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
