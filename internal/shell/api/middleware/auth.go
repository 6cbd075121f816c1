// Package middleware provides HTTP middleware for the Stencil API.
// Identity is injected by the upstream gateway as request headers.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/stencilhq/stencil/internal/core/auth"
)

// =============================================================================
// User Resolver Interface
// =============================================================================

// UserResolver resolves a gateway reference ID to a local integer user ID.
// The store implements this interface.
type UserResolver interface {
	ResolveUser(ctx context.Context, referenceID, email, name string) (int, error)
}

// =============================================================================
// Auth Configuration
// =============================================================================

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// SharedSecret is an optional secret to validate X-Gateway-Secret.
	// If empty, secret validation is skipped.
	SharedSecret string

	// UserResolver resolves gateway user reference IDs to local integer IDs.
	// If nil, UserID in auth context will be 0 (only ReferenceID will be set).
	UserResolver UserResolver

	// Logger for auth middleware logging.
	Logger *slog.Logger
}

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware extracts authentication context from gateway headers
// and stores it in the request context.
type AuthMiddleware struct {
	config AuthConfig
}

// NewAuthMiddleware creates a new auth middleware with the given config.
func NewAuthMiddleware(cfg AuthConfig) *AuthMiddleware {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AuthMiddleware{config: cfg}
}

// Handler returns the middleware handler function. It extracts the auth
// context from gateway-injected headers and, when a UserResolver is
// configured, resolves the reference ID to a local integer user ID.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Validate shared secret if configured
		if m.config.SharedSecret != "" {
			if r.Header.Get(auth.HeaderGatewaySecret) != m.config.SharedSecret {
				m.config.Logger.Warn("invalid gateway secret",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				writeJSONError(w, http.StatusForbidden, "Forbidden", "Invalid gateway secret")
				return
			}
		}

		// Extract auth context from headers (sets ReferenceID, not UserID)
		ctx := auth.ExtractFromRequest(r)

		// Resolve integer user ID if authenticated and resolver is available
		if ctx.Authenticated && m.config.UserResolver != nil {
			userID, err := m.config.UserResolver.ResolveUser(
				r.Context(),
				ctx.ReferenceID,
				ctx.Email,
				ctx.Name,
			)
			if err != nil {
				m.config.Logger.Error("failed to resolve user",
					"reference_id", ctx.ReferenceID,
					"error", err,
				)
				writeJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to resolve user identity")
				return
			}
			ctx.UserID = userID
		}

		// Store in request context
		r = r.WithContext(auth.WithContext(r.Context(), ctx))

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Require Auth Middleware
// =============================================================================

// RequireAuth is a middleware that requires authentication.
// Must be used AFTER AuthMiddleware.
func RequireAuth(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.FromContext(r.Context())

			if !ctx.Authenticated {
				logger.Warn("unauthenticated request to protected endpoint",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// JSON Error Response
// =============================================================================

// JSONAPIError represents a JSON:API error object.
type JSONAPIError struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// JSONAPIErrorResponse represents a JSON:API error response.
type JSONAPIErrorResponse struct {
	Errors []JSONAPIError `json:"errors"`
}

// writeJSONError writes a JSON:API formatted error response.
func writeJSONError(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/vnd.api+json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(JSONAPIErrorResponse{
		Errors: []JSONAPIError{
			{
				Status: http.StatusText(status),
				Title:  title,
				Detail: detail,
			},
		},
	})
}
