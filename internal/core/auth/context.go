// Package auth provides authentication context and authorization functions.
// Identity is injected by the upstream gateway as request headers; this
// package only interprets them.
package auth

import (
	"context"
	"net/http"
)

// =============================================================================
// Context Key
// =============================================================================

type contextKey string

const authContextKey contextKey = "auth"

// =============================================================================
// Types
// =============================================================================

// Context represents the authentication context for a request.
// It is extracted from gateway-injected headers and stored in the request
// context.
type Context struct {
	// UserID is the local integer PK from the users table (resolved by
	// middleware against the store).
	UserID int

	// ReferenceID is the gateway user ID string from X-User-ID
	// (e.g. "user_bc6849d9ab6dc0e5").
	ReferenceID string

	// Email and Name are optional identity attributes forwarded by the
	// gateway, used to keep the local user record current.
	Email string
	Name  string

	// KeyID is the API key ID if API key authentication was used.
	KeyID string

	// Authenticated indicates whether the request is authenticated.
	Authenticated bool
}

// =============================================================================
// Header Constants
// =============================================================================

const (
	// HeaderUserID is the header containing the authenticated user's ID.
	HeaderUserID = "X-User-ID"

	// HeaderUserEmail is the header containing the user's email address.
	HeaderUserEmail = "X-User-Email"

	// HeaderUserName is the header containing the user's display name.
	HeaderUserName = "X-User-Name"

	// HeaderKeyID is the header containing the API key ID.
	HeaderKeyID = "X-Key-ID"

	// HeaderGatewaySecret is the header containing the shared secret for
	// validating that requests really came through the gateway.
	HeaderGatewaySecret = "X-Gateway-Secret"
)

// =============================================================================
// Context Extraction
// =============================================================================

// HeaderGetter is an interface for getting header values.
// This allows testing without requiring an http.Request.
type HeaderGetter interface {
	Get(key string) string
}

type headerGetter struct {
	r *http.Request
}

func (h headerGetter) Get(key string) string {
	return h.r.Header.Get(key)
}

// ExtractFromRequest extracts auth context from HTTP request headers.
// If the X-User-ID header is not present, returns an unauthenticated
// context.
func ExtractFromRequest(r *http.Request) Context {
	return ExtractFromHeaders(headerGetter{r: r})
}

// ExtractFromHeaders extracts auth context from headers using the
// HeaderGetter interface. This is a pure function that can be tested
// without HTTP dependencies.
//
// Note: UserID (int) is NOT set here - it must be resolved by the
// middleware via a user upsert against the store. Only ReferenceID is
// extracted.
func ExtractFromHeaders(headers HeaderGetter) Context {
	referenceID := headers.Get(HeaderUserID)
	if referenceID == "" {
		return Context{Authenticated: false}
	}

	return Context{
		ReferenceID:   referenceID,
		Email:         headers.Get(HeaderUserEmail),
		Name:          headers.Get(HeaderUserName),
		KeyID:         headers.Get(HeaderKeyID),
		Authenticated: true,
	}
}

// =============================================================================
// Context Storage
// =============================================================================

// WithContext stores the auth context in the request context.
func WithContext(ctx context.Context, authCtx Context) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

// FromContext retrieves the auth context from the request context.
// If no auth context is found, returns an unauthenticated context.
func FromContext(ctx context.Context) Context {
	if authCtx, ok := ctx.Value(authContextKey).(Context); ok {
		return authCtx
	}
	return Context{Authenticated: false}
}

// =============================================================================
// Helper Types for Testing
// =============================================================================

// MapHeaderGetter wraps a map to implement the HeaderGetter interface.
// This is useful for testing without creating http.Request objects.
type MapHeaderGetter map[string]string

func (m MapHeaderGetter) Get(key string) string {
	return m[key]
}
