// Package api provides HTTP handlers for the Stencil API.
// Resources follow the JSON:API standard via api2go; the scaffold action is
// a custom endpoint on top of it.
package api

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/manyminds/api2go"

	"github.com/stencilhq/stencil/internal/shell/api/middleware"
	"github.com/stencilhq/stencil/internal/shell/api/openapi"
	"github.com/stencilhq/stencil/internal/shell/api/resources"
	"github.com/stencilhq/stencil/internal/shell/scaffold"
	"github.com/stencilhq/stencil/internal/shell/store"
)

// =============================================================================
// API Setup
// =============================================================================

// APIConfig holds configuration for the API setup.
type APIConfig struct {
	Store    store.Store
	Scaffold *scaffold.Service
	Logger   *slog.Logger

	// AuthSharedSecret optionally validates X-Gateway-Secret on every request.
	AuthSharedSecret string
}

// SetupAPI creates the complete API router with JSON:API resources and the
// scaffold action endpoint. Returns an http.Handler usable as the server's
// main handler.
func SetupAPI(cfg APIConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(recoveryMiddleware(cfg.Logger))

	// Auth middleware resolves gateway identity headers to a local user
	authMW := middleware.NewAuthMiddleware(middleware.AuthConfig{
		SharedSecret: cfg.AuthSharedSecret,
		UserResolver: cfg.Store,
		Logger:       cfg.Logger,
	})
	router.Use(authMW.Handler)

	// Health endpoints (not JSON:API, just simple JSON)
	router.HandleFunc("/health", healthHandler).Methods("GET")
	router.HandleFunc("/ready", readyHandler(cfg.Store)).Methods("GET")

	// Create api2go API for JSON:API resources
	jsonAPI := api2go.NewAPIWithResolver("v1", api2go.NewStaticResolver("/api"))
	jsonAPI.ContentType = "application/vnd.api+json"

	templateResource := resources.NewTemplateResource(cfg.Store)
	organizationResource := resources.NewOrganizationResource(cfg.Store)
	authorizationResource := resources.NewAuthorizationResource(cfg.Store)
	orgTemplateResource := resources.NewOrganizationTemplateResource(cfg.Store)

	jsonAPI.AddResource(resources.Template{}, templateResource)
	jsonAPI.AddResource(resources.Organization{}, organizationResource)
	jsonAPI.AddResource(resources.AppAuthorization{}, authorizationResource)
	jsonAPI.AddResource(resources.OrganizationTemplate{}, orgTemplateResource)

	// Custom action endpoints. These must be registered BEFORE the /api
	// PathPrefix handler to avoid being caught by api2go.

	// Template custom actions
	router.HandleFunc("/api/v1/templates/{id}/publish", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		resp, err := templateResource.PublishTemplate(vars["id"], r)
		writeResponder(w, resp, err, cfg.Logger)
	}).Methods("POST")

	// Scaffold action: instantiate a repository from a template for an
	// organization
	scaffoldHandlers := NewScaffoldHandlers(cfg.Scaffold, cfg.Logger)
	router.HandleFunc("/api/v1/organizations/{slug}/templates", scaffoldHandlers.Create).Methods("POST")
	router.HandleFunc("/api/v1/organizations/{slug}/templates", scaffoldHandlers.List).Methods("GET")

	// OpenAPI endpoint - reflective generation from the registered resources
	openapiGen := openapi.NewGenerator(
		openapi.WithTitle("Stencil API"),
		openapi.WithVersion("1.0.0"),
		openapi.WithDescription("Repository scaffolding service API following JSON:API specification"),
		openapi.WithServer("/api/v1"),
	)

	openapiGen.RegisterResource(openapi.ResourceInfo{
		Name:           "templates",
		Model:          resources.Template{},
		SupportsFind:   true,
		SupportsCreate: true,
		SupportsUpdate: true,
		SupportsDelete: true,
	})
	openapiGen.RegisterResource(openapi.ResourceInfo{
		Name:           "organizations",
		Model:          resources.Organization{},
		SupportsFind:   true,
		SupportsCreate: true,
		SupportsUpdate: false,
		SupportsDelete: true,
	})
	openapiGen.RegisterResource(openapi.ResourceInfo{
		Name:           "app_authorizations",
		Model:          resources.AppAuthorization{},
		SupportsFind:   true,
		SupportsCreate: true,
		SupportsUpdate: false, // Authorizations are replaced, never edited
		SupportsDelete: true,
	})
	openapiGen.RegisterResource(openapi.ResourceInfo{
		Name:           "organization_templates",
		Model:          resources.OrganizationTemplate{},
		SupportsFind:   true,
		SupportsCreate: false, // Created via the scaffold action only
		SupportsUpdate: false,
		SupportsDelete: false,
	})
	openapiGen.RegisterAction(openapi.ActionInfo{
		Method:      "POST",
		Path:        "/organizations/{slug}/templates",
		OperationID: "scaffoldOrganizationTemplate",
		Summary:     "Instantiate a repository from a template for an organization",
		Tag:         "Organization_templates",
		Request:     scaffoldRequest{},
		Response:    resources.OrganizationTemplate{},
	})

	router.HandleFunc("/openapi.json", openapiGen.Handler()).Methods("GET")

	// Mount api2go handler for all other /api routes. api2go expects paths
	// without the /api prefix, so it is stripped first.
	router.PathPrefix("/api").Handler(http.StripPrefix("/api", jsonAPI.Handler()))

	return router
}

// =============================================================================
// Middleware
// =============================================================================

// requestIDMiddleware generates and adds a request ID to responses.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware recovers from panics and returns a 500 error.
func recoveryMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", "error", err)
					w.Header().Set("Content-Type", "application/vnd.api+json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]interface{}{
						"errors": []map[string]interface{}{
							{
								"status": "500",
								"title":  "Internal Server Error",
								"detail": "An unexpected error occurred",
							},
						},
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// Health Handlers
// =============================================================================

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func readyHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		checks := make(map[string]string)

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "failed"
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "not_ready",
				"checks": checks,
			})
			return
		}
		checks["database"] = "ok"

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ready",
			"checks": checks,
		})
	}
}

// =============================================================================
// Helpers
// =============================================================================

// writeResponder writes an api2go.Responder to the response writer.
func writeResponder(w http.ResponseWriter, resp api2go.Responder, err error, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/vnd.api+json")

	if err != nil {
		var httpErr api2go.HTTPError
		if errors.As(err, &httpErr) {
			if len(httpErr.Errors) > 0 {
				status := parseStatus(httpErr.Errors[0].Status)
				w.WriteHeader(status)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"errors": httpErr.Errors,
				})
				return
			}
		}
		logger.Error("request error", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]interface{}{
				{
					"status": "500",
					"title":  "Internal Server Error",
					"detail": err.Error(),
				},
			},
		})
		return
	}

	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.WriteHeader(resp.StatusCode())
	if result := resp.Result(); result != nil {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": result,
			"meta": resp.Metadata(),
		})
	}
}

// parseStatus converts a status string to an int.
func parseStatus(status string) int {
	if status == "" {
		return http.StatusInternalServerError
	}
	n := json.Number(status)
	if i, err := n.Int64(); err == nil && i > 0 {
		return int(i)
	}
	return http.StatusInternalServerError
}

// generateRequestID generates a unique request ID.
func generateRequestID() string {
	return "req_" + randomString(12)
}

// randomString generates a cryptographically random string of the given length.
func randomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		idx, _ := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		b[i] = letters[idx.Int64()]
	}
	return string(b)
}
