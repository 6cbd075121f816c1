package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stencilhq/stencil/internal/core/auth"
	"github.com/stencilhq/stencil/internal/shell/api/resources"
	"github.com/stencilhq/stencil/internal/shell/scaffold"
	"github.com/stencilhq/stencil/internal/shell/store"
)

// =============================================================================
// Scaffold Handlers
// =============================================================================

// scaffoldRequest documents the scaffold action request body. The private
// field is the form-style marker: present as "on" means private, absent
// means public.
type scaffoldRequest struct {
	Name               string `json:"name"`
	TemplateID         string `json:"template_id"`
	Private            string `json:"private,omitempty"`
	AppAuthorizationID string `json:"app_authorization_id"`
}

// ScaffoldHandlers serves the custom scaffold endpoints under
// /api/v1/organizations/{slug}/templates.
type ScaffoldHandlers struct {
	service *scaffold.Service
	logger  *slog.Logger
}

// NewScaffoldHandlers creates handlers for the scaffold endpoints.
func NewScaffoldHandlers(service *scaffold.Service, logger *slog.Logger) *ScaffoldHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScaffoldHandlers{service: service, logger: logger}
}

// Create instantiates a repository from a template for an organization.
// POST /api/v1/organizations/{slug}/templates
func (h *ScaffoldHandlers) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.FromContext(ctx)

	if !authCtx.Authenticated {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	slug := mux.Vars(r)["slug"]
	record, err := h.service.Create(ctx, authCtx.UserID, slug, payload)
	if err != nil {
		h.writeScaffoldError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.api+json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": resources.OrganizationTemplateFromDomain(record),
	})
}

// List returns the organization's instantiated templates.
// GET /api/v1/organizations/{slug}/templates
func (h *ScaffoldHandlers) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := mux.Vars(r)["slug"]

	records, err := h.service.ListByOrganization(ctx, slug, store.DefaultListOptions())
	if err != nil {
		h.logger.Error("failed to list organization templates", "organization", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	result := make([]resources.OrganizationTemplate, 0, len(records))
	for _, rec := range records {
		result = append(result, resources.OrganizationTemplateFromDomain(&rec))
	}

	w.Header().Set("Content-Type", "application/vnd.api+json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": result,
		"meta": map[string]interface{}{"total": len(result)},
	})
}

// writeScaffoldError maps scaffold pipeline errors to HTTP statuses.
func (h *ScaffoldHandlers) writeScaffoldError(w http.ResponseWriter, err error) {
	var valErr *scaffold.ValidationError

	switch {
	case errors.As(err, &valErr):
		writeError(w, http.StatusBadRequest, valErr.Error())
	case errors.Is(err, scaffold.ErrAuthorizationNotFound),
		errors.Is(err, scaffold.ErrTemplateNotFound),
		errors.Is(err, scaffold.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scaffold.ErrTemplateURLInvalid):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, scaffold.ErrAppNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, scaffold.ErrCreateRepositoryFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, store.ErrForeignKey):
		// Organization existence is enforced by the store's foreign key
		writeError(w, http.StatusNotFound, "Organization not found")
	default:
		h.logger.Error("scaffold request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// writeError writes a JSON:API formatted error response.
func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/vnd.api+json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"errors": []map[string]interface{}{
			{
				"status": http.StatusText(status),
				"title":  http.StatusText(status),
				"detail": detail,
			},
		},
	})
}
