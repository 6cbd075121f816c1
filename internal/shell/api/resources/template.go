// Package resources provides JSON:API resource implementations for the
// Stencil API.
package resources

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/manyminds/api2go"
	"github.com/manyminds/api2go/jsonapi"

	"github.com/stencilhq/stencil/internal/core/auth"
	"github.com/stencilhq/stencil/internal/core/domain"
	"github.com/stencilhq/stencil/internal/shell/store"
)

// =============================================================================
// Template JSON:API Model
// =============================================================================

// Template wraps domain.Template to implement JSON:API interfaces.
type Template struct {
	ID            string    `json:"-"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description,omitempty"`
	RepositoryURL string    `json:"repository_url"`
	Category      string    `json:"category,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Published     bool      `json:"published"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GetID returns the template ID for JSON:API.
func (t Template) GetID() string {
	return t.ID
}

// SetID sets the template ID for JSON:API.
func (t *Template) SetID(id string) error {
	t.ID = id
	return nil
}

// GetName returns the JSON:API resource type name.
func (t Template) GetName() string {
	return "templates"
}

// GetReferences returns the relationships this resource has.
func (t Template) GetReferences() []jsonapi.Reference {
	return []jsonapi.Reference{
		{
			Type: "organization_templates",
			Name: "organization_templates",
		},
	}
}

// GetReferencedIDs returns IDs of referenced resources.
func (t Template) GetReferencedIDs() []jsonapi.ReferenceID {
	// Instantiations are not eagerly loaded - use the relationship endpoint
	return nil
}

// GetReferencedStructs returns the referenced objects for compound documents.
func (t Template) GetReferencedStructs() []jsonapi.MarshalIdentifier {
	return nil
}

// TemplateFromDomain converts a domain.Template to a JSON:API Template.
func TemplateFromDomain(t *domain.Template) Template {
	return Template{
		ID:            t.ID,
		Name:          t.Name,
		Slug:          t.Slug,
		Description:   t.Description,
		RepositoryURL: t.RepositoryURL,
		Category:      t.Category,
		Tags:          t.Tags,
		Published:     t.Published,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// =============================================================================
// TemplateResource - CRUD Operations
// =============================================================================

// TemplateResource implements the api2go resource interface for templates.
type TemplateResource struct {
	Store store.Store
}

// NewTemplateResource creates a new template resource handler.
func NewTemplateResource(s store.Store) *TemplateResource {
	return &TemplateResource{Store: s}
}

// FindAll returns all templates visible to the caller.
// GET /api/v1/templates
// Auth: Published templates visible to all, unpublished only to creator
func (r TemplateResource) FindAll(req api2go.Request) (api2go.Responder, error) {
	opts := parseListOptions(req)

	ctx := req.PlainRequest.Context()
	authCtx := auth.FromContext(ctx)

	templates, err := r.Store.ListTemplates(ctx, opts)
	if err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}

	result := make([]Template, 0, len(templates))
	for _, t := range templates {
		if auth.CanViewTemplate(authCtx, t) {
			result = append(result, TemplateFromDomain(&t))
		}
	}

	return &Response{
		Code: http.StatusOK,
		Res:  result,
		Meta: map[string]interface{}{
			"total":  len(result),
			"limit":  opts.Limit,
			"offset": opts.Offset,
		},
	}, nil
}

// FindOne returns a single template by ID.
// GET /api/v1/templates/{id}
func (r TemplateResource) FindOne(id string, req api2go.Request) (api2go.Responder, error) {
	ctx := req.PlainRequest.Context()
	authCtx := auth.FromContext(ctx)

	template, err := r.Store.GetTemplate(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return &Response{Code: http.StatusNotFound}, api2go.NewHTTPError(
				fmt.Errorf("template not found"),
				"Template not found",
				http.StatusNotFound,
			)
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	// Unpublished templates are invisible to everyone but their creator
	if !auth.CanViewTemplate(authCtx, *template) {
		return &Response{Code: http.StatusNotFound}, api2go.NewHTTPError(
			fmt.Errorf("template not found"),
			"Template not found",
			http.StatusNotFound,
		)
	}

	return &Response{
		Code: http.StatusOK,
		Res:  TemplateFromDomain(template),
	}, nil
}

// Create creates a new template.
// POST /api/v1/templates
// Auth: Requires authentication. CreatorID is set from auth context.
func (r TemplateResource) Create(obj interface{}, req api2go.Request) (api2go.Responder, error) {
	ctx := req.PlainRequest.Context()
	authCtx := auth.FromContext(ctx)

	if !authCtx.Authenticated {
		return &Response{Code: http.StatusUnauthorized}, api2go.NewHTTPError(
			fmt.Errorf("authentication required"),
			"Authentication required",
			http.StatusUnauthorized,
		)
	}

	template, ok := obj.(Template)
	if !ok {
		return &Response{Code: http.StatusBadRequest}, api2go.NewHTTPError(
			fmt.Errorf("invalid request body"),
			"Invalid request body",
			http.StatusBadRequest,
		)
	}

	domainTemplate, err := domain.NewTemplate(template.Name, template.RepositoryURL)
	if err != nil {
		return &Response{Code: http.StatusBadRequest}, api2go.NewHTTPError(
			err,
			err.Error(),
			http.StatusBadRequest,
		)
	}
	domainTemplate.Description = template.Description
	domainTemplate.Category = template.Category
	domainTemplate.Tags = template.Tags
	domainTemplate.CreatorID = authCtx.UserID

	if err := r.Store.CreateTemplate(ctx, domainTemplate); err != nil {
		if errors.Is(err, store.ErrDuplicateSlug) {
			return &Response{Code: http.StatusConflict}, api2go.NewHTTPError(
				fmt.Errorf("template with this name already exists"),
				"Template with this name already exists",
				http.StatusConflict,
			)
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{
		Code: http.StatusCreated,
		Res:  TemplateFromDomain(domainTemplate),
	}, nil
}

// Update updates an existing template.
// PATCH /api/v1/templates/{id}
// Auth: Only creator can update their templates
func (r TemplateResource) Update(obj interface{}, req api2go.Request) (api2go.Responder, error) {
	ctx := req.PlainRequest.Context()
	authCtx := auth.FromContext(ctx)

	template, ok := obj.(Template)
	if !ok {
		return &Response{Code: http.StatusBadRequest}, api2go.NewHTTPError(
			fmt.Errorf("invalid request body"),
			"Invalid request body",
			http.StatusBadRequest,
		)
	}

	existing, err := r.Store.GetTemplate(ctx, template.ID)
	if err != nil {
		if isNotFound(err) {
			return &Response{Code: http.StatusNotFound}, api2go.NewHTTPError(
				fmt.Errorf("template not found"),
				"Template not found",
				http.StatusNotFound,
			)
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	if !auth.CanModifyTemplate(authCtx, *existing) {
		return &Response{Code: http.StatusForbidden}, api2go.NewHTTPError(
			fmt.Errorf("not authorized to modify this template"),
			"Not authorized to modify this template",
			http.StatusForbidden,
		)
	}

	// Apply updates (only non-empty fields)
	if template.Name != "" {
		if err := domain.ValidateName(template.Name); err != nil {
			return &Response{Code: http.StatusBadRequest}, api2go.NewHTTPError(
				err, err.Error(), http.StatusBadRequest)
		}
		existing.Name = template.Name
	}
	if template.RepositoryURL != "" {
		if err := domain.ValidateRepositoryURL(template.RepositoryURL); err != nil {
			return &Response{Code: http.StatusBadRequest}, api2go.NewHTTPError(
				err, err.Error(), http.StatusBadRequest)
		}
		existing.RepositoryURL = template.RepositoryURL
	}
	if template.Description != "" {
		existing.Description = template.Description
	}
	if template.Category != "" {
		existing.Category = template.Category
	}
	if len(template.Tags) > 0 {
		existing.Tags = template.Tags
	}
	existing.UpdatedAt = time.Now().UTC()

	if err := r.Store.UpdateTemplate(ctx, existing); err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{
		Code: http.StatusOK,
		Res:  TemplateFromDomain(existing),
	}, nil
}

// Delete removes a template by ID.
// DELETE /api/v1/templates/{id}
// Auth: Only creator can delete their templates
func (r TemplateResource) Delete(id string, req api2go.Request) (api2go.Responder, error) {
	ctx := req.PlainRequest.Context()
	authCtx := auth.FromContext(ctx)

	template, err := r.Store.GetTemplate(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return &Response{Code: http.StatusNotFound}, api2go.NewHTTPError(
				fmt.Errorf("template not found"),
				"Template not found",
				http.StatusNotFound,
			)
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	if !auth.CanDeleteTemplate(authCtx, *template) {
		return &Response{Code: http.StatusForbidden}, api2go.NewHTTPError(
			fmt.Errorf("not authorized to delete this template"),
			"Not authorized to delete this template",
			http.StatusForbidden,
		)
	}

	// Templates with instantiations cannot be removed
	instantiations, err := r.Store.ListOrganizationTemplatesByTemplate(ctx, id, store.ListOptions{Limit: 1})
	if err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}
	if len(instantiations) > 0 {
		return &Response{Code: http.StatusConflict}, api2go.NewHTTPError(
			fmt.Errorf("template has been instantiated by organizations"),
			"Template has been instantiated by organizations",
			http.StatusConflict,
		)
	}

	if err := r.Store.DeleteTemplate(ctx, id); err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{Code: http.StatusNoContent}, nil
}

// =============================================================================
// Custom Actions - Publish
// =============================================================================

// PublishTemplate publishes a template, making it visible to all users.
// Auth: Only creator can publish their templates
func (r TemplateResource) PublishTemplate(id string, req *http.Request) (api2go.Responder, error) {
	ctx := req.Context()
	authCtx := auth.FromContext(ctx)

	template, err := r.Store.GetTemplate(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return &Response{Code: http.StatusNotFound}, api2go.NewHTTPError(
				fmt.Errorf("template not found"),
				"Template not found",
				http.StatusNotFound,
			)
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	if !auth.CanPublishTemplate(authCtx, *template) {
		return &Response{Code: http.StatusForbidden}, api2go.NewHTTPError(
			fmt.Errorf("not authorized to publish this template"),
			"Not authorized to publish this template",
			http.StatusForbidden,
		)
	}

	if template.Published {
		return &Response{Code: http.StatusConflict}, api2go.NewHTTPError(
			fmt.Errorf("template is already published"),
			"Template is already published",
			http.StatusConflict,
		)
	}

	template.Publish()

	if err := r.Store.UpdateTemplate(ctx, template); err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{
		Code: http.StatusOK,
		Res:  TemplateFromDomain(template),
	}, nil
}

// =============================================================================
// Response Helper
// =============================================================================

// Response implements api2go.Responder for custom responses.
type Response struct {
	Code int
	Res  interface{}
	Meta map[string]interface{}
}

// Metadata returns additional metadata for the response.
func (r *Response) Metadata() map[string]interface{} {
	return r.Meta
}

// Result returns the response data.
func (r *Response) Result() interface{} {
	return r.Res
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int {
	return r.Code
}

// =============================================================================
// Helper Functions
// =============================================================================

// isNotFound checks if an error is a not found error.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		return errors.Is(storeErr.Unwrap(), store.ErrNotFound)
	}
	return errors.Is(err, store.ErrNotFound)
}

// parseListOptions parses JSON:API pagination query params.
func parseListOptions(req api2go.Request) store.ListOptions {
	opts := store.DefaultListOptions()

	if limit, ok := req.QueryParams["page[size]"]; ok && len(limit) > 0 {
		if l, err := strconv.Atoi(limit[0]); err == nil {
			opts.Limit = l
		}
	}
	if offset, ok := req.QueryParams["page[offset]"]; ok && len(offset) > 0 {
		if o, err := strconv.Atoi(offset[0]); err == nil {
			opts.Offset = o
		}
	}
	// Also support page[number] style
	if pageNum, ok := req.QueryParams["page[number]"]; ok && len(pageNum) > 0 {
		if pn, err := strconv.Atoi(pageNum[0]); err == nil && pn > 0 {
			opts.Offset = (pn - 1) * opts.Limit
		}
	}

	return opts.Normalize()
}
