package resources

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/manyminds/api2go"

	"github.com/stencilhq/stencil/internal/core/auth"
	"github.com/stencilhq/stencil/internal/core/domain"
	"github.com/stencilhq/stencil/internal/shell/store"
)

// =============================================================================
// Organization JSON:API Model
// =============================================================================

// Organization wraps domain.Organization to implement JSON:API interfaces.
type Organization struct {
	ID        string    `json:"-"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetID returns the organization ID for JSON:API.
func (o Organization) GetID() string {
	return o.ID
}

// SetID sets the organization ID for JSON:API.
func (o *Organization) SetID(id string) error {
	o.ID = id
	return nil
}

// GetName returns the JSON:API resource type name.
func (o Organization) GetName() string {
	return "organizations"
}

// OrganizationFromDomain converts a domain.Organization to the JSON:API model.
func OrganizationFromDomain(o *domain.Organization) Organization {
	return Organization{
		ID:        o.ID,
		Name:      o.Name,
		Slug:      o.Slug,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// =============================================================================
// OrganizationResource - CRUD Operations
// =============================================================================

// OrganizationResource implements the api2go resource interface for
// organizations.
type OrganizationResource struct {
	Store store.Store
}

// NewOrganizationResource creates a new organization resource handler.
func NewOrganizationResource(s store.Store) *OrganizationResource {
	return &OrganizationResource{Store: s}
}

// FindAll returns all organizations.
// GET /api/v1/organizations
func (r OrganizationResource) FindAll(req api2go.Request) (api2go.Responder, error) {
	opts := parseListOptions(req)
	ctx := req.PlainRequest.Context()

	orgs, err := r.Store.ListOrganizations(ctx, opts)
	if err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}

	result := make([]Organization, 0, len(orgs))
	for _, o := range orgs {
		result = append(result, OrganizationFromDomain(&o))
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

// FindOne returns a single organization by ID.
// GET /api/v1/organizations/{id}
func (r OrganizationResource) FindOne(id string, req api2go.Request) (api2go.Responder, error) {
	ctx := req.PlainRequest.Context()

	org, err := r.Store.GetOrganization(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return &Response{Code: http.StatusNotFound}, api2go.NewHTTPError(
				fmt.Errorf("organization not found"),
				"Organization not found",
				http.StatusNotFound,
			)
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{
		Code: http.StatusOK,
		Res:  OrganizationFromDomain(org),
	}, nil
}

// Create creates a new organization.
// POST /api/v1/organizations
// Auth: Requires authentication.
func (r OrganizationResource) Create(obj interface{}, req api2go.Request) (api2go.Responder, error) {
	ctx := req.PlainRequest.Context()
	authCtx := auth.FromContext(ctx)

	if !authCtx.Authenticated {
		return &Response{Code: http.StatusUnauthorized}, api2go.NewHTTPError(
			fmt.Errorf("authentication required"),
			"Authentication required",
			http.StatusUnauthorized,
		)
	}

	org, ok := obj.(Organization)
	if !ok {
		return &Response{Code: http.StatusBadRequest}, api2go.NewHTTPError(
			fmt.Errorf("invalid request body"),
			"Invalid request body",
			http.StatusBadRequest,
		)
	}

	domainOrg, err := domain.NewOrganization(org.Name)
	if err != nil {
		return &Response{Code: http.StatusBadRequest}, api2go.NewHTTPError(
			err,
			err.Error(),
			http.StatusBadRequest,
		)
	}

	if err := r.Store.CreateOrganization(ctx, domainOrg); err != nil {
		if errors.Is(err, store.ErrDuplicateSlug) {
			return &Response{Code: http.StatusConflict}, api2go.NewHTTPError(
				fmt.Errorf("organization with this name already exists"),
				"Organization with this name already exists",
				http.StatusConflict,
			)
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{
		Code: http.StatusCreated,
		Res:  OrganizationFromDomain(domainOrg),
	}, nil
}

// Delete removes an organization by ID.
// DELETE /api/v1/organizations/{id}
// Auth: Requires authentication.
func (r OrganizationResource) Delete(id string, req api2go.Request) (api2go.Responder, error) {
	ctx := req.PlainRequest.Context()
	authCtx := auth.FromContext(ctx)

	if !authCtx.Authenticated {
		return &Response{Code: http.StatusUnauthorized}, api2go.NewHTTPError(
			fmt.Errorf("authentication required"),
			"Authentication required",
			http.StatusUnauthorized,
		)
	}

	err := r.Store.DeleteOrganization(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return &Response{Code: http.StatusNotFound}, api2go.NewHTTPError(
				fmt.Errorf("organization not found"),
				"Organization not found",
				http.StatusNotFound,
			)
		}
		if errors.Is(err, store.ErrForeignKey) {
			return &Response{Code: http.StatusConflict}, api2go.NewHTTPError(
				fmt.Errorf("organization has instantiated templates"),
				"Organization has instantiated templates",
				http.StatusConflict,
			)
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{Code: http.StatusNoContent}, nil
}
