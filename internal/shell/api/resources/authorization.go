package resources

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/manyminds/api2go"

	"github.com/stencilhq/stencil/internal/core/auth"
	"github.com/stencilhq/stencil/internal/core/domain"
	"github.com/stencilhq/stencil/internal/shell/store"
)

// =============================================================================
// App Authorization JSON:API Model
// =============================================================================

// AppAuthorization wraps domain.AppAuthorization to implement JSON:API
// interfaces. The account payload is exposed as delivered by GitHub.
type AppAuthorization struct {
	ID             string          `json:"-"`
	InstallationID int64           `json:"installation_id"`
	Account        json.RawMessage `json:"account"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// GetID returns the authorization ID for JSON:API.
func (a AppAuthorization) GetID() string {
	return a.ID
}

// SetID sets the authorization ID for JSON:API.
func (a *AppAuthorization) SetID(id string) error {
	a.ID = id
	return nil
}

// GetName returns the JSON:API resource type name.
func (a AppAuthorization) GetName() string {
	return "app_authorizations"
}

// AuthorizationFromDomain converts a domain.AppAuthorization to the JSON:API
// model.
func AuthorizationFromDomain(a *domain.AppAuthorization) AppAuthorization {
	return AppAuthorization{
		ID:             a.ID,
		InstallationID: a.InstallationID,
		Account:        a.Account,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// =============================================================================
// AuthorizationResource - CRUD Operations
// =============================================================================

// AuthorizationResource implements the api2go resource interface for app
// authorizations. Authorizations are private: each user only sees the
// installations they registered.
type AuthorizationResource struct {
	Store store.Store
}

// NewAuthorizationResource creates a new authorization resource handler.
func NewAuthorizationResource(s store.Store) *AuthorizationResource {
	return &AuthorizationResource{Store: s}
}

// FindAll returns the caller's app authorizations.
// GET /api/v1/app_authorizations
func (r AuthorizationResource) FindAll(req api2go.Request) (api2go.Responder, error) {
	ctx := req.PlainRequest.Context()
	authCtx := auth.FromContext(ctx)

	if !authCtx.Authenticated {
		return &Response{Code: http.StatusUnauthorized}, api2go.NewHTTPError(
			fmt.Errorf("authentication required"),
			"Authentication required",
			http.StatusUnauthorized,
		)
	}

	opts := parseListOptions(req)
	auths, err := r.Store.ListAppAuthorizationsByCreator(ctx, authCtx.UserID, opts)
	if err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}

	result := make([]AppAuthorization, 0, len(auths))
	for _, a := range auths {
		result = append(result, AuthorizationFromDomain(&a))
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

// FindOne returns a single app authorization by ID.
// GET /api/v1/app_authorizations/{id}
// Auth: A foreign authorization is indistinguishable from a missing one.
func (r AuthorizationResource) FindOne(id string, req api2go.Request) (api2go.Responder, error) {
	ctx := req.PlainRequest.Context()
	authCtx := auth.FromContext(ctx)

	authorization, err := r.Store.GetAppAuthorization(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return &Response{Code: http.StatusNotFound}, api2go.NewHTTPError(
				fmt.Errorf("app authorization not found"),
				"App authorization not found",
				http.StatusNotFound,
			)
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	if !auth.CanViewAuthorization(authCtx, *authorization) {
		return &Response{Code: http.StatusNotFound}, api2go.NewHTTPError(
			fmt.Errorf("app authorization not found"),
			"App authorization not found",
			http.StatusNotFound,
		)
	}

	return &Response{
		Code: http.StatusOK,
		Res:  AuthorizationFromDomain(authorization),
	}, nil
}

// Create registers a new app authorization.
// POST /api/v1/app_authorizations
// Auth: Requires authentication. CreatorID is set from auth context.
func (r AuthorizationResource) Create(obj interface{}, req api2go.Request) (api2go.Responder, error) {
	ctx := req.PlainRequest.Context()
	authCtx := auth.FromContext(ctx)

	if !authCtx.Authenticated {
		return &Response{Code: http.StatusUnauthorized}, api2go.NewHTTPError(
			fmt.Errorf("authentication required"),
			"Authentication required",
			http.StatusUnauthorized,
		)
	}

	authorization, ok := obj.(AppAuthorization)
	if !ok {
		return &Response{Code: http.StatusBadRequest}, api2go.NewHTTPError(
			fmt.Errorf("invalid request body"),
			"Invalid request body",
			http.StatusBadRequest,
		)
	}

	domainAuth, err := domain.NewAppAuthorization(authorization.InstallationID, authorization.Account)
	if err != nil {
		return &Response{Code: http.StatusBadRequest}, api2go.NewHTTPError(
			err,
			err.Error(),
			http.StatusBadRequest,
		)
	}
	domainAuth.CreatorID = authCtx.UserID

	if err := r.Store.CreateAppAuthorization(ctx, domainAuth); err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{
		Code: http.StatusCreated,
		Res:  AuthorizationFromDomain(domainAuth),
	}, nil
}

// Delete removes an app authorization by ID.
// DELETE /api/v1/app_authorizations/{id}
// Auth: Only the registering user can remove an authorization.
func (r AuthorizationResource) Delete(id string, req api2go.Request) (api2go.Responder, error) {
	ctx := req.PlainRequest.Context()
	authCtx := auth.FromContext(ctx)

	authorization, err := r.Store.GetAppAuthorization(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return &Response{Code: http.StatusNotFound}, api2go.NewHTTPError(
				fmt.Errorf("app authorization not found"),
				"App authorization not found",
				http.StatusNotFound,
			)
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	if !auth.CanDeleteAuthorization(authCtx, *authorization) {
		return &Response{Code: http.StatusNotFound}, api2go.NewHTTPError(
			fmt.Errorf("app authorization not found"),
			"App authorization not found",
			http.StatusNotFound,
		)
	}

	if err := r.Store.DeleteAppAuthorization(ctx, id); err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{Code: http.StatusNoContent}, nil
}
