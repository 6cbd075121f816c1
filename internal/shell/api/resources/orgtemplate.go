package resources

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/manyminds/api2go"

	"github.com/stencilhq/stencil/internal/core/domain"
	"github.com/stencilhq/stencil/internal/shell/store"
)

// =============================================================================
// Organization Template JSON:API Model
// =============================================================================

// OrganizationTemplate wraps domain.OrganizationTemplate to implement
// JSON:API interfaces. These records are read-only through the standard
// resource endpoints; creation happens via
// POST /api/v1/organizations/{slug}/templates.
type OrganizationTemplate struct {
	ID                 string          `json:"-"`
	Name               string          `json:"name"`
	RepositoryURL      string          `json:"repository_url"`
	RepositoryData     json.RawMessage `json:"repository_data"`
	Private            bool            `json:"private"`
	TemplateID         string          `json:"template_id"`
	OrganizationSlug   string          `json:"organization_slug"`
	AppAuthorizationID string          `json:"app_authorization_id"`
	CreatedAt          time.Time       `json:"created_at"`
}

// GetID returns the record ID for JSON:API.
func (o OrganizationTemplate) GetID() string {
	return o.ID
}

// SetID sets the record ID for JSON:API.
func (o *OrganizationTemplate) SetID(id string) error {
	o.ID = id
	return nil
}

// GetName returns the JSON:API resource type name.
func (o OrganizationTemplate) GetName() string {
	return "organization_templates"
}

// OrganizationTemplateFromDomain converts a domain.OrganizationTemplate to
// the JSON:API model.
func OrganizationTemplateFromDomain(o *domain.OrganizationTemplate) OrganizationTemplate {
	return OrganizationTemplate{
		ID:                 o.ID,
		Name:               o.Name,
		RepositoryURL:      o.RepositoryURL,
		RepositoryData:     o.RepositoryData,
		Private:            o.Private,
		TemplateID:         o.TemplateID,
		OrganizationSlug:   o.OrganizationSlug,
		AppAuthorizationID: o.AppAuthorizationID,
		CreatedAt:          o.CreatedAt,
	}
}

// =============================================================================
// OrganizationTemplateResource - Read Operations
// =============================================================================

// OrganizationTemplateResource implements the api2go read interfaces for
// organization templates. No Create/Update/Delete: records are written once
// by the scaffold action and never mutated.
type OrganizationTemplateResource struct {
	Store store.Store
}

// NewOrganizationTemplateResource creates a new resource handler.
func NewOrganizationTemplateResource(s store.Store) *OrganizationTemplateResource {
	return &OrganizationTemplateResource{Store: s}
}

// FindAll returns organization template records, optionally filtered by
// organization or template.
// GET /api/v1/organization_templates?filter[organization]={slug}
// GET /api/v1/organization_templates?filter[template]={id}
func (r OrganizationTemplateResource) FindAll(req api2go.Request) (api2go.Responder, error) {
	opts := parseListOptions(req)
	ctx := req.PlainRequest.Context()

	var (
		records []domain.OrganizationTemplate
		err     error
	)

	switch {
	case len(req.QueryParams["filter[organization]"]) > 0:
		records, err = r.Store.ListOrganizationTemplatesByOrganization(ctx, req.QueryParams["filter[organization]"][0], opts)
	case len(req.QueryParams["filter[template]"]) > 0:
		records, err = r.Store.ListOrganizationTemplatesByTemplate(ctx, req.QueryParams["filter[template]"][0], opts)
	default:
		return &Response{Code: http.StatusBadRequest}, api2go.NewHTTPError(
			fmt.Errorf("a filter[organization] or filter[template] parameter is required"),
			"A filter[organization] or filter[template] parameter is required",
			http.StatusBadRequest,
		)
	}
	if err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}

	result := make([]OrganizationTemplate, 0, len(records))
	for _, rec := range records {
		result = append(result, OrganizationTemplateFromDomain(&rec))
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

// FindOne returns a single organization template record by ID.
// GET /api/v1/organization_templates/{id}
func (r OrganizationTemplateResource) FindOne(id string, req api2go.Request) (api2go.Responder, error) {
	ctx := req.PlainRequest.Context()

	record, err := r.Store.GetOrganizationTemplate(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return &Response{Code: http.StatusNotFound}, api2go.NewHTTPError(
				fmt.Errorf("organization template not found"),
				"Organization template not found",
				http.StatusNotFound,
			)
		}
		return &Response{Code: http.StatusInternalServerError}, err
	}

	return &Response{
		Code: http.StatusOK,
		Res:  OrganizationTemplateFromDomain(record),
	}, nil
}
