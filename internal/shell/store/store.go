package store

import (
	"context"

	"github.com/stencilhq/stencil/internal/core/domain"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface for Stencil entities.
type Store interface {
	// User resolution (upsert user from gateway reference ID)
	ResolveUser(ctx context.Context, referenceID, email, name string) (int, error)

	// Organization operations
	CreateOrganization(ctx context.Context, org *domain.Organization) error
	GetOrganization(ctx context.Context, id string) (*domain.Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Organization, error)
	ListOrganizations(ctx context.Context, opts ListOptions) ([]domain.Organization, error)
	DeleteOrganization(ctx context.Context, id string) error

	// Template operations
	CreateTemplate(ctx context.Context, template *domain.Template) error
	GetTemplate(ctx context.Context, id string) (*domain.Template, error)
	GetTemplateBySlug(ctx context.Context, slug string) (*domain.Template, error)
	UpdateTemplate(ctx context.Context, template *domain.Template) error
	DeleteTemplate(ctx context.Context, id string) error
	ListTemplates(ctx context.Context, opts ListOptions) ([]domain.Template, error)

	// App authorization operations
	CreateAppAuthorization(ctx context.Context, auth *domain.AppAuthorization) error
	GetAppAuthorization(ctx context.Context, id string) (*domain.AppAuthorization, error)
	DeleteAppAuthorization(ctx context.Context, id string) error
	ListAppAuthorizationsByCreator(ctx context.Context, creatorID int, opts ListOptions) ([]domain.AppAuthorization, error)

	// Organization template operations (create and read only; these records
	// are never mutated after creation)
	CreateOrganizationTemplate(ctx context.Context, ot *domain.OrganizationTemplate) error
	GetOrganizationTemplate(ctx context.Context, id string) (*domain.OrganizationTemplate, error)
	ListOrganizationTemplatesByOrganization(ctx context.Context, organizationSlug string, opts ListOptions) ([]domain.OrganizationTemplate, error)
	ListOrganizationTemplatesByTemplate(ctx context.Context, templateID string, opts ListOptions) ([]domain.OrganizationTemplate, error)

	// Health
	Ping(ctx context.Context) error

	// Transaction support
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Close() error
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination options.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  100,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
