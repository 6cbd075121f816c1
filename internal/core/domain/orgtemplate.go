package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrTemplateRefRequired      = errors.New("template reference is required")
	ErrOrganizationSlugRequired = errors.New("organization slug is required")
	ErrAuthorizationRefRequired = errors.New("app authorization reference is required")
	ErrRepositoryDataRequired   = errors.New("repository data is required")
)

// =============================================================================
// Organization Template
// =============================================================================

// OrganizationTemplate is the persisted link between an organization, a
// chosen template, and the concrete repository instantiated from it.
// Records are created exactly once and never mutated afterwards.
type OrganizationTemplate struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	RepositoryURL      string          `json:"repository_url"`
	RepositoryData     json.RawMessage `json:"repository_data"`
	Private            bool            `json:"private"`
	TemplateID         string          `json:"template_id"`
	OrganizationSlug   string          `json:"organization_slug"`
	AppAuthorizationID string          `json:"app_authorization_id"`
	CreatedAt          time.Time       `json:"created_at"`
}

// GenerateOrganizationTemplateID generates a new organization template
// reference ID.
func GenerateOrganizationTemplateID() string {
	return "otpl_" + uuid.New().String()[:8]
}

// NewOrganizationTemplate creates a new organization template record with
// validation. repositoryData is the full repository payload returned by the
// GitHub API, stored opaquely.
func NewOrganizationTemplate(name, repositoryURL string, repositoryData json.RawMessage, private bool, templateID, organizationSlug, authorizationID string) (*OrganizationTemplate, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if repositoryURL == "" {
		return nil, ErrRepositoryURLRequired
	}
	if len(repositoryData) == 0 {
		return nil, ErrRepositoryDataRequired
	}
	if templateID == "" {
		return nil, ErrTemplateRefRequired
	}
	if organizationSlug == "" {
		return nil, ErrOrganizationSlugRequired
	}
	if authorizationID == "" {
		return nil, ErrAuthorizationRefRequired
	}

	return &OrganizationTemplate{
		ID:                 GenerateOrganizationTemplateID(),
		Name:               name,
		RepositoryURL:      repositoryURL,
		RepositoryData:     repositoryData,
		Private:            private,
		TemplateID:         templateID,
		OrganizationSlug:   organizationSlug,
		AppAuthorizationID: authorizationID,
		CreatedAt:          time.Now().UTC(),
	}, nil
}
