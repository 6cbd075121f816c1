package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrSlugRequired = errors.New("slug is required")
)

// =============================================================================
// Organization
// =============================================================================

// Organization is a tenant that owns instantiated templates. Organizations
// are referenced by their unique slug.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GenerateOrganizationID generates a new organization reference ID.
func GenerateOrganizationID() string {
	return "org_" + uuid.New().String()[:8]
}

// NewOrganization creates a new organization with a slug derived from the
// name. Returns an error if validation fails.
func NewOrganization(name string) (*Organization, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	slug := Slugify(name)
	if slug == "" {
		return nil, ErrSlugRequired
	}

	now := time.Now().UTC()
	return &Organization{
		ID:        GenerateOrganizationID(),
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
